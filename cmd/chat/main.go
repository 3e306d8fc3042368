package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sampurna/itsupport/internal/client"
	"github.com/sampurna/itsupport/internal/conversation"
)

const help = `Commands:
  /image <path>               attach a PNG or JPEG to the next question
  /clear                      start a new chat
  /export txt|json <file>     save the conversation
  /quit                       exit`

func main() {
	url := flag.String("url", "http://localhost:8000", "backend base URL")
	flag.Parse()

	session := client.NewSession(client.New(*url))
	fmt.Printf("ASSISTANT: %s\n\n%s\n\n", client.Greeting, help)

	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 64*1024), 1<<20)
	for {
		prompt := "> "
		if session.HasImage() {
			prompt = "[image] > "
		}
		fmt.Print(prompt)
		if !in.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := command(session, line); quit {
				return
			}
			continue
		}

		fmt.Println("Analyzing...")
		answer, err := session.Send(context.Background(), line)
		if err != nil {
			fmt.Fprintln(os.Stderr, client.UserMessage(err))
			continue
		}
		fmt.Printf("\n%s: %s\n\n", strings.ToUpper(string(conversation.RoleAssistant)), answer)
	}
}

// command runs a slash command and reports whether the client should exit.
func command(session *client.Session, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/clear":
		session.Clear()
		fmt.Printf("ASSISTANT: %s\n", client.Greeting)
	case "/image":
		if len(fields) < 2 {
			fmt.Fprintln(os.Stderr, "usage: /image <path>")
			break
		}
		path := strings.TrimSpace(strings.TrimPrefix(line, "/image"))
		if err := session.AttachImage(path); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			break
		}
		fmt.Println("Image attached to your next question.")
	case "/export":
		if len(fields) != 3 {
			fmt.Fprintln(os.Stderr, "usage: /export txt|json <file>")
			break
		}
		if err := export(session, fields[1], fields[2]); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			break
		}
		fmt.Println("Saved", fields[2])
	default:
		fmt.Println(help)
	}
	return false
}

func export(session *client.Session, format, path string) error {
	var write func(io.Writer) error
	switch format {
	case "txt":
		write = session.ExportTXT
	case "json":
		write = session.ExportJSON
	default:
		return fmt.Errorf("unknown export format %q", format)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
