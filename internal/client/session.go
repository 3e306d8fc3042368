package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sampurna/itsupport/internal/conversation"
)

const Greeting = "Hello! I am Sampurna IT Support. You can upload a screenshot of your error or ask me a question."

// maxImageFile matches the server-side limit once base64 encoded.
const maxImageFile = 7 << 20

type Asker interface {
	Ask(ctx context.Context, question string, history []conversation.Message, imageData string) (string, error)
}

// Session is one chat: its messages and an image waiting to be sent with
// the next question.
type Session struct {
	asker    Asker
	messages []conversation.Message
	image    string
}

func NewSession(asker Asker) *Session {
	s := &Session{asker: asker}
	s.Clear()
	return s
}

// Messages returns the whole conversation, greeting included.
func (s *Session) Messages() []conversation.Message {
	return append([]conversation.Message(nil), s.messages...)
}

// HasImage reports whether an image is attached to the next question.
func (s *Session) HasImage() bool {
	return s.image != ""
}

// Clear resets the conversation to the greeting and drops any attachment.
func (s *Session) Clear() {
	s.messages = []conversation.Message{{Role: conversation.RoleAssistant, Content: Greeting}}
	s.image = ""
}

// AttachImage reads a PNG or JPEG and encodes it as a data URI.
func (s *Session) AttachImage(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) > maxImageFile {
		return fmt.Errorf("%s is larger than %d MiB", filepath.Base(path), maxImageFile>>20)
	}
	mime := http.DetectContentType(data)
	if mime != "image/png" && mime != "image/jpeg" {
		return fmt.Errorf("%s is not a PNG or JPEG image (%s)", filepath.Base(path), mime)
	}
	s.image = "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
	return nil
}

// Send asks question with the history so far. On success both turns are
// recorded and the attachment is consumed. On failure nothing but the
// user's turn is recorded and the attachment is kept for a retry.
func (s *Session) Send(ctx context.Context, question string) (string, error) {
	history := s.Messages()
	s.messages = append(s.messages, conversation.Message{Role: conversation.RoleUser, Content: question})

	answer, err := s.asker.Ask(ctx, question, history, s.image)
	if err != nil {
		return "", err
	}
	if answer == "" {
		answer = NoAnswer
	}
	s.messages = append(s.messages, conversation.Message{Role: conversation.RoleAssistant, Content: answer})
	s.image = ""
	return answer, nil
}

// ExportTXT writes "USER: ..." / "ASSISTANT: ..." lines separated by blank
// lines.
func (s *Session) ExportTXT(w io.Writer) error {
	lines := make([]string, 0, len(s.messages))
	for _, m := range s.messages {
		lines = append(lines, m.String())
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n\n")+"\n")
	return err
}

// ExportJSON writes the conversation as a JSON array of {role, content}.
func (s *Session) ExportJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(s.messages)
}
