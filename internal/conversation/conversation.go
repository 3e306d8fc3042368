// Package conversation holds chat turns and the bounded context window that
// is handed to the language model.
package conversation

import (
	"fmt"
	"strings"
)

// MaxTurns is the number of most recent entries (user and assistant
// combined) that make up the context window.
const MaxTurns = 5

// NoContext is rendered when there is no history to show.
const NoContext = "No previous context."

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// String renders the message as "ROLE: content".
func (m Message) String() string {
	return fmt.Sprintf("%s: %s", strings.ToUpper(string(m.Role)), m.Content)
}

// Window returns the last MaxTurns entries in their original order.
// Window(Window(h)) == Window(h).
func Window[T any](history []T) []T {
	if len(history) <= MaxTurns {
		return history
	}
	return history[len(history)-MaxTurns:]
}

// FormatTurns renders the window of history as "ROLE: content" lines.
func FormatTurns(history []Message) []string {
	recent := Window(history)
	out := make([]string, 0, len(recent))
	for _, m := range recent {
		out = append(out, m.String())
	}
	return out
}

// ContextBlock joins an already formatted history, windowing it again on the
// receiving side.
func ContextBlock(formatted []string) string {
	recent := Window(formatted)
	if len(recent) == 0 {
		return NoContext
	}
	return strings.Join(recent, "\n")
}
