package conversation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func turns(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("USER: q%d", i)
	}
	return out
}

func TestWindow(t *testing.T) {
	for _, n := range []int{0, 1, 4, 5, 6, 12} {
		t.Run(fmt.Sprintf("len %d", n), func(t *testing.T) {
			history := turns(n)
			got := Window(history)

			if n <= MaxTurns {
				assert.Equal(t, history, got)
				return
			}
			assert.Len(t, got, MaxTurns)
			assert.Equal(t, history[n-MaxTurns:], got)
		})
	}
}

func TestWindow_Idempotent(t *testing.T) {
	history := turns(9)
	assert.Equal(t, Window(history), Window(Window(history)))
}

func TestFormatTurns(t *testing.T) {
	history := []Message{
		{Role: RoleAssistant, Content: "Hello! How can I help?"},
		{Role: RoleUser, Content: "vpn setup"},
		{Role: RoleAssistant, Content: "Install the client."},
		{Role: RoleUser, Content: "which client"},
		{Role: RoleAssistant, Content: "The approved one."},
		{Role: RoleUser, Content: "thanks"},
	}

	got := FormatTurns(history)

	assert.Equal(t, []string{
		"USER: vpn setup",
		"ASSISTANT: Install the client.",
		"USER: which client",
		"ASSISTANT: The approved one.",
		"USER: thanks",
	}, got)
}

func TestContextBlock(t *testing.T) {
	assert.Equal(t, NoContext, ContextBlock(nil))
	assert.Equal(t, NoContext, ContextBlock([]string{}))
	assert.Equal(t, "USER: a\nASSISTANT: b", ContextBlock([]string{"USER: a", "ASSISTANT: b"}))

	long := turns(7)
	assert.Equal(t, "USER: q2\nUSER: q3\nUSER: q4\nUSER: q5\nUSER: q6", ContextBlock(long))
}
