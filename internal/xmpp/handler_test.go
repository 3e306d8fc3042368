package xmpp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gosrc.io/xmpp/stanza"

	"github.com/sampurna/itsupport/internal/assistant"
	"github.com/sampurna/itsupport/internal/conversation"
	"github.com/sampurna/itsupport/internal/middleware"
	"github.com/sampurna/itsupport/internal/session"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []stanza.Packet
}

func (f *fakeSender) Send(p stanza.Packet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, p)
	return nil
}

func (f *fakeSender) messages() []stanza.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []stanza.Message
	for _, p := range f.sent {
		if m, ok := p.(stanza.Message); ok {
			out = append(out, m)
		}
	}
	return out
}

type fakeAsker struct {
	mu       sync.Mutex
	answer   string
	requests []assistant.QueryRequest
	channel  string
	block    chan struct{}
}

func (f *fakeAsker) Ask(_ context.Context, channel string, req assistant.QueryRequest) assistant.Response {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	f.channel = channel
	return assistant.Response{Answer: f.answer}
}

func setup(t *testing.T, limit int) (*Handler, *fakeAsker, *session.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := session.NewStore(client, time.Hour)
	asker := &fakeAsker{answer: "- Summary: raise a TMS ticket"}

	var limiter Limiter
	if limit > 0 {
		limiter = middleware.NewRateLimiter(client, "ratelimit:xmpp:", limit, 60)
	}
	return NewHandler(asker, store, limiter), asker, store
}

func chat(from, body string) stanza.Message {
	return stanza.Message{
		Attrs: stanza.Attrs{From: from, To: "itsupport.localhost", Type: "chat"},
		Body:  body,
	}
}

func TestHandleMessage_AnswersAndStoresTurn(t *testing.T) {
	h, asker, store := setup(t, 0)
	s := &fakeSender{}

	h.handleMessage(s, chat("Alice@example.com/phone", "my laptop was stolen"))
	h.Wait()

	msgs := s.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "- Summary: raise a TMS ticket", msgs[0].Body)
	assert.Equal(t, "Alice@example.com/phone", msgs[0].To)
	assert.Equal(t, "itsupport.localhost", msgs[0].From)

	assert.Equal(t, assistant.ChannelXMPP, asker.channel)
	require.Len(t, asker.requests, 1)
	assert.Empty(t, asker.requests[0].ChatHistory)

	history, err := store.Recent(context.Background(), "alice@example.com", 10)
	require.NoError(t, err)
	assert.Equal(t, []conversation.Message{
		{Role: conversation.RoleUser, Content: "my laptop was stolen"},
		{Role: conversation.RoleAssistant, Content: "- Summary: raise a TMS ticket"},
	}, history)
}

func TestHandleMessage_SendsLastFiveTurns(t *testing.T) {
	h, asker, store := setup(t, 0)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, store.Append(ctx, "bob@example.com",
			conversation.Message{Role: conversation.RoleUser, Content: "q"},
			conversation.Message{Role: conversation.RoleAssistant, Content: "a"},
		))
	}

	h.handleMessage(&fakeSender{}, chat("bob@example.com", "and a tablet?"))
	h.Wait()

	require.Len(t, asker.requests, 1)
	assert.Equal(t, []string{"ASSISTANT: a", "USER: q", "ASSISTANT: a", "USER: q", "ASSISTANT: a"}, asker.requests[0].ChatHistory)
	assert.Equal(t, "and a tablet?", asker.requests[0].Question)
}

func TestHandleMessage_Clear(t *testing.T) {
	h, asker, store := setup(t, 0)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "carol@example.com", conversation.Message{Role: conversation.RoleUser, Content: "hi"}))

	s := &fakeSender{}
	h.handleMessage(s, chat("carol@example.com/laptop", "/clear"))
	h.Wait()

	msgs := s.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, ClearedReply, msgs[0].Body)
	assert.Empty(t, asker.requests)

	history, err := store.Recent(ctx, "carol@example.com", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHandleMessage_IgnoresEmptyAndErrors(t *testing.T) {
	h, asker, _ := setup(t, 0)
	s := &fakeSender{}

	h.handleMessage(s, chat("dave@example.com", "   "))
	errMsg := chat("dave@example.com", "service-unavailable")
	errMsg.Type = "error"
	h.handleMessage(s, errMsg)
	h.handleMessage(s, stanza.Presence{})
	h.Wait()

	assert.Empty(t, s.messages())
	assert.Empty(t, asker.requests)
}

func TestHandleMessage_RateLimited(t *testing.T) {
	h, asker, _ := setup(t, 1)
	s := &fakeSender{}

	h.handleMessage(s, chat("erin@example.com", "vpn setup"))
	h.Wait()
	h.handleMessage(s, chat("erin@example.com", "vpn setup again"))
	h.Wait()

	msgs := s.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RateLimitedReply, msgs[1].Body)
	assert.Len(t, asker.requests, 1)
}

func TestHandleMessage_OneQuestionAtATimePerUser(t *testing.T) {
	h, asker, _ := setup(t, 0)
	asker.block = make(chan struct{})
	s := &fakeSender{}

	h.handleMessage(s, chat("frank@example.com", "first"))
	h.handleMessage(s, chat("frank@example.com/other", "second"))

	msgs := s.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, BusyReply, msgs[0].Body)

	close(asker.block)
	h.Wait()
	assert.Len(t, asker.requests, 1)
}

func TestHandlePresence_ApprovesSubscribe(t *testing.T) {
	h, _, _ := setup(t, 0)
	s := &fakeSender{}

	h.handlePresence(s, stanza.Presence{Attrs: stanza.Attrs{From: "gina@example.com", To: "itsupport.localhost", Type: "subscribe"}})
	h.handlePresence(s, stanza.Presence{Attrs: stanza.Attrs{From: "gina@example.com", To: "itsupport.localhost", Type: "unavailable"}})

	require.Len(t, s.sent, 1)
	pres, ok := s.sent[0].(stanza.Presence)
	require.True(t, ok)
	assert.EqualValues(t, "subscribed", pres.Type)
	assert.Equal(t, "gina@example.com", pres.To)
}

func TestBareJID(t *testing.T) {
	tests := map[string]string{
		"user@example.com/phone": "user@example.com",
		"User@Example.com":       "user@example.com",
		"example.com":            "example.com",
		"":                       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, BareJID(in), in)
	}
}
