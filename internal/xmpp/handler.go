// Package xmpp is a chat gateway: users message the component JID and get
// answers from the assistant. History is kept per bare JID.
package xmpp

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gosrc.io/xmpp"
	"gosrc.io/xmpp/stanza"

	"github.com/sampurna/itsupport/internal/assistant"
	"github.com/sampurna/itsupport/internal/conversation"
	"github.com/sampurna/itsupport/internal/middleware"
)

const (
	ClearCommand = "/clear"

	ClearedReply     = "Session cleared."
	RateLimitedReply = "You are sending messages too quickly. Please wait a moment and try again."
	BusyReply        = "Still working on your previous question. Please wait for the answer."
)

// answerTimeout matches the chat client deadline.
const answerTimeout = 60 * time.Second

type Asker interface {
	Ask(ctx context.Context, channel string, req assistant.QueryRequest) assistant.Response
}

type History interface {
	Recent(ctx context.Context, user string, limit int) ([]conversation.Message, error)
	Append(ctx context.Context, user string, msgs ...conversation.Message) error
	Clear(ctx context.Context, user string) error
}

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Handler processes incoming stanzas. Questions are answered off the
// component's read loop, one at a time per user.
type Handler struct {
	asker   Asker
	history History
	limiter Limiter

	mu       sync.Mutex
	inflight map[string]bool
	wg       sync.WaitGroup
}

// NewHandler creates a stanza handler. limiter may be nil.
func NewHandler(asker Asker, history History, limiter Limiter) *Handler {
	return &Handler{
		asker:    asker,
		history:  history,
		limiter:  limiter,
		inflight: make(map[string]bool),
	}
}

// replier is the part of xmpp.Sender the handler uses.
type replier interface {
	Send(packet stanza.Packet) error
}

// HandleMessage answers chat messages.
func (h *Handler) HandleMessage(s xmpp.Sender, p stanza.Packet) {
	h.handleMessage(s, p)
}

func (h *Handler) handleMessage(s replier, p stanza.Packet) {
	msg, ok := p.(stanza.Message)
	if !ok {
		return
	}

	body := strings.TrimSpace(msg.Body)
	if body == "" || msg.Type == "error" {
		return
	}

	user := BareJID(msg.From)
	slog.Debug("XMPP message received", "from", user, "to", msg.To, "type", string(msg.Type))

	if strings.EqualFold(body, ClearCommand) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.history.Clear(ctx, user); err != nil {
			slog.Error("clearing XMPP session", "error", err, "from", user)
		}
		h.reply(s, msg, ClearedReply)
		return
	}

	if !h.acquire(user) {
		h.reply(s, msg, BusyReply)
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer h.release(user)
		h.answer(s, msg, user, body)
	}()
}

func (h *Handler) answer(s replier, msg stanza.Message, user, question string) {
	requestID := uuid.NewString()
	ctx, cancel := context.WithTimeout(middleware.WithRequestID(context.Background(), requestID), answerTimeout)
	defer cancel()

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(ctx, user)
		if err != nil {
			slog.Warn("rate limiter: redis error, failing open", "error", err, "from", user)
		} else if !allowed {
			h.reply(s, msg, RateLimitedReply)
			return
		}
	}

	recent, err := h.history.Recent(ctx, user, conversation.MaxTurns)
	if err != nil {
		slog.Warn("loading XMPP history, answering without it", "error", err, "from", user)
		recent = nil
	}

	resp := h.asker.Ask(ctx, assistant.ChannelXMPP, assistant.QueryRequest{
		Question:    question,
		ChatHistory: conversation.FormatTurns(recent),
	})

	turn := []conversation.Message{
		{Role: conversation.RoleUser, Content: question},
		{Role: conversation.RoleAssistant, Content: resp.Answer},
	}
	if err := h.history.Append(ctx, user, turn...); err != nil {
		slog.Warn("saving XMPP history", "error", err, "from", user, "request_id", requestID)
	}

	h.reply(s, msg, resp.Answer)
}

// HandlePresence auto-approves subscription requests so users can add the
// assistant to their roster.
func (h *Handler) HandlePresence(s xmpp.Sender, p stanza.Packet) {
	h.handlePresence(s, p)
}

func (h *Handler) handlePresence(s replier, p stanza.Packet) {
	pres, ok := p.(stanza.Presence)
	if !ok {
		return
	}

	slog.Debug("XMPP presence received", "from", pres.From, "to", pres.To, "type", string(pres.Type))

	if pres.Type == "subscribe" {
		reply := stanza.Presence{
			Attrs: stanza.Attrs{
				From: pres.To,
				To:   pres.From,
				Type: "subscribed",
			},
		}
		if err := s.Send(reply); err != nil {
			slog.Error("sending presence subscribed reply", "error", err)
		}
	}
}

// Wait blocks until every in-flight answer has been sent.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) acquire(user string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.inflight[user] {
		return false
	}
	h.inflight[user] = true
	return true
}

func (h *Handler) release(user string) {
	h.mu.Lock()
	delete(h.inflight, user)
	h.mu.Unlock()
}

func (h *Handler) reply(s replier, to stanza.Message, body string) {
	msg := stanza.Message{
		Attrs: stanza.Attrs{
			From: to.To,
			To:   to.From,
			Type: "chat",
		},
		Body: body,
	}
	if err := s.Send(msg); err != nil {
		slog.Error("sending XMPP reply", "error", err, "to", to.From)
	}
}

// BareJID strips the resource part: "user@host/phone" -> "user@host".
func BareJID(jid string) string {
	bare, _, _ := strings.Cut(jid, "/")
	return strings.ToLower(bare)
}
