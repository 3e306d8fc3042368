// Package client is the terminal chat client for the /ask API. It owns the
// session history and sends the last five turns with every question.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/sampurna/itsupport/internal/assistant"
	"github.com/sampurna/itsupport/internal/conversation"
)

// Timeout bounds one /ask round trip.
const Timeout = 60 * time.Second

const (
	ConnectMessage = "Could not connect to Backend. Is it running?"
	TimeoutMessage = "Backend timed out. Please try again."
	NoAnswer       = "No answer received."
)

var (
	ErrConnect = errors.New("backend unreachable")
	ErrTimeout = errors.New("backend timed out")
)

// StatusError is a non-200 reply from the backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Error: %d - %s", e.Code, e.Body)
}

// Client posts questions to the backend.
type Client struct {
	url  string
	http *http.Client
}

// New returns a client for the backend at baseURL, e.g.
// "http://127.0.0.1:8000".
func New(baseURL string) *Client {
	return &Client{
		url:  strings.TrimRight(baseURL, "/") + "/ask",
		http: &http.Client{Timeout: Timeout},
	}
}

// Ask sends one question. history is windowed to the last five turns.
// The returned answer is trimmed and may be empty.
func (c *Client) Ask(ctx context.Context, question string, history []conversation.Message, imageData string) (string, error) {
	body, err := json.Marshal(assistant.QueryRequest{
		Question:    question,
		ChatHistory: conversation.FormatTurns(history),
		ImageData:   imageData,
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out assistant.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return strings.TrimSpace(out.Answer), nil
}

func classify(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}
	return err
}

// UserMessage turns an Ask error into the line shown to the user.
func UserMessage(err error) string {
	var statusErr *StatusError
	switch {
	case errors.Is(err, ErrConnect):
		return ConnectMessage
	case errors.Is(err, ErrTimeout):
		return TimeoutMessage
	case errors.As(err, &statusErr):
		return statusErr.Error()
	default:
		return "Error: " + err.Error()
	}
}
