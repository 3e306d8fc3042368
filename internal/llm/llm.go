// Package llm is a thin text-in/text-out surface over the language model,
// with room for one callable tool and one image per request.
package llm

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no model is configured.
var ErrUnavailable = errors.New("language model unavailable")

// Image is raw image bytes sent alongside the prompt.
type Image struct {
	Data     []byte
	MIMEType string
}

// Tool is a single capability the model may call with one string argument.
type Tool struct {
	Name        string
	Description string
	Param       string
	ParamDoc    string
	Call        func(ctx context.Context, arg string) string
}

type Request struct {
	// Kind labels the call in metrics, e.g. "answer" or "vision".
	Kind   string
	System string
	Prompt string
	Tool   *Tool
	Image  *Image
}

// Model generates the reply text for a request. When Tool is set the model
// gets one chance to call it before producing the final text.
type Model interface {
	Generate(ctx context.Context, req Request) (string, error)
}
