// Package composer builds the single grounded prompt for a question and asks
// the language model for the answer.
package composer

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sampurna/itsupport/internal/llm"
	"github.com/sampurna/itsupport/internal/retrieval"
)

type Mode string

const (
	// ModeTool binds the retriever as a tool the model calls itself.
	ModeTool Mode = "tool"
	// ModeInline runs the retriever first and puts the passages in the prompt.
	ModeInline Mode = "inline"
)

// Retriever is the part of retrieval.Retriever the composer needs.
type Retriever interface {
	Retrieve(ctx context.Context, query string) retrieval.Result
}

type Input struct {
	Question     string
	Normalized   string
	Context      string
	VisionReport string
}

type Answer struct {
	Text string
	// Retrieval is the outcome of the last search made while composing.
	// ToolCalled is false when the model answered without searching.
	Retrieval  retrieval.Status
	ToolCalled bool
}

type Composer struct {
	model     llm.Model
	retriever Retriever
	mode      Mode
}

// New returns a Composer. A nil model makes every Compose fail with
// llm.ErrUnavailable.
func New(model llm.Model, retriever Retriever, mode Mode) *Composer {
	if mode != ModeInline {
		mode = ModeTool
	}
	return &Composer{model: model, retriever: retriever, mode: mode}
}

// Compose returns the trimmed model reply. Model failures are returned as
// errors; retrieval failures are not.
func (c *Composer) Compose(ctx context.Context, in Input) (Answer, error) {
	if c.model == nil {
		return Answer{}, llm.ErrUnavailable
	}

	ans := Answer{}
	data := promptData{
		Context:      in.Context,
		VisionReport: in.VisionReport,
		Question:     in.Question,
		Normalized:   in.Normalized,
	}
	req := llm.Request{Kind: "answer", System: systemInstruction}

	switch c.mode {
	case ModeInline:
		res := c.retriever.Retrieve(ctx, in.Normalized)
		ans.Retrieval, ans.ToolCalled = res.Status, true
		data.Inline = true
		data.Passages = res.Render()
	default:
		req.Tool = &llm.Tool{
			Name:        ToolName,
			Description: toolDescription,
			Param:       "query",
			ParamDoc:    "A specific question or keyword, in English.",
			Call: func(ctx context.Context, query string) string {
				res := c.retriever.Retrieve(ctx, query)
				ans.Retrieval, ans.ToolCalled = res.Status, true
				return res.Render()
			},
		}
	}

	prompt, err := buildPrompt(data)
	if err != nil {
		return Answer{}, err
	}
	req.Prompt = prompt

	text, err := c.model.Generate(ctx, req)
	if err != nil {
		return Answer{}, fmt.Errorf("composing answer: %w", err)
	}
	ans.Text = strings.TrimSpace(text)
	return ans, nil
}

// buildPrompt renders the answer prompt.
func buildPrompt(data promptData) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}
