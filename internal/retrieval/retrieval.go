// Package retrieval finds policy passages for a question and renders them
// for the language model.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sampurna/itsupport/internal/documents"
	"github.com/sampurna/itsupport/internal/embedding"
	"github.com/sampurna/itsupport/internal/metrics"
)

const (
	// TopK is the number of passages requested per search.
	TopK = 4

	NoResults = "No relevant documents found."
	Separator = "\n\n---\n\n"
)

type Status int

const (
	StatusOK Status = iota
	StatusNotFound
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not_found"
	case StatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Passage is a retrieved document with its similarity clamped to [0, 1].
type Passage struct {
	Content    string
	Similarity float64
}

// Result is the outcome of one retrieval. Err is set only for StatusFailure
// and is for operators, never for the model.
type Result struct {
	Status   Status
	Passages []Passage
	Err      error
}

// Render formats the passages for the model. NotFound and Failure both
// render as NoResults.
func (r Result) Render() string {
	if r.Status != StatusOK || len(r.Passages) == 0 {
		return NoResults
	}
	blocks := make([]string, 0, len(r.Passages))
	for _, p := range r.Passages {
		blocks = append(blocks, fmt.Sprintf("Content: %s\n(Confidence: %.2f)", p.Content, p.Similarity))
	}
	return strings.Join(blocks, Separator)
}

// Retriever embeds a query and searches the document store.
type Retriever struct {
	embedder embedding.Embedder
	matcher  documents.Matcher
}

func New(embedder embedding.Embedder, matcher documents.Matcher) *Retriever {
	return &Retriever{embedder: embedder, matcher: matcher}
}

// Retrieve never returns an error; failures are reported in the Result.
func (r *Retriever) Retrieve(ctx context.Context, query string) Result {
	res := r.retrieve(ctx, strings.TrimSpace(query))
	metrics.RetrievalOutcomes.WithLabelValues(res.Status.String()).Inc()

	switch res.Status {
	case StatusFailure:
		slog.Warn("document retrieval failed", "error", res.Err)
	case StatusNotFound:
		slog.Info("no documents matched", "query_len", len(query))
	default:
		slog.Debug("documents retrieved", "count", len(res.Passages))
	}
	return res
}

func (r *Retriever) retrieve(ctx context.Context, query string) Result {
	if query == "" {
		return Result{Status: StatusNotFound}
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return Result{Status: StatusFailure, Err: fmt.Errorf("embedding query: %w", err)}
	}

	matches, err := r.matcher.Match(ctx, vec, TopK, documents.EmptyFilter)
	if err != nil {
		return Result{Status: StatusFailure, Err: err}
	}
	if len(matches) == 0 {
		return Result{Status: StatusNotFound}
	}

	passages := make([]Passage, 0, len(matches))
	for _, m := range matches {
		passages = append(passages, Passage{Content: m.Content, Similarity: clamp(m.Similarity)})
	}
	return Result{Status: StatusOK, Passages: passages}
}

// Search is the tool entry point: the rendered passages or NoResults.
func (r *Retriever) Search(ctx context.Context, query string) string {
	return r.Retrieve(ctx, query).Render()
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
