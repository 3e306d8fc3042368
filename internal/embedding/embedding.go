// Package embedding turns text into fixed-length vectors for similarity
// search. The provider is chosen once at start-up and shared read-only by
// every request.
package embedding

import (
	"context"
	"fmt"

	"github.com/sampurna/itsupport/internal/config"
)

// Embedder returns the embedding for a single text. Identical input must
// yield identical output for a given model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// New builds the embedder selected by cfg.Provider.
func New(ctx context.Context, cfg config.EmbeddingConfig, apiKey string) (Embedder, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGemini(ctx, apiKey, cfg.Model, cfg.Dimensions)
	case "ollama":
		return NewOllama(cfg.URL, cfg.Model), nil
	case "bedrock":
		return NewBedrock(ctx, cfg.AWSRegion, cfg.Model, cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
