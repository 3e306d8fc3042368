package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini embeds text with the Gemini embedding models.
type Gemini struct {
	client *genai.Client
	model  string
	dims   int32
}

func NewGemini(ctx context.Context, apiKey, model string, dims int) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini embeddings need an API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return newGeminiWithClient(client, model, dims), nil
}

func newGeminiWithClient(client *genai.Client, model string, dims int) *Gemini {
	if model == "" {
		model = "text-embedding-004"
	}
	return &Gemini{client: client, model: model, dims: int32(dims)}
}

func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	cfg := &genai.EmbedContentConfig{}
	if g.dims > 0 {
		cfg.OutputDimensionality = &g.dims
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("embedding with %s: %w", g.model, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%s returned no embedding", g.model)
	}
	return resp.Embeddings[0].Values, nil
}
