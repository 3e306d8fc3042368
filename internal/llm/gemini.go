package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/sampurna/itsupport/internal/metrics"
)

// Gemini implements Model with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini returns a model client. A positive timeout bounds each request.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration) (*Gemini, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if timeout > 0 {
		cfg.HTTPOptions.Timeout = &timeout
	}
	return newGemini(ctx, cfg, model)
}

func newGemini(ctx context.Context, cfg *genai.ClientConfig, model string) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, ErrUnavailable
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	kind := req.Kind
	if kind == "" {
		kind = "generate"
	}
	start := time.Now()
	defer func() {
		metrics.ModelCallDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Image != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, req.Image.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	if req.Tool == nil {
		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
		if err != nil {
			return "", fmt.Errorf("generating content: %w", err)
		}
		return strings.TrimSpace(resp.Text()), nil
	}

	// First turn: the model must call the tool.
	cfg.Tools = []*genai.Tool{{FunctionDeclarations: []*genai.FunctionDeclaration{declare(req.Tool)}}}
	cfg.ToolConfig = &genai.ToolConfig{FunctionCallingConfig: &genai.FunctionCallingConfig{
		Mode:                 genai.FunctionCallingConfigModeAny,
		AllowedFunctionNames: []string{req.Tool.Name},
	}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generating tool call: %w", err)
	}
	calls := resp.FunctionCalls()
	if len(calls) == 0 || len(resp.Candidates) == 0 {
		return strings.TrimSpace(resp.Text()), nil
	}

	responses := make([]*genai.Part, 0, len(calls))
	for _, call := range calls {
		responses = append(responses, &genai.Part{FunctionResponse: &genai.FunctionResponse{
			ID:       call.ID,
			Name:     call.Name,
			Response: map[string]any{"output": runTool(ctx, req.Tool, call)},
		}})
	}
	contents = append(contents, resp.Candidates[0].Content, genai.NewContentFromParts(responses, genai.RoleUser))

	// Second turn: answer from the tool output, no further calls.
	cfg.ToolConfig = &genai.ToolConfig{FunctionCallingConfig: &genai.FunctionCallingConfig{
		Mode: genai.FunctionCallingConfigModeNone,
	}}
	resp, err = g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func declare(t *Tool) *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name,
		Description: t.Description,
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				t.Param: {Type: genai.TypeString, Description: t.ParamDoc},
			},
			Required: []string{t.Param},
		},
	}
}

func runTool(ctx context.Context, t *Tool, call *genai.FunctionCall) string {
	if call.Name != t.Name {
		slog.Warn("model called an unknown tool", "name", call.Name)
		return fmt.Sprintf("unknown tool %q", call.Name)
	}
	arg, _ := call.Args[t.Param].(string)
	slog.Debug("model called tool", "name", call.Name, "arg_len", len(arg))
	return t.Call(ctx, arg)
}
