// Package vision extracts on-screen text and a short scene description from
// a user screenshot.
package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sampurna/itsupport/internal/llm"
	"github.com/sampurna/itsupport/internal/metrics"
)

const (
	MissingKey     = "Vision unavailable: missing API key."
	NoInsights     = "No image insights found."
	AnalysisFailed = "Error analyzing image."

	DefaultMIMEType = "image/png"
)

const instruction = `You are an advanced AI Vision System. Perform two distinct tasks:
1) OCR EXTRACTION: Read visible text verbatim.
2) VISUAL ANALYSIS: Describe the technical scene (e.g., 'error dialog', '404 page', 'login failed').

Return format exactly:
[OCR RAW TEXT]: ...
[VISUAL CONTEXT]: ...`

// Analyzer runs one multimodal call per image. A nil model means no API key
// was configured.
type Analyzer struct {
	model llm.Model
}

func New(model llm.Model) *Analyzer {
	return &Analyzer{model: model}
}

// Analyze returns the model's two-section report or one of the fixed
// fallback notes. It never fails.
func (a *Analyzer) Analyze(ctx context.Context, payload string) (report string) {
	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			slog.Error("vision analysis panicked", "panic", r)
			report, status = AnalysisFailed, "error"
		}
		metrics.VisionOutcomes.WithLabelValues(status).Inc()
	}()

	if a.model == nil {
		status = "unavailable"
		return MissingKey
	}

	img, err := Decode(payload)
	if err != nil {
		slog.Warn("decoding image payload", "error", err)
		status = "decode_error"
		return AnalysisFailed
	}

	text, err := a.model.Generate(ctx, llm.Request{Kind: "vision", Prompt: instruction, Image: img})
	if err != nil {
		slog.Error("vision model call failed", "error", err)
		status = "error"
		return AnalysisFailed
	}

	text = strings.TrimSpace(text)
	if text == "" {
		status = "empty"
		return NoInsights
	}
	return text
}

// ParseDataURI splits "data:<mime>;base64,<payload>". Anything else is
// treated as raw base64 with the default MIME type.
func ParseDataURI(s string) (mimeType, payload string) {
	if strings.HasPrefix(s, "data:") {
		if header, body, ok := strings.Cut(s, ","); ok {
			mimeType, _, _ = strings.Cut(strings.TrimPrefix(header, "data:"), ";")
			if mimeType = strings.TrimSpace(mimeType); mimeType == "" {
				mimeType = DefaultMIMEType
			}
			return mimeType, body
		}
	}
	return DefaultMIMEType, s
}

// Decode parses and base64-decodes an image payload.
func Decode(s string) (*llm.Image, error) {
	mimeType, payload := ParseDataURI(strings.TrimSpace(s))
	payload = strings.Join(strings.Fields(payload), "")
	if payload == "" {
		return nil, errors.New("empty image payload")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		var rawErr error
		if data, rawErr = base64.RawStdEncoding.DecodeString(payload); rawErr != nil {
			return nil, fmt.Errorf("decoding base64: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, errors.New("empty image payload")
	}
	return &llm.Image{Data: data, MIMEType: mimeType}, nil
}
