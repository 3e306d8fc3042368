// Package assistant answers one IT-support question: it builds the context
// window, analyzes an attached screenshot, normalizes the question and asks
// the composer for a grounded answer.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sampurna/itsupport/internal/composer"
	"github.com/sampurna/itsupport/internal/conversation"
	"github.com/sampurna/itsupport/internal/events"
	"github.com/sampurna/itsupport/internal/metrics"
	"github.com/sampurna/itsupport/internal/middleware"
)

type Analyzer interface {
	Analyze(ctx context.Context, payload string) string
}

type Normalizer interface {
	Normalize(question string) string
}

type Composer interface {
	Compose(ctx context.Context, in composer.Input) (composer.Answer, error)
}

// EventSink receives one event per answered question.
type EventSink interface {
	PublishAnswer(ctx context.Context, event events.AnswerEvent) error
}

type Service struct {
	analyzer   Analyzer
	normalizer Normalizer
	composer   Composer
	sink       EventSink
}

// NewService wires the pipeline. sink may be nil.
func NewService(analyzer Analyzer, normalizer Normalizer, comp Composer, sink EventSink) *Service {
	return &Service{analyzer: analyzer, normalizer: normalizer, composer: comp, sink: sink}
}

// Ask always returns an answer. Failures are logged and replaced by
// ApologyMessage; a blank model reply becomes GuidanceMessage.
func (s *Service) Ask(ctx context.Context, channel string, req QueryRequest) (resp Response) {
	start := time.Now()
	requestID := middleware.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	var (
		outcome   string
		retrieval string
	)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("answering question panicked", "panic", r, "request_id", requestID, "channel", channel)
			resp, outcome = Response{Answer: ApologyMessage}, events.OutcomeApology
		}
		metrics.AnswersTotal.WithLabelValues(outcome, channel).Inc()
		s.publish(ctx, events.AnswerEvent{
			RequestID:       requestID,
			Channel:         channel,
			Outcome:         outcome,
			RetrievalStatus: retrieval,
			HadImage:        req.ImageData != "",
			DurationMS:      time.Since(start).Milliseconds(),
			Timestamp:       time.Now().UTC(),
		})
	}()

	ans, err := s.answer(ctx, req)
	switch {
	case err != nil:
		slog.Error("answering question", "error", err, "request_id", requestID, "channel", channel)
		outcome = events.OutcomeApology
		return Response{Answer: ApologyMessage}
	case ans.ToolCalled:
		retrieval = ans.Retrieval.String()
	}

	if ans.Text == "" {
		outcome = events.OutcomeGuidance
		return Response{Answer: GuidanceMessage}
	}
	outcome = events.OutcomeAnswered
	return Response{Answer: ans.Text}
}

func (s *Service) answer(ctx context.Context, req QueryRequest) (composer.Answer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return composer.Answer{}, nil
	}

	in := composer.Input{
		Question: question,
		Context:  conversation.ContextBlock(req.ChatHistory),
	}
	if req.ImageData != "" {
		in.VisionReport = s.analyzer.Analyze(ctx, req.ImageData)
	}
	in.Normalized = s.normalizer.Normalize(question)

	ans, err := s.composer.Compose(ctx, in)
	if err != nil {
		return composer.Answer{}, fmt.Errorf("composing: %w", err)
	}
	return ans, nil
}

func (s *Service) publish(ctx context.Context, event events.AnswerEvent) {
	if s.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.sink.PublishAnswer(ctx, event); err != nil {
		slog.Warn("publishing answer event", "error", err, "request_id", event.RequestID)
	}
}
