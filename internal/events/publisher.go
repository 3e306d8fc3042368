package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// jsPublisher is the slice of jetstream.JetStream the Publisher uses.
type jsPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher provides typed methods for publishing events to JetStream.
type Publisher struct {
	js jsPublisher
}

func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishAnswer publishes an AnswerEvent, deduplicated by request ID.
func (p *Publisher) PublishAnswer(ctx context.Context, event AnswerEvent) error {
	var opts []jetstream.PublishOpt
	if event.RequestID != "" {
		opts = append(opts, jetstream.WithMsgID(event.RequestID))
	}
	return p.publish(ctx, SubjectAnswer, event, opts...)
}

func (p *Publisher) publish(ctx context.Context, subject string, data any, opts ...jetstream.PublishOpt) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	if _, err := p.js.Publish(ctx, subject, payload, opts...); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
