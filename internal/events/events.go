// Package events publishes answer telemetry to NATS JetStream.
package events

import "time"

const (
	StreamEvents  = "ITSUPPORT_EVENTS"
	SubjectAnswer = "itsupport.events.answer"
)

// Answer outcomes.
const (
	OutcomeAnswered = "answered"
	OutcomeGuidance = "guidance"
	OutcomeApology  = "apology"
)

// AnswerEvent is published once per answered question. It carries no
// question or answer text.
type AnswerEvent struct {
	RequestID       string    `json:"request_id"`
	Channel         string    `json:"channel"` // http or xmpp
	Outcome         string    `json:"outcome"`
	RetrievalStatus string    `json:"retrieval_status,omitempty"`
	HadImage        bool      `json:"had_image"`
	DurationMS      int64     `json:"duration_ms"`
	Timestamp       time.Time `json:"timestamp"`
}
