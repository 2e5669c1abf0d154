package events

// Package events publishes the orchestration event stream. Sinks are
// fire-and-forget: a failing sink degrades to a log line, never to a
// failed turn.

import (
	"time"

	"github.com/google/uuid"

	"github.com/arqnb/studio/pkg/conversation"
)

type Type string

const (
	TypeTurnStarted     Type = "turn_started"
	TypeMessageAppended Type = "message_appended"
	TypeActionPhase     Type = "action_phase"
	TypeTurnCompleted   Type = "turn_completed"
	TypeTurnFailed      Type = "turn_failed"
)

type Event struct {
	ID        uuid.UUID `json:"id"`
	Type      Type      `json:"type"`
	PersonaID string    `json:"personaId"`
	Time      time.Time `json:"time"`

	// Message is set for message_appended events.
	Message *conversation.Message `json:"message,omitempty"`
	// Detail carries a short phase or failure description.
	Detail string `json:"detail,omitempty"`
}

type EventOption func(*Event)

func WithMessage(msg *conversation.Message) EventOption {
	return func(e *Event) {
		e.Message = msg
	}
}

func WithDetail(detail string) EventOption {
	return func(e *Event) {
		e.Detail = detail
	}
}

func New(t Type, personaID string, options ...EventOption) Event {
	ret := Event{
		ID:        uuid.New(),
		Type:      t,
		PersonaID: personaID,
		Time:      time.Now(),
	}
	for _, option := range options {
		option(&ret)
	}
	return ret
}

// Sink receives orchestration events.
type Sink interface {
	PublishEvent(event Event) error
}

// NullSink discards everything. It is the default when no event bus is
// wired in.
type NullSink struct{}

func (NullSink) PublishEvent(Event) error {
	return nil
}

var _ Sink = NullSink{}
