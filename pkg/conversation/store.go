package conversation

// Package conversation owns the per-persona, multi-session chat state.
//
// Each persona holds an ordered list of sessions ("tabs") plus a pointer to
// the active one. Sessions are append-only message lists; a session is
// created seeded with the persona's greeting and never destroyed. The Store
// is the only component allowed to mutate session state: everything else
// works on snapshots.

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrUnknownPersona    = errors.New("persona is not registered with the store")
	ErrSessionOutOfRange = errors.New("session index out of range")
)

// Session is one independent conversation thread. Instances returned by the
// Store are snapshots: the message slice is a copy and messages themselves
// are treated as immutable once appended.
type Session struct {
	ID       uuid.UUID
	Messages []*Message
}

// Store defines the high-level conversation state operations.
//
// Appends are monotonic: never reordered, never dropped. Operations on
// different personas are independent and may be interleaved freely;
// operations on the same persona are linearized by the store's per-persona
// lock (the orchestrator's single-flight gate additionally serializes whole
// turns).
type Store interface {
	// ActiveSession returns a snapshot of the persona's active session.
	ActiveSession(personaID string) (*Session, error)
	// ActiveIndex returns the index of the persona's active session.
	ActiveIndex(personaID string) (int, error)
	// Sessions returns snapshots of all of the persona's sessions.
	Sessions(personaID string) ([]*Session, error)
	// Append commits messages to the persona's active session.
	Append(personaID string, msgs ...*Message) error
	// NewSession appends a fresh session seeded with the persona's greeting
	// and makes it active.
	NewSession(personaID string) (*Session, error)
	// SelectSession makes the given session index active.
	SelectSession(personaID string, index int) error
}
