package conversation

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// StoreImpl keeps all state in memory; its lifetime is bounded by the
// client session, so there is no teardown path.
type StoreImpl struct {
	mu      sync.RWMutex
	entries map[string]*personaEntry
}

var _ Store = (*StoreImpl)(nil)

// personaEntry guards one persona's sessions. Each entry has its own lock
// so that concurrent turns for different personas never contend.
type personaEntry struct {
	mu       sync.Mutex
	greeting *Message
	sessions []*Session
	active   int
}

func NewStore() *StoreImpl {
	return &StoreImpl{
		entries: map[string]*personaEntry{},
	}
}

// Register seeds a persona with exactly one session containing the greeting.
// Registering an already-known persona is a no-op, so the store cannot be
// re-seeded mid-conversation.
func (s *StoreImpl) Register(personaID string, greeting *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[personaID]; ok {
		return
	}

	entry := &personaEntry{greeting: greeting}
	entry.sessions = append(entry.sessions, entry.newSeededSession())
	s.entries[personaID] = entry

	log.Debug().Str("persona_id", personaID).Msg("registered persona with seeded session")
}

func (s *StoreImpl) entry(personaID string) (*personaEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[personaID]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPersona, "persona %q", personaID)
	}
	return entry, nil
}

func (s *StoreImpl) ActiveSession(personaID string) (*Session, error) {
	entry, err := s.entry(personaID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.snapshotLocked(entry.active), nil
}

func (s *StoreImpl) ActiveIndex(personaID string) (int, error) {
	entry, err := s.entry(personaID)
	if err != nil {
		return 0, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.active, nil
}

func (s *StoreImpl) Sessions(personaID string) ([]*Session, error) {
	entry, err := s.entry(personaID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	ret := make([]*Session, len(entry.sessions))
	for i := range entry.sessions {
		ret[i] = entry.snapshotLocked(i)
	}
	return ret, nil
}

func (s *StoreImpl) Append(personaID string, msgs ...*Message) error {
	entry, err := s.entry(personaID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	session := entry.sessions[entry.active]
	session.Messages = append(session.Messages, msgs...)

	log.Debug().
		Str("persona_id", personaID).
		Int("session_index", entry.active).
		Int("appended", len(msgs)).
		Int("session_length", len(session.Messages)).
		Msg("appended messages")

	return nil
}

func (s *StoreImpl) NewSession(personaID string) (*Session, error) {
	entry, err := s.entry(personaID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.sessions = append(entry.sessions, entry.newSeededSession())
	entry.active = len(entry.sessions) - 1

	log.Debug().
		Str("persona_id", personaID).
		Int("session_index", entry.active).
		Msg("created session")

	return entry.snapshotLocked(entry.active), nil
}

func (s *StoreImpl) SelectSession(personaID string, index int) error {
	entry, err := s.entry(personaID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if index < 0 || index >= len(entry.sessions) {
		return errors.Wrapf(ErrSessionOutOfRange, "index %d, %d sessions", index, len(entry.sessions))
	}
	entry.active = index
	return nil
}

// newSeededSession clones the greeting with a fresh identity so that each
// session's seed message is distinct.
func (e *personaEntry) newSeededSession() *Session {
	seed := *e.greeting
	seed.ID = uuid.New()
	return &Session{
		ID:       uuid.New(),
		Messages: []*Message{&seed},
	}
}

// snapshotLocked copies the message slice so callers never alias live state.
func (e *personaEntry) snapshotLocked(index int) *Session {
	session := e.sessions[index]
	msgs := make([]*Message, len(session.Messages))
	copy(msgs, session.Messages)
	return &Session{
		ID:       session.ID,
		Messages: msgs,
	}
}
