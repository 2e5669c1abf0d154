package conversation

import (
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestRegisterSeedsOneSessionWithGreeting(t *testing.T) {
	store := NewStore()
	store.Register("p", NewMessage(RoleModel, "olá"))

	sessions, err := store.Sessions("p")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].Messages, 1)
	require.Equal(t, "olá", sessions[0].Messages[0].Text)
	require.Equal(t, RoleModel, sessions[0].Messages[0].Role)

	index, err := store.ActiveIndex("p")
	require.NoError(t, err)
	require.Equal(t, 0, index)
}

func TestRegisterTwiceKeepsExistingSessions(t *testing.T) {
	store := NewStore()
	store.Register("p", NewMessage(RoleModel, "olá"))
	require.NoError(t, store.Append("p", NewMessage(RoleUser, "oi")))

	store.Register("p", NewMessage(RoleModel, "outro"))

	session, err := store.ActiveSession("p")
	require.NoError(t, err)
	require.Len(t, session.Messages, 2)
}

func TestAppendIsMonotonic(t *testing.T) {
	store := seededStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append("p", NewMessage(RoleUser, fmt.Sprintf("msg-%d", i))))
	}

	session, err := store.ActiveSession("p")
	require.NoError(t, err)
	require.Len(t, session.Messages, 6)
	for i := 0; i < 5; i++ {
		require.Equal(t, fmt.Sprintf("msg-%d", i), session.Messages[i+1].Text)
	}
}

func TestNewSessionSeedsAndActivates(t *testing.T) {
	store := seededStore(t)
	require.NoError(t, store.Append("p", NewMessage(RoleUser, "oi")))

	session, err := store.NewSession("p")
	require.NoError(t, err)
	require.Len(t, session.Messages, 1)
	require.Equal(t, "greeting", session.Messages[0].Text)

	index, err := store.ActiveIndex("p")
	require.NoError(t, err)
	require.Equal(t, 1, index)

	sessions, err := store.Sessions("p")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	// each session has its own seed message identity
	require.NotEqual(t, sessions[0].Messages[0].ID, sessions[1].Messages[0].ID)
}

func TestSelectSessionOutOfRange(t *testing.T) {
	store := seededStore(t)

	err := store.SelectSession("p", 1)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrSessionOutOfRange))

	err = store.SelectSession("p", -1)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrSessionOutOfRange))

	require.NoError(t, store.SelectSession("p", 0))
}

func TestSelectSessionSwitchesAppendTarget(t *testing.T) {
	store := seededStore(t)
	_, err := store.NewSession("p")
	require.NoError(t, err)

	require.NoError(t, store.SelectSession("p", 0))
	require.NoError(t, store.Append("p", NewMessage(RoleUser, "na primeira")))

	sessions, err := store.Sessions("p")
	require.NoError(t, err)
	require.Len(t, sessions[0].Messages, 2)
	require.Len(t, sessions[1].Messages, 1)
}

func TestUnknownPersona(t *testing.T) {
	store := NewStore()

	_, err := store.ActiveSession("nope")
	require.True(t, errors.Is(err, ErrUnknownPersona))

	err = store.Append("nope", NewMessage(RoleUser, "oi"))
	require.True(t, errors.Is(err, ErrUnknownPersona))
}

func TestSnapshotsDoNotAliasLiveState(t *testing.T) {
	store := seededStore(t)

	session, err := store.ActiveSession("p")
	require.NoError(t, err)
	session.Messages = append(session.Messages, NewMessage(RoleUser, "intruso"))

	fresh, err := store.ActiveSession("p")
	require.NoError(t, err)
	require.Len(t, fresh.Messages, 1)
}

func TestConcurrentAppendsToDifferentPersonas(t *testing.T) {
	store := NewStore()
	personas := []string{"a", "b", "c", "d"}
	for _, id := range personas {
		store.Register(id, NewMessage(RoleModel, "greeting"))
	}

	const perPersona = 50
	wg := sync.WaitGroup{}
	for _, id := range personas {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perPersona; i++ {
				require.NoError(t, store.Append(id, NewMessage(RoleUser, fmt.Sprintf("%s-%d", id, i))))
			}
		}()
	}
	wg.Wait()

	for _, id := range personas {
		session, err := store.ActiveSession(id)
		require.NoError(t, err)
		require.Len(t, session.Messages, perPersona+1)
	}
}

func seededStore(t *testing.T) *StoreImpl {
	t.Helper()
	store := NewStore()
	store.Register("p", NewMessage(RoleModel, "greeting"))
	return store
}
