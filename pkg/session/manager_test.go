package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/nodegraph/pkg/adapters/memory"
	"github.com/aretw0/nodegraph/pkg/dialog"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/dsl"
	"github.com/aretw0/nodegraph/pkg/ports"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/aretw0/nodegraph/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data map[string]*domain.SessionState
	mu   sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, sessionID string, state *domain.SessionState) error {
	time.Sleep(10 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.SessionState)
	}
	s.data[sessionID] = state.Clone()
	return nil
}

func (s *SlowStore) Load(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	time.Sleep(10 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.data[sessionID]; ok {
		return state.Clone(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

func TestManager_ReadModifyWriteIsSerialized(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	_, err := manager.LoadOrStart(ctx, id)
	require.NoError(t, err)

	var wg sync.WaitGroup
	const writers = 10
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.WithLock(ctx, id, func(ctx context.Context) error {
				state, err := store.Load(ctx, id)
				if err != nil {
					return err
				}
				n, _ := state.Blackboards[0]["count"].(int)
				state.Blackboards[0] = map[string]any{"count": n + 1}
				return store.Save(ctx, id, state)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, writers, state.Blackboards[0]["count"], "no update is lost")
}

func TestManager_LoadOrStart(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state, err := manager.LoadOrStart(ctx, id)
			assert.NoError(t, err)
			assert.NotNil(t, state)
		}()
	}
	wg.Wait()

	state, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, state.SessionID)
	assert.False(t, state.UpdatedAt.IsZero())
}

func dialogGraph(t *testing.T) *domain.Graph {
	reg := registry.NewRegistry()
	dialog.Register(reg)

	b := dsl.New("talk")
	b.Start("hello", 1, "Hi").Go("ask")
	b.Ask("ask", "Tea?", "yes", "no").Option(0, "remember").Option(1, "bye")
	b.Set("remember", "tea", true).Go("thanks")
	b.Say("thanks", "Brewing.").Go("done")
	b.End("done", "")
	b.End("bye", "")

	g, err := b.Build(reg, nil)
	require.NoError(t, err)
	return g
}

func TestManager_Resume(t *testing.T) {
	ctx := context.Background()
	g := dialogGraph(t)
	manager := session.NewManager(memory.NewStore())

	err := manager.Resume(ctx, "alice", g, func(ctx context.Context, s *dialog.Session) error {
		if _, err := s.Activate(ctx, 1, false); err != nil {
			return err
		}
		_, err := s.Input(ctx, 1, dialog.Next)
		return err
	})
	require.NoError(t, err)

	state, err := manager.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "ask", state.Active[1])

	// A later request picks up where the first left off.
	err = manager.Resume(ctx, "alice", g, func(ctx context.Context, s *dialog.Session) error {
		_, err := s.Input(ctx, 1, 0)
		return err
	})
	require.NoError(t, err)

	state, err = manager.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "thanks", state.Active[1])
	assert.Equal(t, true, state.Blackboards[1]["tea"])

	_, err = manager.Load(ctx, "bob")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "sessions are independent")
}

func TestManager_ResumeFailureSavesNothing(t *testing.T) {
	ctx := context.Background()
	g := dialogGraph(t)
	manager := session.NewManager(memory.NewStore())
	boom := errors.New("boom")

	err := manager.Resume(ctx, "s", g, func(ctx context.Context, s *dialog.Session) error {
		_, _ = s.Activate(ctx, 1, false)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = manager.Load(ctx, "s")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_ResumeStaleState(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	state := domain.NewSessionState("s")
	state.Active[1] = "removed-node"
	require.NoError(t, store.Save(ctx, "s", state))

	manager := session.NewManager(store)
	err := manager.Resume(ctx, "s", dialogGraph(t), func(context.Context, *dialog.Session) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

type countingLocker struct {
	mu       sync.Mutex
	locks    int
	unlocks  int
	lastTTL  time.Duration
	failWith error
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return nil, l.failWith
	}
	l.locks++
	l.lastTTL = ttl
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocks++
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	ctx := context.Background()
	locker := &countingLocker{}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(time.Second))

	require.NoError(t, manager.Save(ctx, "s", domain.NewSessionState("s")))
	require.NoError(t, manager.Delete(ctx, "s"))
	assert.Equal(t, 2, locker.locks)
	assert.Equal(t, 2, locker.unlocks)
	assert.Equal(t, time.Second, locker.lastTTL)

	locker.failWith = errors.New("busy")
	err := manager.Save(ctx, "s", domain.NewSessionState("s"))
	assert.ErrorIs(t, err, locker.failWith)
}
