package thread

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager drives the NoThread -> Active(id) state machine over a Store and
// serializes appends per thread id. Different threads never contend.
type Manager struct {
	store Store
	newID func() string
	now   func() time.Time
	locks *keyedMutex
}

// NewManager returns a Manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		newID: uuid.NewString,
		now:   time.Now,
		locks: newKeyedMutex(),
	}
}

// Start creates a thread and returns its id. No turns are appended.
func (m *Manager) Start(ctx context.Context) (string, error) {
	id := m.newID()
	if err := m.store.Create(ctx, id); err != nil {
		return "", fmt.Errorf("thread: create: %w", err)
	}
	return id, nil
}

// Continue checks that id denotes an existing thread. It returns
// ErrUnknownThread (wrapped) when the store has no record of it.
func (m *Manager) Continue(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrUnknownThread)
	}
	ok, err := m.store.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("thread: lookup %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownThread, id)
	}
	return nil
}

// Resolve starts a thread when id is empty and continues it otherwise.
func (m *Manager) Resolve(ctx context.Context, id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return m.Start(ctx)
	}
	if err := m.Continue(ctx, id); err != nil {
		return "", err
	}
	return strings.TrimSpace(id), nil
}

// AppendTurn adds turns to the end of thread id, holding the thread's lock for
// the whole batch so they stay adjacent.
func (m *Manager) AppendTurn(ctx context.Context, id string, turns ...Turn) error {
	unlock := m.locks.lock(id)
	defer unlock()
	for _, t := range turns {
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = m.now().UTC()
		}
		if err := m.store.Append(ctx, id, t); err != nil {
			return fmt.Errorf("thread: append to %s: %w", id, err)
		}
	}
	return nil
}

// History returns the thread's turns in order.
func (m *Manager) History(ctx context.Context, id string) ([]Turn, error) {
	turns, err := m.store.Turns(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("thread: history of %s: %w", id, err)
	}
	return turns, nil
}

// keyedMutex hands out one mutex per key and forgets it once no goroutine
// holds or waits for it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// size reports how many keys currently have a lock entry.
func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
