package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/ports"
)

// DefaultLockTTL is the expiry of a distributed lock when none is configured.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the per-conversation semaphore and its reference count.
type lockEntry struct {
	sem  chan struct{}
	refs int
}

// Manager orchestrates conversation access, ensuring safe concurrent operations.
// Unused lock entries are garbage collected by reference counting.
type Manager struct {
	store ports.StateStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry passed to the distributed locker.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager backed by store.
func NewManager(store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// Every acquire must be paired with release.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[id]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[id]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// WithLock runs fn while holding the lock for the conversation. Waiting for the
// lock honours ctx; giving up returns an error wrapping domain.ErrLockTimeout.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	if err := domain.ValidateConversationID(id); err != nil {
		return err
	}

	entry := m.acquire(id)
	defer m.release(id)

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", domain.ErrLockTimeout, ctx.Err())
	}
	defer func() { <-entry.sem }()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// The caller's context may already be done; release on a fresh one.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("failed to release distributed lock, it will expire via TTL",
					"conversation_id", id,
					"error", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Update loads the conversation (or starts a fresh one), hands it to fn and
// saves the result, all under the conversation lock. The state is saved even
// when fn fails; fn's error takes precedence over a save error.
func (m *Manager) Update(ctx context.Context, id string, fn func(ctx context.Context, st *domain.State) error) (*domain.State, error) {
	var state *domain.State
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, id)
		switch {
		case errors.Is(err, domain.ErrConversationNotFound):
			state = domain.NewState(id)
		case err != nil:
			return fmt.Errorf("failed to load conversation: %w", err)
		}

		runErr := fn(ctx, state)

		if err := m.store.Save(context.WithoutCancel(ctx), id, state); err != nil {
			if runErr != nil {
				m.logger.Error("failed to save conversation after error", "conversation_id", id, "error", err)
				return runErr
			}
			return fmt.Errorf("failed to save conversation: %w", err)
		}
		return runErr
	})
	return state, err
}

// Load retrieves an existing conversation.
func (m *Manager) Load(ctx context.Context, id string) (*domain.State, error) {
	var state *domain.State
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, id)
		return err
	})
	return state, err
}

// Save persists the conversation state.
func (m *Manager) Save(ctx context.Context, id string, state *domain.State) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Save(ctx, id, state)
	})
}

// Delete removes the conversation from the store.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Delete(ctx, id)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore {
	return m.store
}
