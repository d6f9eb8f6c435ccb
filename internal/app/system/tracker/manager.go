package tracker

import (
	"sync"

	"go.uber.org/zap"

	"github.com/dalemusser/stratatrack/internal/app/store/localstate"
	"github.com/dalemusser/stratatrack/internal/domain/timegrid"
)

// Manager hands out one Tracker per owner id, hydrated lazily from the local
// store. Committed mutations are mirrored back to the store and forwarded to
// the registered change sink (the sync coordinator).
type Manager struct {
	mu       sync.Mutex
	store    *localstate.Store
	logger   *zap.Logger
	trackers map[string]*Tracker

	// onChange, when set, receives every owner's committed snapshots.
	onChange func(owner string, b timegrid.Bundle)
}

// NewManager creates a tracker manager over the local store.
func NewManager(store *localstate.Store, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		logger:   logger,
		trackers: map[string]*Tracker{},
	}
}

// SetChangeSink registers the mutation sink. Must be called before trackers
// are handed out.
func (m *Manager) SetChangeSink(fn func(owner string, b timegrid.Bundle)) {
	m.onChange = fn
}

// Get returns the owner's tracker, creating and hydrating it on first use.
func (m *Manager) Get(owner string) *Tracker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.trackers[owner]; ok {
		return t
	}
	t := New(m.store.LoadBundle(owner))
	t.OnChange = func(b timegrid.Bundle) {
		m.store.SaveBundle(owner, b)
		if m.onChange != nil {
			m.onChange(owner, b)
		}
	}
	m.trackers[owner] = t
	m.logger.Debug("tracker hydrated", zap.String("owner", owner))
	return t
}

// Reload rehydrates an owner's tracker from the local store, discarding the
// in-memory state. Used when a viewer switches back to their private data
// source.
func (m *Manager) Reload(owner string) *Tracker {
	m.mu.Lock()
	t, ok := m.trackers[owner]
	m.mu.Unlock()

	if !ok {
		return m.Get(owner)
	}
	t.ReplaceAll(m.store.LoadBundle(owner))
	return t
}
