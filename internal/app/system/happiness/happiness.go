// Package happiness manages the per-identity habit checklist: a short
// ordered list of habit labels and a per-day boolean completion vector
// aligned to it by position. Checklist data is local-only and never synced
// to the live document.
package happiness

import (
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/dalemusser/stratatrack/internal/app/store/localstate"
	"github.com/dalemusser/stratatrack/internal/domain/timegrid"
)

// MaxItems caps the checklist length.
const MaxItems = 6

var (
	// ErrTooManyItems rejects checklists longer than MaxItems.
	ErrTooManyItems = errors.New("checklist is limited to 6 items")

	// ErrStatusMismatch rejects a status vector whose length does not match
	// the current checklist.
	ErrStatusMismatch = errors.New("status length does not match checklist")
)

// Tracker is one identity's checklist state, persisted write-through.
type Tracker struct {
	owner  string
	store  *localstate.Store
	logger *zap.Logger

	mu     sync.Mutex
	items  []string
	status map[timegrid.DayKey][]bool
}

// Manager hands out per-identity checklist trackers.
type Manager struct {
	store  *localstate.Store
	logger *zap.Logger

	mu       sync.Mutex
	trackers map[string]*Tracker
}

func NewManager(store *localstate.Store, logger *zap.Logger) *Manager {
	return &Manager{store: store, logger: logger, trackers: map[string]*Tracker{}}
}

// Get returns owner's checklist tracker, hydrating from the local store on
// first access. Corrupt or absent keys hydrate as empty.
func (m *Manager) Get(owner string) *Tracker {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.trackers[owner]; ok {
		return t
	}
	t := &Tracker{owner: owner, store: m.store, logger: m.logger}
	m.store.GetJSON(owner, localstate.KeyHappinessItems, &t.items)
	m.store.GetJSON(owner, localstate.KeyHappinessState, &t.status)
	if t.status == nil {
		t.status = map[timegrid.DayKey][]bool{}
	}
	if len(t.items) > MaxItems {
		t.items = t.items[:MaxItems]
	}
	m.trackers[owner] = t
	return t
}

// Items returns the checklist labels in order.
func (t *Tracker) Items() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.items...)
}

// SetItems replaces the checklist. Blank labels are dropped; at most
// MaxItems survive. Day statuses are re-aligned to the new length (truncated
// or zero-padded) rather than discarded, since positional history is all the
// model keeps.
func (t *Tracker) SetItems(items []string) error {
	var clean []string
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			clean = append(clean, s)
		}
	}
	if len(clean) > MaxItems {
		return ErrTooManyItems
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = clean
	for day, v := range t.status {
		t.status[day] = alignStatus(v, len(clean))
	}
	t.persistLocked()
	return nil
}

// Status returns the completion vector for day, zero-padded to the checklist
// length.
func (t *Tracker) Status(day timegrid.DayKey) []bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return alignStatus(t.status[day], len(t.items))
}

// SetStatus records the full completion vector for day. The vector length
// must match the checklist exactly.
func (t *Tracker) SetStatus(day timegrid.DayKey, v []bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(v) != len(t.items) {
		return ErrStatusMismatch
	}
	t.status[day] = append([]bool(nil), v...)
	t.persistLocked()
	return nil
}

// Toggle flips one position of day's vector and returns the updated vector.
func (t *Tracker) Toggle(day timegrid.DayKey, index int) ([]bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.items) {
		return nil, ErrStatusMismatch
	}
	v := alignStatus(t.status[day], len(t.items))
	v[index] = !v[index]
	t.status[day] = v
	t.persistLocked()
	return append([]bool(nil), v...), nil
}

// Summary counts, per checklist position, how many recorded days completed
// that habit.
func (t *Tracker) Summary() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	counts := make([]int, len(t.items))
	for _, v := range t.status {
		for i := 0; i < len(counts) && i < len(v); i++ {
			if v[i] {
				counts[i]++
			}
		}
	}
	return counts
}

// persistLocked writes both keys through to the local store. Caller holds
// t.mu.
func (t *Tracker) persistLocked() {
	t.store.SetJSON(t.owner, localstate.KeyHappinessItems, t.items)
	t.store.SetJSON(t.owner, localstate.KeyHappinessState, t.status)
}

// alignStatus truncates or zero-pads v to length n.
func alignStatus(v []bool, n int) []bool {
	out := make([]bool, n)
	copy(out, v)
	return out
}
