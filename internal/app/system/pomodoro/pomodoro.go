// Package pomodoro runs per-identity focus timers. A timer is anchored on an
// absolute wall-clock end time rather than a decrementing counter, so its
// remaining duration survives restarts without drift; pausing converts the
// anchor into a frozen remaining duration and resuming converts it back.
package pomodoro

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dalemusser/stratatrack/internal/app/store/localstate"
)

// Input clamps.
const (
	MaxHours   = 10
	MaxMinutes = 59
)

// State is the persisted timer state. EndAt is authoritative while running
// and unpaused; RemainingMS is authoritative while paused. TotalMS is the
// configured duration, kept so clients can render progress after a reload.
// The zero State is an idle timer.
type State struct {
	Running     bool   `json:"isRunning"`
	Paused      bool   `json:"isPaused"`
	EndAt       int64  `json:"endAt,omitempty"`
	RemainingMS int64  `json:"remainingMs,omitempty"`
	TotalMS     int64  `json:"totalMs,omitempty"`
	Task        string `json:"task,omitempty"`
}

// Notifier receives the one-shot expiry signal. Implementations must not
// block; delivery failures are the notifier's problem.
type Notifier interface {
	TimerExpired(owner, task string)
}

// Timer is one identity's pomodoro timer.
type Timer struct {
	owner    string
	store    *localstate.Store
	notifier Notifier
	logger   *zap.Logger

	now      func() time.Time
	tickStep time.Duration

	mu    sync.Mutex
	state State
	stop  chan struct{}
}

// Manager hands out per-identity timers, hydrating each from the local store
// on first access.
type Manager struct {
	store    *localstate.Store
	notifier Notifier
	logger   *zap.Logger

	mu     sync.Mutex
	timers map[string]*Timer
}

// NewManager creates a timer manager. notifier may be nil.
func NewManager(store *localstate.Store, notifier Notifier, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		notifier: notifier,
		logger:   logger,
		timers:   map[string]*Timer{},
	}
}

// Get returns the timer for owner, loading persisted state on first access.
// A timer whose end time has already passed while the process was down comes
// back idle.
func (m *Manager) Get(owner string) *Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.timers[owner]; ok {
		return t
	}
	t := &Timer{
		owner:    owner,
		store:    m.store,
		notifier: m.notifier,
		logger:   m.logger,
		now:      time.Now,
		tickStep: time.Second,
	}
	t.load()
	m.timers[owner] = t
	return t
}

// StopAll halts every running ticker. Called on shutdown; persisted state is
// already current, so restarting resumes where time actually is.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.timers {
		t.mu.Lock()
		t.stopTickerLocked()
		t.mu.Unlock()
	}
}

// SetClock overrides the time source and tick interval, for tests.
func (t *Timer) SetClock(now func() time.Time, step time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
	t.tickStep = step
}

// load hydrates from the local store and expires stale anchors. A running
// timer whose end time passed while we were away resets without notifying —
// the expiry happened in the past, not now.
func (t *Timer) load() {
	var s State
	if !t.store.GetJSON(t.owner, localstate.KeyPomodoro, &s) {
		return
	}
	if s.Running && !s.Paused && s.EndAt <= t.now().UnixMilli() {
		t.logger.Debug("pomodoro expired while offline", zap.String("owner", t.owner))
		s = State{}
		t.store.SetJSON(t.owner, localstate.KeyPomodoro, s)
	}
	t.state = s
	if t.state.Running && !t.state.Paused {
		t.startTickerLocked()
	}
}

// Start arms the timer for the given duration. Hours clamp to [0,10] and
// minutes to [0,59]; a zero total duration resets instead of arming.
func (t *Timer) Start(hours, minutes int, task string) State {
	if hours < 0 {
		hours = 0
	}
	if hours > MaxHours {
		hours = MaxHours
	}
	if minutes < 0 {
		minutes = 0
	}
	if minutes > MaxMinutes {
		minutes = MaxMinutes
	}
	d := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	if d == 0 {
		return t.Reset()
	}

	t.mu.Lock()
	t.stopTickerLocked()
	t.state = State{
		Running: true,
		EndAt:   t.now().Add(d).UnixMilli(),
		TotalMS: d.Milliseconds(),
		Task:    task,
	}
	t.persistLocked()
	t.startTickerLocked()
	s := t.state
	t.mu.Unlock()
	return s
}

// TogglePause freezes a running timer's remaining duration, or re-anchors a
// paused one onto the wall clock. Idle timers are unaffected.
func (t *Timer) TogglePause() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.Running {
		return t.state
	}
	if t.state.Paused {
		t.state.Paused = false
		t.state.EndAt = t.now().UnixMilli() + t.state.RemainingMS
		t.state.RemainingMS = 0
		t.persistLocked()
		t.startTickerLocked()
	} else {
		remaining := t.state.EndAt - t.now().UnixMilli()
		if remaining < 0 {
			remaining = 0
		}
		t.state.Paused = true
		t.state.RemainingMS = remaining
		t.state.EndAt = 0
		t.persistLocked()
		t.stopTickerLocked()
	}
	return t.state
}

// Reset returns the timer to idle.
func (t *Timer) Reset() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopTickerLocked()
	t.state = State{}
	t.persistLocked()
	return t.state
}

// Snapshot returns the current state with RemainingMS filled in for display
// regardless of which field is authoritative.
func (t *Timer) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state
	if s.Running && !s.Paused {
		s.RemainingMS = s.EndAt - t.now().UnixMilli()
		if s.RemainingMS < 0 {
			s.RemainingMS = 0
		}
	}
	return s
}

// persistLocked writes the state through to the local store. Caller holds
// t.mu.
func (t *Timer) persistLocked() {
	t.store.SetJSON(t.owner, localstate.KeyPomodoro, t.state)
}

// startTickerLocked launches the 1-second expiry check loop. Caller holds
// t.mu. The loop only exists while the timer is running and unpaused.
func (t *Timer) startTickerLocked() {
	stop := make(chan struct{})
	t.stop = stop
	go func() {
		ticker := time.NewTicker(t.tickStep)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if t.checkExpiry() {
					return
				}
			}
		}
	}()
}

// stopTickerLocked cancels the expiry loop if one is running. Caller holds
// t.mu.
func (t *Timer) stopTickerLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

// checkExpiry resets the timer and fires the one-shot notification once the
// anchor passes. It reports whether the timer expired (ending the loop).
func (t *Timer) checkExpiry() bool {
	t.mu.Lock()
	if !t.state.Running || t.state.Paused || t.state.EndAt > t.now().UnixMilli() {
		t.mu.Unlock()
		return false
	}
	task := t.state.Task
	t.stopTickerLocked()
	t.state = State{}
	t.persistLocked()
	t.mu.Unlock()

	t.logger.Info("pomodoro finished",
		zap.String("owner", t.owner), zap.String("task", task))
	if t.notifier != nil {
		t.notifier.TimerExpired(t.owner, task)
	}
	return true
}
