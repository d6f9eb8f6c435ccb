// Package syncer reconciles the admin's private tracker with the shared live
// document. It owns the role/data-source mode table, the process-wide remote
// subscription feeding the live mirror, and the debounced, guarded publish
// path that keeps the remote document from being clobbered by stale or empty
// local state.
package syncer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dalemusser/stratatrack/internal/app/store/livedoc"
	"github.com/dalemusser/stratatrack/internal/app/system/tracker"
	"github.com/dalemusser/stratatrack/internal/domain/timegrid"
)

// Role is a session's resolved sync role.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleAdmin  Role = "admin"
)

// DataSource is a viewer's storage choice. Admin sessions ignore it.
type DataSource string

const (
	SourceLocal DataSource = "local"
	SourceLive  DataSource = "live"
)

// ValidSource reports whether s is a selectable data source.
func ValidSource(s DataSource) bool { return s == SourceLocal || s == SourceLive }

// Mode is the effective session mode resolved from role and data source.
type Mode struct {
	Source    DataSource
	Writable  bool
	Publishes bool
}

// Resolve maps {role, dataSourceChoice} to the effective mode. The admin is
// always pinned to their private tracker with auto-publish; viewers choose
// between their own writable tracker and a read-only view of the live
// document.
func Resolve(role Role, choice DataSource) Mode {
	if role == RoleAdmin {
		return Mode{Source: SourceLocal, Writable: true, Publishes: true}
	}
	if choice == SourceLive {
		return Mode{Source: SourceLive, Writable: false}
	}
	return Mode{Source: SourceLocal, Writable: true}
}

// Remote is the shared-document backend: merge-style publish plus a blocking
// change subscription. *livedoc.Store implements it.
type Remote interface {
	Publish(ctx context.Context, b timegrid.Bundle) error
	Watch(ctx context.Context, fn func(*livedoc.Document))
}

// DefaultDebounce coalesces rapid edits into one publish.
const DefaultDebounce = 600 * time.Millisecond

// Coordinator mediates between the admin tracker and the remote document.
// One instance runs per process: the single remote subscription it holds
// serves both the admin (authoritative inbound snapshots, seed-on-empty) and
// every viewer in live mode (via the read-only mirror tracker).
type Coordinator struct {
	remote   Remote
	admin    *tracker.Tracker
	mirror   *tracker.Tracker
	debounce time.Duration
	logger   *zap.Logger

	// persist saves the admin bundle after a seed, since ReplaceAll does not
	// fire the tracker's OnChange hook.
	persist func(timegrid.Bundle)

	mu             sync.Mutex
	timer          *time.Timer
	lastRemoteHash string
	lastRemote     timegrid.Bundle
	haveRemote     bool
	skipNext       bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a coordinator. mirror must be the read-only live-mirror
// tracker; persist may be nil. A non-positive debounce falls back to
// DefaultDebounce.
func New(remote Remote, admin, mirror *tracker.Tracker, debounce time.Duration, persist func(timegrid.Bundle), logger *zap.Logger) *Coordinator {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Coordinator{
		remote:   remote,
		admin:    admin,
		mirror:   mirror,
		debounce: debounce,
		persist:  persist,
		logger:   logger,
	}
}

// Start launches the remote subscription. It returns immediately; Stop tears
// the subscription down and cancels any pending publish.
func (c *Coordinator) Start(ctx context.Context) {
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		c.remote.Watch(c.ctx, c.handleRemote)
	}()
}

// Stop cancels the subscription and any pending debounced publish, then
// waits for the watch goroutine to exit.
func (c *Coordinator) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	if c.done != nil {
		<-c.done
	}
}

// NoteAdminResolved arms the one-shot skip-publish guard. The auth layer
// calls this when an admin session resolves, so whatever pre-login local
// state the debounce is about to flush cannot overwrite the remote document.
func (c *Coordinator) NoteAdminResolved() {
	c.mu.Lock()
	c.skipNext = true
	c.mu.Unlock()
}

// LastRemoteHash returns the content hash of the most recently received
// remote snapshot, or "" before the first delivery.
func (c *Coordinator) LastRemoteHash() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRemoteHash
}

// handleRemote applies one inbound snapshot: the mirror is overwritten
// wholesale (remote is authoritative for subscribers), the content hash is
// cached for the publish guard, and an empty admin tracker is seeded from
// the snapshot without publishing it back.
func (c *Coordinator) handleRemote(doc *livedoc.Document) {
	b := doc.Bundle().Normalize()
	hash := b.Hash()

	c.mirror.ReplaceAll(b)

	c.mu.Lock()
	c.lastRemote = b.Clone()
	c.lastRemoteHash = hash
	c.haveRemote = true
	c.mu.Unlock()

	c.logger.Debug("remote snapshot applied", zap.String("hash", hash))
	c.seedIfEmpty()
}

// seedIfEmpty copies the cached remote snapshot into the admin tracker when
// the admin's local bundle is entirely empty, arming the skip guard so the
// copy is not treated as a publishable change.
func (c *Coordinator) seedIfEmpty() {
	c.mu.Lock()
	if !c.haveRemote || c.lastRemote.IsEmpty() {
		c.mu.Unlock()
		return
	}
	seed := c.lastRemote.Clone()
	c.mu.Unlock()

	if !c.admin.Snapshot().IsEmpty() {
		return
	}

	c.mu.Lock()
	c.skipNext = true
	c.mu.Unlock()

	c.admin.ReplaceAll(seed)
	if c.persist != nil {
		c.persist(c.admin.Snapshot())
	}
	c.logger.Info("seeded empty local state from live document")
}

// LocalChanged is the admin tracker's change sink. Each call restarts the
// debounce timer, so only the last mutation in a burst triggers a publish
// attempt.
func (c *Coordinator) LocalChanged(timegrid.Bundle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, c.publish)
}

// Flush runs any pending publish immediately. Shutdown calls it so the last
// edits of a session are not lost to the debounce window.
func (c *Coordinator) Flush() {
	c.mu.Lock()
	pending := c.timer != nil && c.timer.Stop()
	c.timer = nil
	c.mu.Unlock()
	if pending {
		c.publish()
	}
}

// publish snapshots the admin tracker and writes it to the remote document,
// unless a guard blocks it: the one-shot skip guard (consumed either way),
// an empty bundle, or a content hash equal to the last-known remote hash.
// Failures are logged; the next qualifying mutation retries naturally.
func (c *Coordinator) publish() {
	snap := c.admin.Snapshot()
	hash := snap.Hash()

	c.mu.Lock()
	if c.skipNext {
		c.skipNext = false
		c.mu.Unlock()
		c.logger.Debug("publish skipped by one-shot guard")
		return
	}
	if snap.IsEmpty() {
		c.mu.Unlock()
		c.logger.Debug("publish skipped: empty bundle")
		return
	}
	if hash == c.lastRemoteHash {
		c.mu.Unlock()
		c.logger.Debug("publish skipped: no change since last remote snapshot")
		return
	}
	c.mu.Unlock()

	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	pubCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := c.remote.Publish(pubCtx, snap); err != nil {
		c.logger.Warn("live document publish failed", zap.Error(err))
		return
	}

	// Cache the outbound hash so the change-stream echo of our own write
	// does not look like a new remote state, and an immediate identical
	// recompute does not publish again.
	c.mu.Lock()
	c.lastRemoteHash = hash
	c.mu.Unlock()
	c.logger.Debug("published to live document", zap.String("hash", hash))
}
