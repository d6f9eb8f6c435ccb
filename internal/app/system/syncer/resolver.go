package syncer

import (
	"github.com/dalemusser/stratatrack/internal/app/store/localstate"
	"github.com/dalemusser/stratatrack/internal/app/system/tracker"
)

// Resolver maps a session identity to the tracker its requests operate on:
// the account's own writable tracker, or the shared read-only live mirror.
// It is shared by every HTTP feature that serves tracker state.
type Resolver struct {
	Manager *tracker.Manager
	Mirror  *tracker.Tracker
	Store   *localstate.Store
}

// Choice returns the account's stored data-source selection, defaulting to
// local when unset or invalid.
func (rv *Resolver) Choice(uid string) DataSource {
	if v, ok := rv.Store.Get(uid, localstate.KeyDataSource); ok && ValidSource(DataSource(v)) {
		return DataSource(v)
	}
	return SourceLocal
}

// SetChoice persists a data-source selection for the account.
func (rv *Resolver) SetChoice(uid string, s DataSource) {
	rv.Store.Set(uid, localstate.KeyDataSource, string(s))
}

// For resolves the effective tracker and mode for an identity.
func (rv *Resolver) For(uid string, role Role) (*tracker.Tracker, Mode) {
	mode := Resolve(role, rv.Choice(uid))
	if mode.Source == SourceLive {
		return rv.Mirror, mode
	}
	return rv.Manager.Get(uid), mode
}
