// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dalemusser/stratatrack/internal/app/store/localstate"
)

// DBDeps holds database and backend dependencies for this WAFFLE app.
//
// This struct is created in ConnectDB and passed to subsequent lifecycle
// hooks: EnsureSchema, Startup, BuildHandler, and Shutdown.
//
// The SQLite local store is always present; the MongoDB fields are nil
// when no live document is configured, and every consumer must tolerate
// that — the app is designed to run fully offline.
type DBDeps struct {
	// Local SQLite state store (always present)
	Local *localstate.Store

	// MongoDB client and database for the live document (nil when live
	// sync is disabled)
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
}

// LiveEnabled reports whether a live document backend was connected.
func (d DBDeps) LiveEnabled() bool { return d.MongoDatabase != nil }
