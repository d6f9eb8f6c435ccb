// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"

	"github.com/dalemusser/stratatrack/internal/app/store/localstate"
	"github.com/dalemusser/stratatrack/internal/app/store/oauthstate"
)

// ConnectDB connects to the storage backends.
//
// WAFFLE calls this after configuration is loaded but before EnsureSchema
// and Startup. The SQLite local store always opens; MongoDB is connected
// only when a live document is configured, so the app starts fine with no
// network at all.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	local, err := localstate.Open(appCfg.SQLitePath, logger)
	if err != nil {
		return DBDeps{}, fmt.Errorf("opening local state database: %w", err)
	}
	logger.Info("opened local state database", zap.String("path", appCfg.SQLitePath))

	deps := DBDeps{Local: local}

	if appCfg.LiveDocID == "" {
		logger.Info("live document sync disabled (no live_doc_id configured)")
		return deps, nil
	}

	poolCfg := wafflemongo.DefaultPoolConfig()
	if appCfg.MongoMaxPoolSize > 0 {
		poolCfg.MaxPoolSize = appCfg.MongoMaxPoolSize
	}
	if appCfg.MongoMinPoolSize > 0 {
		poolCfg.MinPoolSize = appCfg.MongoMinPoolSize
	}

	client, err := wafflemongo.ConnectWithPool(ctx, appCfg.MongoURI, appCfg.MongoDatabase, poolCfg)
	if err != nil {
		local.Close()
		return DBDeps{}, err
	}

	deps.MongoClient = client
	deps.MongoDatabase = client.Database(appCfg.MongoDatabase)

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.String("live_doc_id", appCfg.LiveDocID),
		zap.Uint64("max_pool_size", poolCfg.MaxPoolSize),
		zap.Uint64("min_pool_size", poolCfg.MinPoolSize),
	)

	return deps, nil
}

// EnsureSchema sets up indexes or schema as needed.
//
// This runs after ConnectDB succeeds but before Startup and before the
// HTTP handler is built. The SQLite store creates its own tables on open;
// only the MongoDB collections need index setup here.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if !deps.LiveEnabled() {
		return nil
	}

	logger.Info("ensuring database indexes")
	if err := oauthstate.New(deps.MongoDatabase).EnsureIndexes(ctx); err != nil {
		logger.Error("failed to ensure oauth state indexes", zap.Error(err))
		return err
	}

	return nil
}
