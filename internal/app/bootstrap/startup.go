// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"

	"github.com/dalemusser/stratatrack/internal/app/store/livedoc"
	"github.com/dalemusser/stratatrack/internal/app/system/happiness"
	"github.com/dalemusser/stratatrack/internal/app/system/notify"
	"github.com/dalemusser/stratatrack/internal/app/system/pomodoro"
	"github.com/dalemusser/stratatrack/internal/app/system/syncer"
	"github.com/dalemusser/stratatrack/internal/app/system/tasks"
	"github.com/dalemusser/stratatrack/internal/app/system/tracker"
	"github.com/dalemusser/stratatrack/internal/domain/timegrid"
)

// Long-lived application services built during Startup and used by
// BuildHandler and Shutdown. The WAFFLE lifecycle runs these hooks once
// and in order, so plain package variables are sufficient.
var (
	trackerResolver  *syncer.Resolver
	coordinator      *syncer.Coordinator
	pomodoroManager  *pomodoro.Manager
	happinessManager *happiness.Manager
	taskRunner       *tasks.Runner
)

// Startup runs once after DB connections and schema setup are complete,
// but before the HTTP handler is built and requests are served.
//
// It builds the in-memory service layer: the per-account tracker manager
// and the shared live mirror, the sync coordinator (when a live document
// is configured), the pomodoro and happiness managers, and the scheduled
// backup jobs.
//
// Returning a non-nil error will abort startup and prevent the server
// from starting.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	manager := tracker.NewManager(deps.Local, logger)
	mirror := tracker.NewReadOnly()
	trackerResolver = &syncer.Resolver{
		Manager: manager,
		Mirror:  mirror,
		Store:   deps.Local,
	}

	notifier, err := notify.NewTelegram(appCfg.TelegramBotToken, appCfg.TelegramChatID, logger)
	if err != nil {
		logger.Error("telegram notifier init failed", zap.Error(err))
		return err
	}
	if notifier != nil {
		logger.Info("telegram notifications enabled")
	}

	pomodoroManager = pomodoro.NewManager(deps.Local, notifier, logger)
	happinessManager = happiness.NewManager(deps.Local, logger)

	if deps.LiveEnabled() {
		if err := startCoordinator(ctx, appCfg, deps, manager, mirror, logger); err != nil {
			return err
		}
	}

	startTaskRunner(appCfg, deps, logger)
	return nil
}

// startCoordinator wires the admin tracker to the live document: inbound
// changes feed the shared mirror, and the admin's local edits are published
// back (debounced and guarded).
func startCoordinator(ctx context.Context, appCfg AppConfig, deps DBDeps, manager *tracker.Manager, mirror *tracker.Tracker, logger *zap.Logger) error {
	live := livedoc.New(deps.MongoDatabase, appCfg.LiveDocID, logger)

	adminUID := appCfg.AdminGoogleUID
	admin := manager.Get(adminUID)

	persist := func(b timegrid.Bundle) {
		deps.Local.SaveBundle(adminUID, b)
	}
	coordinator = syncer.New(live, admin, mirror, appCfg.PublishDebounce, persist, logger)

	// Route the admin's tracker commits into the debounced publish path.
	// Other accounts' edits stay local.
	manager.SetChangeSink(func(owner string, b timegrid.Bundle) {
		if owner == adminUID {
			coordinator.LocalChanged(b)
		}
	})

	// The subscription outlives the Startup hook's context.
	coordinator.Start(context.Background())
	logger.Info("live document sync started",
		zap.String("doc_id", appCfg.LiveDocID),
		zap.Duration("publish_debounce", appCfg.PublishDebounce))
	return nil
}

// startTaskRunner initializes and starts the scheduled background jobs.
func startTaskRunner(appCfg AppConfig, deps DBDeps, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	if appCfg.BackupDir != "" {
		taskRunner.Register(tasks.BundleBackupJob(deps.Local, appCfg.BackupDir, appCfg.BackupSchedule, logger))
		if deps.LiveEnabled() {
			live := livedoc.New(deps.MongoDatabase, appCfg.LiveDocID, logger)
			taskRunner.Register(tasks.LiveDocBackupJob(live, appCfg.BackupDir, appCfg.BackupSchedule, logger))
		}
		taskRunner.Register(tasks.BackupPruneJob(appCfg.BackupDir, appCfg.BackupKeepDays, appCfg.BackupSchedule, logger))
	}

	if err := taskRunner.Start(); err != nil {
		// A bad schedule should not keep the app from serving; backups
		// just will not run.
		logger.Error("task runner failed to start", zap.Error(err))
	}
}
