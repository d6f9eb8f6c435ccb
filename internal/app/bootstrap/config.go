// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "STRATATRACK"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: sqlite_path, live_doc_id, etc.
//   - Environment variables: STRATATRACK_SQLITE_PATH, STRATATRACK_LIVE_DOC_ID, etc.
//   - Command-line flags: --sqlite_path, --live_doc_id, etc.
var appConfigKeys = []config.AppKey{
	{Name: "sqlite_path", Default: "./data/stratatrack.db", Desc: "Path to the SQLite local state database"},

	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI (used when live_doc_id is set)"},
	{Name: "mongo_database", Default: "stratatrack", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Live document sync
	{Name: "live_doc_id", Default: "", Desc: "Shared live document ID (blank disables live sync)"},
	{Name: "publish_debounce", Default: "600ms", Desc: "Debounce window before publishing local edits"},

	// Admin identity
	{Name: "admin_google_uid", Default: "", Desc: "Google subject (sub) of the admin account"},
	{Name: "admin_email", Default: "", Desc: "Admin email (case-insensitive fallback match)"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "stratatrack-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie max age (e.g., 24h, 720h)"},

	{Name: "csrf_key", Default: "dev-only-csrf-key-please-change-0123456789", Desc: "CSRF token signing key (32+ chars in production)"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	// Base URL for OAuth redirects
	{Name: "base_url", Default: "http://localhost:8080", Desc: "Base URL for OAuth redirects"},

	// Telegram notifications
	{Name: "telegram_bot_token", Default: "", Desc: "Telegram bot token for pomodoro notifications (blank disables)"},
	{Name: "telegram_chat_id", Default: "", Desc: "Telegram chat ID to notify"},

	// Scheduled backups
	{Name: "backup_dir", Default: "", Desc: "Directory for scheduled JSON backups (blank disables)"},
	{Name: "backup_schedule", Default: "30 3 * * *", Desc: "Cron expression for the backup job"},
	{Name: "backup_keep_days", Default: 30, Desc: "Days of backup files to retain"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, STRATATRACK_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	var chatID int64
	if raw := appValues.String("telegram_chat_id"); raw != "" {
		chatID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, AppConfig{}, fmt.Errorf("invalid telegram_chat_id %q: %w", raw, err)
		}
	}

	appCfg := AppConfig{
		SQLitePath: appValues.String("sqlite_path"),

		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		LiveDocID:       appValues.String("live_doc_id"),
		PublishDebounce: appValues.Duration("publish_debounce", 600*time.Millisecond),

		AdminGoogleUID: appValues.String("admin_google_uid"),
		AdminEmail:     appValues.String("admin_email"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 720*time.Hour),

		CSRFKey: appValues.String("csrf_key"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		BaseURL: appValues.String("base_url"),

		TelegramBotToken: appValues.String("telegram_bot_token"),
		TelegramChatID:   chatID,

		BackupDir:      appValues.String("backup_dir"),
		BackupSchedule: appValues.String("backup_schedule"),
		BackupKeepDays: appValues.Int("backup_keep_days"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Live sync is optional: the MongoDB settings are only validated when a
// live document is configured.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if appCfg.SQLitePath == "" {
		return fmt.Errorf("sqlite_path must not be empty")
	}

	if appCfg.LiveDocID != "" {
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if appCfg.AdminGoogleUID == "" && appCfg.AdminEmail == "" {
			return fmt.Errorf("live_doc_id is set but no admin identity is configured (admin_google_uid or admin_email)")
		}
		if appCfg.AdminGoogleUID == "" {
			// The admin tracker is keyed by Google UID; without it the
			// coordinator cannot know whose edits to publish.
			return fmt.Errorf("live sync requires admin_google_uid")
		}
	}

	if appCfg.TelegramBotToken != "" && appCfg.TelegramChatID == 0 {
		return fmt.Errorf("telegram_bot_token is set but telegram_chat_id is not")
	}

	return nil
}
