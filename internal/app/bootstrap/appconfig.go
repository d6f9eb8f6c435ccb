// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//   - Database connection timeouts
//
// AppConfig is where everything specific to this application lives: the
// local state database, the optional live document in MongoDB, the admin
// identity, and notification/backup settings.
type AppConfig struct {
	// Local state database (SQLite). This is the primary store; the app
	// runs fully offline on it.
	SQLitePath string // Path to the SQLite state file (e.g., ./data/stratatrack.db)

	// MongoDB live document configuration. Only used when LiveDocID is
	// set; leaving it blank disables live sync entirely.
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Live document sync configuration
	LiveDocID       string        // Document ID of the shared live document (blank disables sync)
	PublishDebounce time.Duration // Debounce window for publishing local edits (default: 600ms)

	// Admin identity. The admin is pinned to one Google account; everyone
	// else is a viewer.
	AdminGoogleUID string // Google subject (sub) of the admin account
	AdminEmail     string // Admin email, matched case-insensitively as a fallback

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: stratatrack-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Maximum session cookie lifetime (default: 720h)

	// CSRF protection configuration
	CSRFKey string // Secret key for CSRF token signing (32 bytes, must be strong in production)

	// Google OAuth configuration
	GoogleClientID     string // Google OAuth2 client ID
	GoogleClientSecret string // Google OAuth2 client secret

	// Base URL for OAuth redirects
	BaseURL string // e.g., "https://example.com" or "http://localhost:8080"

	// Telegram notification configuration (pomodoro expiry)
	TelegramBotToken string // Bot token; blank disables notifications
	TelegramChatID   int64  // Chat to notify

	// Backup configuration
	BackupDir      string // Directory for scheduled JSON backups (blank disables backups)
	BackupSchedule string // Cron expression for the backup job (default: daily at 03:30)
	BackupKeepDays int    // Days of backups to retain (default: 30)
}
