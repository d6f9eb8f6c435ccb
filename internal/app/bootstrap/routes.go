// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	adminapifeature "github.com/dalemusser/stratatrack/internal/app/features/adminapi"
	authgooglefeature "github.com/dalemusser/stratatrack/internal/app/features/authgoogle"
	happinessfeature "github.com/dalemusser/stratatrack/internal/app/features/happiness"
	healthfeature "github.com/dalemusser/stratatrack/internal/app/features/health"
	pomodorofeature "github.com/dalemusser/stratatrack/internal/app/features/pomodoro"
	reportsfeature "github.com/dalemusser/stratatrack/internal/app/features/reports"
	syncapifeature "github.com/dalemusser/stratatrack/internal/app/features/syncapi"
	trackerapifeature "github.com/dalemusser/stratatrack/internal/app/features/trackerapi"
	"github.com/dalemusser/stratatrack/internal/app/store/oauthstate"
	"github.com/dalemusser/stratatrack/internal/app/system/auth"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed, so the service layer globals built in
// Startup are available here.
//
// The route surface is a JSON API consumed by the single-page client:
//   - /api/tracker/*   activity grid, totals, patterns, export/import
//   - /api/reports/*   weekly/monthly/yearly rollups, pattern analysis
//   - /api/pomodoro/*  countdown timer
//   - /api/happiness/* daily checklist
//   - /api/sync/*      sync status and data-source switch
//   - /api/admin/*     admin-only operations (manual job runs)
//   - /auth/google/*   optional Google sign-in (resolves the admin role)
//   - /health, /healthz, /readyz, /livez
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(
		appCfg.SessionKey,
		appCfg.SessionName,
		appCfg.SessionDomain,
		appCfg.AdminGoogleUID,
		appCfg.AdminEmail,
		appCfg.SessionMaxAge,
		secure,
		logger,
	)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()

	// Request timeout middleware: prevents requests from hanging indefinitely.
	r.Use(chimw.Timeout(30 * time.Second))

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Identity middleware: every request gets a session identity, minting an
	// anonymous viewer cookie on first contact.
	r.Use(sessionMgr.EnsureIdentity)

	// CSRF protection with a path-based exemption for the JSON API. The API
	// is same-origin JavaScript carrying the session cookie; the client sends
	// no CSRF token, and the SameSite=Lax cookie plus JSON content type cover
	// the cross-site form case the token exists for.
	csrfOpts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("stratatrack_csrf"),
		csrf.FieldName("csrf_token"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Warn("CSRF validation failed",
				zap.String("path", req.URL.Path),
				zap.String("method", req.Method),
				zap.String("reason", csrf.FailureReason(req).Error()),
			)
			http.Error(w, "CSRF token invalid or missing", http.StatusForbidden)
		})),
	}
	if !secure {
		csrfOpts = append(csrfOpts, csrf.TrustedOrigins([]string{
			"localhost:8080",
			"localhost:3000",
			"127.0.0.1:8080",
			"127.0.0.1:3000",
		}))
	}
	if appCfg.SessionDomain != "" {
		csrfOpts = append(csrfOpts, csrf.Domain(appCfg.SessionDomain))
	}
	csrfProtect := csrf.Protect([]byte(appCfg.CSRFKey), csrfOpts...)
	r.Use(func(next http.Handler) http.Handler {
		csrfHandler := csrfProtect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if len(req.URL.Path) >= 5 && req.URL.Path[:5] == "/api/" {
				next.ServeHTTP(w, req)
				return
			}
			csrfHandler.ServeHTTP(w, req)
		})
	})

	// Health check endpoints for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Local, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// Tracker state API
	trackerHandler := trackerapifeature.NewHandler(trackerResolver, logger)
	r.Mount("/api/tracker", trackerapifeature.Routes(trackerHandler))

	// Reports API
	reportsHandler := reportsfeature.NewHandler(trackerResolver, logger)
	r.Mount("/api/reports", reportsfeature.Routes(reportsHandler))

	// Pomodoro timer API
	pomodoroHandler := pomodorofeature.NewHandler(pomodoroManager, logger)
	r.Mount("/api/pomodoro", pomodorofeature.Routes(pomodoroHandler))

	// Happiness checklist API
	happinessHandler := happinessfeature.NewHandler(happinessManager, logger)
	r.Mount("/api/happiness", happinessfeature.Routes(happinessHandler))

	// Sync status and data-source switch
	syncHandler := syncapifeature.NewHandler(trackerResolver, coordinator, logger)
	r.Mount("/api/sync", syncapifeature.Routes(syncHandler))

	// Admin-only operational endpoints (manual job runs)
	adminHandler := adminapifeature.NewHandler(taskRunner, logger)
	r.Mount("/api/admin", adminapifeature.Routes(adminHandler, sessionMgr.RequireAdmin))

	// Google OAuth (only mount if configured; requires the oauth state
	// collection, so it also needs the MongoDB backend)
	googleEnabled := appCfg.GoogleClientID != "" && appCfg.GoogleClientSecret != "" && deps.LiveEnabled()
	if googleEnabled {
		oauthStateStore := oauthstate.New(deps.MongoDatabase)
		googleHandler := authgooglefeature.NewHandler(
			sessionMgr,
			oauthStateStore,
			coordinator,
			appCfg.GoogleClientID,
			appCfg.GoogleClientSecret,
			appCfg.BaseURL,
			logger,
		)
		r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
		r.Get("/logout", googleHandler.Logout)
		logger.Info("Google OAuth enabled", zap.String("redirect_url", appCfg.BaseURL+"/auth/google/callback"))
	}

	// Static assets (the built single-page client) with pre-compressed file
	// support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "static"))

	return r, nil
}
