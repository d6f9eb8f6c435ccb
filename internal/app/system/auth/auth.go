// Package auth manages session identities. Every visitor gets one: signing
// in with Google yields a durable identity whose role is resolved against
// the configured admin UID/email, and everyone else gets an anonymous viewer
// identity with a generated id. The identity is self-contained in the signed
// session cookie; there is no user collection to consult per request.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/dalemusser/stratatrack/internal/app/system/syncer"
)

// Session error classification for logging and monitoring.
type sessionErrorType int

const (
	sessionErrUnknown sessionErrorType = iota
	sessionErrExpired                  // timestamp expired - normal
	sessionErrTampered                 // MAC invalid - potential attack
	sessionErrCorrupted                // decode/decrypt failed - corruption or key rotation
	sessionErrBackend                  // store/backend failure
)

// Session value keys.
const (
	uidKey       = "uid"
	emailKey     = "email"
	nameKey      = "name"
	roleKey      = "role"
	anonymousKey = "anonymous"
)

// SessionUser is the identity carried through the request context.
type SessionUser struct {
	UID       string // Google subject id, or a generated id for anonymous viewers
	Email     string
	Name      string
	Role      syncer.Role
	Anonymous bool
}

// IsAdmin reports whether this identity resolved to the admin role.
func (u *SessionUser) IsAdmin() bool { return u.Role == syncer.RoleAdmin }

// SessionManager encapsulates the cookie store, the admin identity to
// resolve roles against, and the identity middleware.
type SessionManager struct {
	store    *sessions.CookieStore
	logger   *zap.Logger
	name     string
	adminUID string
	adminEml string
}

// NewSessionManager creates a SessionManager.
//
//   - sessionKey: signing key for cookies (must be ≥32 chars in production)
//   - name: session cookie name (defaults to "stratatrack-session" if empty)
//   - adminUID/adminEmail: the one identity that resolves to the admin role
//   - secure: if true, cookies are Secure (HTTPS production)
//
// Returns an error if sessionKey is empty, or weak while secure is set.
func NewSessionManager(sessionKey, name, domain, adminUID, adminEmail string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, &SessionConfigError{Message: "session key is empty; provide ≥32 random chars"}
	}

	isWeak := len(sessionKey) < 32 || isDefaultKey(sessionKey)
	if secure && isWeak {
		return nil, &SessionConfigError{
			Message: "session key is too weak for production; provide ≥32 random chars (not the default dev key)",
		}
	}
	if !secure && isWeak {
		logger.Warn("session key is weak; 32+ random chars required in production",
			zap.Int("length", len(sessionKey)),
			zap.Bool("is_default", isDefaultKey(sessionKey)))
	}

	if name == "" {
		name = "stratatrack-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		// SameSite=Lax allows the OAuth redirect back from Google while
		// blocking cross-site POSTs.
		SameSite: http.SameSiteLaxMode,
	}

	logger.Info("session manager initialized",
		zap.Bool("secure", secure),
		zap.String("name", name),
		zap.String("domain", domain))

	return &SessionManager{
		store:    store,
		logger:   logger,
		name:     name,
		adminUID: adminUID,
		adminEml: strings.ToLower(adminEmail),
	}, nil
}

// SessionConfigError is returned when session configuration is invalid.
type SessionConfigError struct {
	Message string
}

func (e *SessionConfigError) Error() string {
	return e.Message
}

// SessionName returns the configured session cookie name.
func (sm *SessionManager) SessionName() string { return sm.name }

// ResolveRole maps a Google identity to its sync role. Admin requires an
// exact UID match or a case-insensitive email match against the configured
// admin identity.
func (sm *SessionManager) ResolveRole(uid, email string) syncer.Role {
	if uid != "" && uid == sm.adminUID {
		return syncer.RoleAdmin
	}
	if email != "" && strings.ToLower(email) == sm.adminEml && sm.adminEml != "" {
		return syncer.RoleAdmin
	}
	return syncer.RoleViewer
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the identity from the request context. The found flag
// is false only for requests that bypassed EnsureIdentity.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// EnsureIdentity returns middleware that guarantees a SessionUser in
// context. A signed-in session is loaded from the cookie; everyone else gets
// an anonymous viewer identity minted on first contact and persisted so
// their private tracker data survives across visits.
func (sm *SessionManager) EnsureIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			sm.logSessionError(err, r)
		}

		uid := getString(sess, uidKey)
		if uid == "" {
			uid = "anon-" + uuid.NewString()
			sess.Values[uidKey] = uid
			sess.Values[roleKey] = string(syncer.RoleViewer)
			sess.Values[anonymousKey] = true
			if err := sess.Save(r, w); err != nil {
				sm.logger.Warn("anonymous session save failed", zap.Error(err))
			}
		}

		u := &SessionUser{
			UID:       uid,
			Email:     getString(sess, emailKey),
			Name:      getString(sess, nameKey),
			Role:      syncer.Role(getString(sess, roleKey)),
			Anonymous: getBool(sess, anonymousKey),
		}
		if u.Role != syncer.RoleAdmin {
			u.Role = syncer.RoleViewer
		}
		// Role pinning is config-driven, so a demoted admin loses the role
		// on the next request even with an old cookie.
		if !u.Anonymous && sm.ResolveRole(u.UID, u.Email) != syncer.RoleAdmin {
			u.Role = syncer.RoleViewer
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), currentUserKey, u)))
	})
}

// RequireAdmin returns middleware that rejects non-admin identities with a
// plain 403; the JSON API has no HTML redirect flows.
func (sm *SessionManager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !u.IsAdmin() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SignIn installs a Google-resolved identity into the session, replacing any
// anonymous identity the visitor held.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, uid, email, name string) (syncer.Role, error) {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		sess, _ = sm.store.New(r, sm.name)
	}
	role := sm.ResolveRole(uid, email)
	sess.Values[uidKey] = uid
	sess.Values[emailKey] = email
	sess.Values[nameKey] = name
	sess.Values[roleKey] = string(role)
	sess.Values[anonymousKey] = false
	return role, sess.Save(r, w)
}

// SignOut clears the identity. The next request mints a fresh anonymous one.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		return
	}
	for _, k := range []string{uidKey, emailKey, nameKey, roleKey, anonymousKey} {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
	_ = sess.Save(r, w)
}

// WithTestUser injects a SessionUser into the request context for testing.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

func getBool(s *sessions.Session, key string) bool {
	v, _ := s.Values[key].(bool)
	return v
}

// isDefaultKey checks if the session key appears to be a default/placeholder value.
func isDefaultKey(key string) bool {
	lower := strings.ToLower(key)
	patterns := []string{
		"dev-only",
		"change-me",
		"placeholder",
		"default",
		"example",
		"insecure",
		"test-key",
		"secret123",
		"password",
	}
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func (sm *SessionManager) logSessionError(err error, r *http.Request) {
	errType, category := classifySessionError(err)
	switch errType {
	case sessionErrExpired:
		sm.logger.Debug("session expired, starting fresh session",
			zap.String("category", category),
			zap.String("path", r.URL.Path))
	case sessionErrTampered:
		sm.logger.Warn("session MAC validation failed (possible tampering)",
			zap.String("category", category),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("user_agent", r.UserAgent()))
	case sessionErrCorrupted:
		sm.logger.Info("session decode failed, starting fresh session",
			zap.String("category", category),
			zap.String("path", r.URL.Path))
	case sessionErrBackend:
		sm.logger.Error("session store error, starting fresh session",
			zap.Error(err),
			zap.String("path", r.URL.Path))
	default:
		sm.logger.Warn("session error, starting fresh session",
			zap.Error(err),
			zap.String("category", category),
			zap.String("path", r.URL.Path))
	}
}

// classifySessionError categorizes a session/cookie error for appropriate logging.
func classifySessionError(err error) (sessionErrorType, string) {
	if err == nil {
		return sessionErrUnknown, "none"
	}

	errStr := strings.ToLower(err.Error())

	if scErr, ok := err.(securecookie.Error); ok {
		if !scErr.IsDecode() {
			return sessionErrBackend, "backend"
		}

		switch {
		case strings.Contains(errStr, "expired timestamp"):
			return sessionErrExpired, "expired"
		case strings.Contains(errStr, "mac") || strings.Contains(errStr, "hash"):
			return sessionErrTampered, "mac_invalid"
		case strings.Contains(errStr, "decrypt"):
			return sessionErrCorrupted, "decrypt_failed"
		case strings.Contains(errStr, "base64") || strings.Contains(errStr, "decode"):
			return sessionErrCorrupted, "decode_failed"
		default:
			return sessionErrCorrupted, "decode_other"
		}
	}

	return sessionErrBackend, "unknown"
}
