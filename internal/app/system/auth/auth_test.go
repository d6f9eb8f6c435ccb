package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dalemusser/stratatrack/internal/app/system/syncer"
)

const testKey = "this-is-a-32-character-long-key!"

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	sm, err := NewSessionManager(testKey, "", "", "admin-uid-123", "owner@example.com", 24*time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return sm
}

func TestNewSessionManager(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name       string
		sessionKey string
		secure     bool
		wantErr    bool
	}{
		{
			name:       "valid key dev mode",
			sessionKey: testKey,
			secure:     false,
			wantErr:    false,
		},
		{
			name:       "valid key prod mode",
			sessionKey: testKey,
			secure:     true,
			wantErr:    false,
		},
		{
			name:       "empty key",
			sessionKey: "",
			secure:     false,
			wantErr:    true,
		},
		{
			name:       "weak key dev mode",
			sessionKey: "short",
			secure:     false,
			wantErr:    false, // Warning but allowed in dev
		},
		{
			name:       "weak key prod mode",
			sessionKey: "short",
			secure:     true,
			wantErr:    true, // Error in prod
		},
		{
			name:       "default key prod mode",
			sessionKey: "dev-only-session-key-not-for-production",
			secure:     true,
			wantErr:    true, // Default keys not allowed in prod
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm, err := NewSessionManager(tt.sessionKey, "", "", "", "", 24*time.Hour, tt.secure, logger)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.wantErr && sm == nil {
				t.Error("expected manager, got nil")
			}
		})
	}

	t.Run("default cookie name", func(t *testing.T) {
		sm, err := NewSessionManager(testKey, "", "", "", "", time.Hour, false, logger)
		if err != nil {
			t.Fatal(err)
		}
		if got := sm.SessionName(); got != "stratatrack-session" {
			t.Errorf("SessionName() = %q", got)
		}
	})
}

func TestResolveRole(t *testing.T) {
	sm := newTestManager(t)

	tests := []struct {
		name  string
		uid   string
		email string
		want  syncer.Role
	}{
		{"uid match", "admin-uid-123", "", syncer.RoleAdmin},
		{"email match", "other-uid", "owner@example.com", syncer.RoleAdmin},
		{"email match case-insensitive", "other-uid", "Owner@Example.COM", syncer.RoleAdmin},
		{"no match", "stranger", "stranger@example.com", syncer.RoleViewer},
		{"empty identity", "", "", syncer.RoleViewer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sm.ResolveRole(tt.uid, tt.email); got != tt.want {
				t.Errorf("ResolveRole(%q, %q) = %q, want %q", tt.uid, tt.email, got, tt.want)
			}
		})
	}

	t.Run("empty configured admin email never matches", func(t *testing.T) {
		sm, err := NewSessionManager(testKey, "", "", "admin-uid-123", "", time.Hour, false, zap.NewNop())
		if err != nil {
			t.Fatal(err)
		}
		if got := sm.ResolveRole("x", ""); got != syncer.RoleViewer {
			t.Errorf("role = %q, want viewer", got)
		}
	})
}

func TestEnsureIdentityMintsAnonymousViewer(t *testing.T) {
	sm := newTestManager(t)

	var seen *SessionUser
	h := sm.EnsureIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CurrentUser(r)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == nil {
		t.Fatal("no identity in context")
	}
	if !strings.HasPrefix(seen.UID, "anon-") {
		t.Errorf("uid = %q, want anon- prefix", seen.UID)
	}
	if seen.Role != syncer.RoleViewer || !seen.Anonymous {
		t.Errorf("identity = %+v, want anonymous viewer", seen)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("anonymous identity was not persisted in a cookie")
	}

	// The same cookie yields the same identity on the next request.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	first := seen.UID
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen.UID != first {
		t.Errorf("uid changed across requests: %q then %q", first, seen.UID)
	}
}

func TestSignInSignOut(t *testing.T) {
	sm := newTestManager(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback", nil)
	role, err := sm.SignIn(rec, req, "admin-uid-123", "owner@example.com", "The Owner")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if role != syncer.RoleAdmin {
		t.Errorf("role = %q, want admin", role)
	}

	// Replay the cookie through EnsureIdentity.
	var seen *SessionUser
	h := sm.EnsureIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CurrentUser(r)
	}))
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req2.AddCookie(c)
	}
	h.ServeHTTP(httptest.NewRecorder(), req2)

	if seen == nil || seen.UID != "admin-uid-123" || !seen.IsAdmin() || seen.Anonymous {
		t.Fatalf("identity after sign-in = %+v", seen)
	}

	// Sign out expires the cookie.
	rec3 := httptest.NewRecorder()
	req3 := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	for _, c := range rec.Result().Cookies() {
		req3.AddCookie(c)
	}
	sm.SignOut(rec3, req3)
	found := false
	for _, c := range rec3.Result().Cookies() {
		if c.Name == sm.SessionName() && c.MaxAge < 0 {
			found = true
		}
	}
	if !found {
		t.Error("sign-out did not expire the session cookie")
	}
}

func TestStaleAdminCookieDemoted(t *testing.T) {
	// A cookie minted while the identity was admin stops granting the role
	// once config points at a different admin.
	smOld := newTestManager(t)
	rec := httptest.NewRecorder()
	if _, err := smOld.SignIn(rec, httptest.NewRequest(http.MethodGet, "/", nil), "admin-uid-123", "owner@example.com", ""); err != nil {
		t.Fatal(err)
	}

	smNew, err := NewSessionManager(testKey, "", "", "someone-else", "new@example.com", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	var seen *SessionUser
	h := smNew.EnsureIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CurrentUser(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen == nil || seen.Role != syncer.RoleViewer {
		t.Errorf("identity = %+v, want demoted to viewer", seen)
	}
}

func TestRequireAdmin(t *testing.T) {
	sm := newTestManager(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("no identity", func(t *testing.T) {
		rec := httptest.NewRecorder()
		sm.RequireAdmin(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("viewer", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := WithTestUser(httptest.NewRequest(http.MethodGet, "/", nil),
			&SessionUser{UID: "v", Role: syncer.RoleViewer})
		sm.RequireAdmin(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("admin", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := WithTestUser(httptest.NewRequest(http.MethodGet, "/", nil),
			&SessionUser{UID: "admin-uid-123", Role: syncer.RoleAdmin})
		sm.RequireAdmin(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}
