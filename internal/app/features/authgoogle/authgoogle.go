// internal/app/features/authgoogle/authgoogle.go
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/dalemusser/stratatrack/internal/app/store/oauthstate"
	"github.com/dalemusser/stratatrack/internal/app/system/auth"
	"github.com/dalemusser/stratatrack/internal/app/system/syncer"
)

// Handler provides Google sign-in. Signing in is optional — anonymous
// viewers work fine — but it is the only way to resolve the admin role,
// since the admin is pinned to one Google identity in config.
type Handler struct {
	sessionMgr      *auth.SessionManager
	oauthStateStore *oauthstate.Store
	coordinator     *syncer.Coordinator
	oauthConfig     *oauth2.Config
	logger          *zap.Logger
}

// NewHandler creates a new Google OAuth Handler. coordinator may be nil in
// tests; when present, it is told about admin sign-ins so the publish guard
// can be armed.
func NewHandler(
	sessionMgr *auth.SessionManager,
	oauthStateStore *oauthstate.Store,
	coordinator *syncer.Coordinator,
	clientID string,
	clientSecret string,
	baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		sessionMgr:      sessionMgr,
		oauthStateStore: oauthStateStore,
		coordinator:     coordinator,
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  baseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		logger: logger,
	}
}

// Routes returns a chi.Router with Google OAuth routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.startAuth)
	r.Get("/callback", h.handleCallback)
	return r
}

// startAuth initiates the Google OAuth flow.
func (h *Handler) startAuth(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		h.logger.Error("failed to generate oauth state", zap.Error(err))
		http.Redirect(w, r, "/?error=oauth_error", http.StatusSeeOther)
		return
	}

	if err := h.oauthStateStore.Create(r.Context(), state); err != nil {
		h.logger.Error("failed to store oauth state", zap.Error(err))
		http.Redirect(w, r, "/?error=oauth_error", http.StatusSeeOther)
		return
	}

	url := h.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// handleCallback processes the Google OAuth callback: exchange the code,
// fetch the profile, install the identity, and arm the sync coordinator's
// skip-publish guard when the identity resolved to admin (so the debounce
// cannot flush pre-login local state over the live document).
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if !h.oauthStateStore.Verify(r.Context(), state) {
		h.logger.Warn("invalid oauth state")
		http.Redirect(w, r, "/?error=invalid_state", http.StatusSeeOther)
		return
	}

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		h.logger.Warn("oauth error from google", zap.String("error", errMsg))
		http.Redirect(w, r, "/?error="+errMsg, http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	token, err := h.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("failed to exchange oauth code", zap.Error(err))
		http.Redirect(w, r, "/?error=token_exchange_failed", http.StatusSeeOther)
		return
	}

	userInfo, err := h.getUserInfo(r.Context(), token)
	if err != nil {
		h.logger.Error("failed to get google user info", zap.Error(err))
		http.Redirect(w, r, "/?error=userinfo_failed", http.StatusSeeOther)
		return
	}
	if userInfo.ID == "" {
		http.Redirect(w, r, "/?error=userinfo_failed", http.StatusSeeOther)
		return
	}

	role, err := h.sessionMgr.SignIn(w, r, userInfo.ID, userInfo.Email, userInfo.Name)
	if err != nil {
		h.logger.Error("failed to create session", zap.Error(err))
		http.Redirect(w, r, "/?error=session_error", http.StatusSeeOther)
		return
	}

	if role == syncer.RoleAdmin && h.coordinator != nil {
		h.coordinator.NoteAdminResolved()
	}

	h.logger.Info("google sign-in",
		zap.String("uid", userInfo.ID), zap.String("role", string(role)))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout clears the session; the next request gets a fresh anonymous
// viewer identity.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessionMgr.SignOut(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// GoogleUserInfo represents user info from Google.
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// getUserInfo fetches user info from Google.
func (h *Handler) getUserInfo(ctx context.Context, token *oauth2.Token) (*GoogleUserInfo, error) {
	client := h.oauthConfig.Client(ctx, token)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var userInfo GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, err
	}

	return &userInfo, nil
}

// generateState generates a random state token.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
