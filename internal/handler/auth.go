package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/sakif/portfolio/internal/auth"
	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/service"
)

const oauthStateCookie = "oauth_state"

// AuthHandler exposes sign-in, registration, sign-out and OAuth.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignIn / HandleSignUp → return the session and set the token cookie
//   - HandleSignOut               → revoke the token and clear the cookie
//   - HandleSession               → who am I, for a front end loading up
//   - HandleOAuthStart/Callback   → the provider redirect dance
//
// Every rule (credentials, duplicate emails, token lifetime) lives in
// AuthService; this handler only moves JSON and cookies.
type AuthHandler struct {
	auth         *service.AuthService
	secureCookie bool
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secureCookie marks the token cookie
// Secure, which requires HTTPS; enable it in production.
func NewAuthHandler(auth *service.AuthService, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, secureCookie: secureCookie, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleSignIn checks credentials and starts a session.
//
// HTTP: POST /api/auth/signin
// REQUEST BODY: {"email": "...", "password": "..."}
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	s, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	h.setTokenCookie(w, s)
	writeJSON(w, http.StatusOK, s)
}

// HandleSignUp registers an account and signs it in.
//
// HTTP: POST /api/auth/signup
// REQUEST BODY: {"email": "...", "password": "...", "full_name": "..."}
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req service.SignUpInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	s, err := h.auth.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	h.setTokenCookie(w, s)
	writeJSON(w, http.StatusCreated, s)
}

// HandleSignOut revokes the caller's token and clears the cookie.
//
// HTTP: POST /api/auth/signout
//
// The cookie is cleared even when revocation fails, so the browser never
// stays half signed in.
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	h.clearTokenCookie(w)

	if token := auth.TokenFromRequest(r); token != "" {
		if err := h.auth.SignOut(r.Context(), token); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}

// HandleSession returns the caller's profile and token expiry.
//
// HTTP: GET /api/auth/session
// Auth: Required
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.TokenFromContext(r.Context())
	claims, _ := auth.ClaimsFromContext(r.Context())

	u, err := h.auth.ValidateToken(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.Session{User: *u, Token: token, ExpiresAt: claims.ExpiresAt})
}

// HandleProviders lists the OAuth providers that are configured.
//
// HTTP: GET /api/auth/providers
func (h *AuthHandler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	names := h.auth.OAuthProviders()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"providers": names})
}

// HandleOAuthStart redirects the browser to the provider's consent page.
//
// HTTP: GET /api/auth/oauth/{provider}
//
// CSRF PROTECTION VIA STATE:
// A random state value goes into a short-lived HttpOnly cookie and into the
// authorization URL. The callback only proceeds when both agree.
func (h *AuthHandler) HandleOAuthStart(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	state := xid.New().String()

	target, err := h.auth.SignInWithOAuth(r.Context(), provider, state)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// HandleOAuthCallback completes the provider sign-in.
//
// HTTP: GET /api/auth/oauth/{provider}/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code and find or create the account
//  3. Set the token cookie and redirect to the app
func (h *AuthHandler) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	q := r.URL.Query()

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || q.Get("state") != stateCookie.Value {
		h.logger.Warn("oauth callback: state mismatch", slog.String("provider", provider))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid OAuth state"})
		return
	}
	// The state is single-use.
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	if denied := q.Get("error"); denied != "" {
		h.logger.Info("oauth callback: user denied authorization",
			slog.String("provider", provider),
			slog.String("error", denied),
		)
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}
	code := q.Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "missing OAuth code", Field: "code"})
		return
	}

	s, err := h.auth.CompleteOAuth(r.Context(), provider, code)
	if err != nil {
		writeError(w, err)
		return
	}
	h.setTokenCookie(w, s)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// setTokenCookie stores the session token in an HttpOnly cookie that lives
// exactly as long as the token.
func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, s *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    s.Token,
		Path:     "/",
		MaxAge:   max(int(time.Until(s.ExpiresAt).Seconds()), 1),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // tells the browser to delete the cookie immediately
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
