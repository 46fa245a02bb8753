package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/auth"
	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/repository"
	"github.com/sakif/portfolio/internal/repository/memory"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// brokenUsers fails every call, standing in for an unreachable backend.
type brokenUsers struct{ repository.UserRepository }

var errBackendDown = errors.New("dial tcp 10.0.0.1:443: connection refused")

func (brokenUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, errBackendDown
}

func (brokenUsers) GetByID(ctx context.Context, id string) (*model.User, error) {
	return nil, errBackendDown
}

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", 24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func newTestAuthService(t *testing.T, users repository.UserRepository, oauth *auth.OAuthProviders) *AuthService {
	t.Helper()
	return NewAuthService(users, newTestTokens(t), auth.NewPasswordServiceForTest(4), oauth, nil, testLogger())
}

// =========================================================================
// SIGN IN / SIGN UP
// =========================================================================

func TestAuth_SignUpSignOutSignInScenario(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newTestAuthService(t, store.Users(), nil)

	sess, err := svc.SignUp(ctx, SignUpInput{Email: "alice@example.com", Password: "pw1", FullName: "Alice"})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if sess.User.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", sess.User.Role, model.RoleUser)
	}
	if sess.User.DisplayName != "Alice" || sess.User.FullName != "Alice" {
		t.Errorf("names = %q/%q, want Alice/Alice", sess.User.FullName, sess.User.DisplayName)
	}
	if want := "https://api.dicebear.com/7.x/avataaars/svg?seed=alice%40example.com"; sess.User.AvatarURL != want {
		t.Errorf("AvatarURL = %q, want %q", sess.User.AvatarURL, want)
	}
	if sess.User.PasswordHash != "" {
		t.Error("session snapshot must not carry the password hash")
	}

	if err := svc.SignOut(ctx, sess.Token); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if _, err := svc.ValidateToken(ctx, sess.Token); err == nil {
		t.Error("token still valid after sign-out")
	}

	_, err = svc.SignIn(ctx, "alice@example.com", "wrong")
	wantKind(t, err, apperror.ErrInvalidCredentials)

	again, err := svc.SignIn(ctx, "alice@example.com", "pw1")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if again.User.ID != sess.User.ID {
		t.Errorf("signed in as %q, want original user %q", again.User.ID, sess.User.ID)
	}
	if again.Token == sess.Token {
		t.Error("every sign-in must mint a fresh token")
	}
}

func TestAuth_SignInFailuresLookIdentical(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)
	svc := newTestAuthService(t, store.Users(), nil)

	_, unknown := svc.SignIn(ctx, "nobody@example.com", "admin123")
	_, wrong := svc.SignIn(ctx, "admin@example.com", "nope")

	wantKind(t, unknown, apperror.ErrInvalidCredentials)
	wantKind(t, wrong, apperror.ErrInvalidCredentials)
	if unknown.Error() != wrong.Error() {
		t.Errorf("messages differ: %q vs %q", unknown, wrong)
	}
	wantMessage(t, wrong, "Invalid email or password")
}

func TestAuth_SignInIsCaseSensitive(t *testing.T) {
	store := newSeededStore(t)
	svc := newTestAuthService(t, store.Users(), nil)

	_, err := svc.SignIn(context.Background(), "Admin@Example.com", "admin123")
	wantKind(t, err, apperror.ErrInvalidCredentials)
}

func TestAuth_SignInSeededAdmin(t *testing.T) {
	store := newSeededStore(t)
	svc := newTestAuthService(t, store.Users(), nil)

	sess, err := svc.SignIn(context.Background(), "admin@example.com", "admin123")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if !sess.User.IsAdmin() {
		t.Errorf("Role = %q, want admin", sess.User.Role)
	}
	if ttl := time.Until(sess.ExpiresAt); ttl < 23*time.Hour || ttl > 24*time.Hour {
		t.Errorf("session expires in %v, want about 24h", ttl)
	}
}

func TestAuth_SignUpDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)
	svc := newTestAuthService(t, store.Users(), nil)

	_, err := svc.SignUp(ctx, SignUpInput{Email: "john@example.com", Password: "x"})
	wantKind(t, err, apperror.ErrConflict)
	wantMessage(t, err, "Email already registered")

	users, _ := store.Users().List(ctx, func(u model.User) bool { return u.Email == "john@example.com" })
	if len(users) != 1 {
		t.Errorf("records for email = %d, want 1", len(users))
	}
}

func TestAuth_SignUpValidation(t *testing.T) {
	store := memory.New()
	svc := newTestAuthService(t, store.Users(), nil)

	tests := []struct {
		name  string
		in    SignUpInput
		field string
	}{
		{"missing email", SignUpInput{Password: "pw"}, "email"},
		{"malformed email", SignUpInput{Email: "not-an-email", Password: "pw"}, "email"},
		{"missing password", SignUpInput{Email: "a@example.com"}, "password"},
		{"overlong name", SignUpInput{Email: "a@example.com", Password: "pw", FullName: strings.Repeat("n", 101)}, "full_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignUp(context.Background(), tt.in)
			wantKind(t, err, apperror.ErrValidation)
			var appErr *apperror.AppError
			errors.As(err, &appErr)
			if appErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.field)
			}
		})
	}
}

func TestAuth_StorageFailureIsGeneric(t *testing.T) {
	svc := newTestAuthService(t, brokenUsers{}, nil)

	_, err := svc.SignIn(context.Background(), "admin@example.com", "admin123")
	wantKind(t, err, apperror.ErrTransport)
	wantMessage(t, err, "authentication failed, please try again")

	_, err = svc.SignUp(context.Background(), SignUpInput{Email: "a@example.com", Password: "pw"})
	wantKind(t, err, apperror.ErrTransport)
	wantMessage(t, err, "authentication failed, please try again")
}

// =========================================================================
// TOKENS
// =========================================================================

func TestAuth_ValidateToken(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)
	svc := newTestAuthService(t, store.Users(), nil)

	sess, err := svc.SignIn(ctx, "jane@example.com", "user123")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	user, err := svc.ValidateToken(ctx, sess.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if user.ID != "user-3" || user.PasswordHash != "" {
		t.Errorf("ValidateToken() = %+v, want user-3 without hash", user)
	}

	_, err = svc.ValidateToken(ctx, "garbage")
	wantKind(t, err, apperror.ErrInvalidCredentials)
}

func TestAuth_ValidateTokenForDeletedUser(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)
	svc := newTestAuthService(t, store.Users(), nil)

	sess, _ := svc.SignIn(ctx, "jane@example.com", "user123")
	if err := store.Users().Remove(ctx, "user-3"); err != nil {
		t.Fatal(err)
	}

	_, err := svc.ValidateToken(ctx, sess.Token)
	wantKind(t, err, apperror.ErrInvalidCredentials)
}

func TestAuth_GetUserByID(t *testing.T) {
	store := newSeededStore(t)
	svc := newTestAuthService(t, store.Users(), nil)

	u, err := svc.GetUserByID(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if u.Email != "john@example.com" || u.PasswordHash != "" {
		t.Errorf("GetUserByID() = %+v", u)
	}

	_, err = svc.GetUserByID(context.Background(), "user-404")
	wantKind(t, err, apperror.ErrNotFound)

	_, err = svc.GetUserByID(context.Background(), " ")
	wantKind(t, err, apperror.ErrValidation)
}

// =========================================================================
// OAUTH
// =========================================================================

func TestAuth_OAuthNotConfigured(t *testing.T) {
	svc := newTestAuthService(t, memory.New().Users(), nil)

	_, err := svc.SignInWithOAuth(context.Background(), "github", "state")
	wantKind(t, err, apperror.ErrNotConfigured)
	wantMessage(t, err, "OAuth with github is not available in demo mode")
}

func fakeGitHub(t *testing.T, email string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok", "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"login": "octo", "name": "Octo Cat", "email": email})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAuth_OAuthFlow(t *testing.T) {
	ctx := context.Background()
	srv := fakeGitHub(t, "octo@example.com")
	providers := &auth.OAuthProviders{}
	providers.Add(auth.NewGitHubProvider(auth.OAuthCredentials{ClientID: "id", ClientSecret: "s"}, "http://localhost/cb").
		WithEndpoints(srv.URL+"/authorize", srv.URL+"/token", srv.URL+"/user"))

	store := newSeededStore(t)
	svc := newTestAuthService(t, store.Users(), providers)

	redirect, err := svc.SignInWithOAuth(ctx, "github", "xyz")
	if err != nil {
		t.Fatalf("SignInWithOAuth() error = %v", err)
	}
	if !strings.HasPrefix(redirect, srv.URL+"/authorize") || !strings.Contains(redirect, "state=xyz") {
		t.Errorf("redirect = %q", redirect)
	}

	sess, err := svc.CompleteOAuth(ctx, "github", "code-1")
	if err != nil {
		t.Fatalf("CompleteOAuth() error = %v", err)
	}
	if sess.User.Email != "octo@example.com" || sess.User.Role != model.RoleUser {
		t.Errorf("user = %+v", sess.User)
	}

	// A second sign-in reuses the account.
	again, err := svc.CompleteOAuth(ctx, "github", "code-2")
	if err != nil {
		t.Fatalf("second CompleteOAuth() error = %v", err)
	}
	if again.User.ID != sess.User.ID {
		t.Errorf("second sign-in created a new account %q, want %q", again.User.ID, sess.User.ID)
	}

	// OAuth accounts have no password.
	_, err = svc.SignIn(ctx, "octo@example.com", "")
	wantKind(t, err, apperror.ErrInvalidCredentials)
}

func TestAuth_OAuthLinksExistingEmail(t *testing.T) {
	srv := fakeGitHub(t, "john@example.com")
	providers := &auth.OAuthProviders{}
	providers.Add(auth.NewGitHubProvider(auth.OAuthCredentials{ClientID: "id", ClientSecret: "s"}, "http://localhost/cb").
		WithEndpoints(srv.URL+"/authorize", srv.URL+"/token", srv.URL+"/user"))

	store := newSeededStore(t)
	svc := newTestAuthService(t, store.Users(), providers)

	sess, err := svc.CompleteOAuth(context.Background(), "github", "code")
	if err != nil {
		t.Fatalf("CompleteOAuth() error = %v", err)
	}
	if sess.User.ID != "user-2" {
		t.Errorf("signed in as %q, want existing user-2", sess.User.ID)
	}
}
