package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/auth"
	"github.com/sakif/portfolio/internal/latency"
	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/repository"
)

// placeholderAvatar is the deterministic avatar every new account starts with.
func placeholderAvatar(seed string) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + url.QueryEscape(seed)
}

// SignUpInput is the registration form. FullName is optional.
type SignUpInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
	FullName string `json:"full_name" validate:"max=100"`
}

// AuthService handles sign-in, registration and session tokens.
//
//	AuthHandler (HTTP) → AuthService → UserRepository
//	                               ↘ TokenService (JWT), PasswordService (bcrypt)
//
// A session is the signed-in user's profile plus a freshly minted token. The
// token is a JWT with a unique id, so two sign-ins never share one, and
// SignOut revokes it.
type AuthService struct {
	base
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	oauth     *auth.OAuthProviders
}

// NewAuthService wires an AuthService. oauth may be nil, in which case every
// OAuth attempt reports that the provider is not available.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	oauth *auth.OAuthProviders,
	sim *latency.Simulator,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		base:      newBase("auth", sim, logger),
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		oauth:     oauth,
	}
}

// SignIn checks email and password. An unknown email and a wrong password
// produce the same InvalidCredentials error, and both pay for one bcrypt
// comparison, so neither the message nor the timing tells them apart.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	return run(ctx, &s.base, "signing in", latency.Default, func(ctx context.Context) (*model.Session, error) {
		user, err := s.users.GetByEmail(ctx, email)
		if errors.Is(err, apperror.ErrNotFound) {
			_ = s.passwords.VerifyNone(password)
			return nil, apperror.InvalidCredentials()
		}
		if err != nil {
			return nil, authFailed(err)
		}

		if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
			if !errors.Is(err, auth.ErrPasswordMismatch) {
				// OAuth-only accounts have no hash; anything else is a corrupt record.
				s.logger.Warn("password check failed",
					slog.String("userID", user.ID),
					slog.String("error", err.Error()),
				)
			}
			return nil, apperror.InvalidCredentials()
		}

		sess, err := s.issue(user)
		if err != nil {
			return nil, err
		}
		s.logger.Info("user signed in", slog.String("userID", user.ID))
		return sess, nil
	})
}

// SignUp registers a user-role account and signs it in straight away.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*model.Session, error) {
	return run(ctx, &s.base, "signing up", latency.Default, func(ctx context.Context) (*model.Session, error) {
		in.FullName = strings.TrimSpace(in.FullName)
		if err := validateStruct(in); err != nil {
			return nil, err
		}

		if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
			return nil, emailTaken()
		} else if !errors.Is(err, apperror.ErrNotFound) {
			return nil, authFailed(err)
		}

		hash, err := s.passwords.Hash(in.Password)
		if err != nil {
			return nil, authFailed(err)
		}

		user := &model.User{
			Email:        in.Email,
			PasswordHash: hash,
			Role:         model.RoleUser,
			FullName:     in.FullName,
			DisplayName:  in.FullName,
			AvatarURL:    placeholderAvatar(in.Email),
		}
		if err := s.users.Insert(ctx, user); err != nil {
			// Lost a race with a concurrent registration for the same email.
			if errors.Is(err, apperror.ErrConflict) {
				return nil, emailTaken()
			}
			return nil, authFailed(err)
		}

		sess, err := s.issue(user)
		if err != nil {
			return nil, err
		}
		s.logger.Info("user registered", slog.String("userID", user.ID))
		return sess, nil
	})
}

// SignInWithOAuth returns the provider URL to send the user to. state is
// echoed back on the callback and must be checked there.
func (s *AuthService) SignInWithOAuth(ctx context.Context, provider, state string) (string, error) {
	return run(ctx, &s.base, "starting OAuth sign-in", latency.Default, func(ctx context.Context) (string, error) {
		p, ok := s.oauth.Get(provider)
		if !ok {
			return "", oauthUnavailable(provider)
		}
		return p.AuthURL(state), nil
	})
}

// CompleteOAuth exchanges the callback code for the provider profile and
// signs in the local account with the same email, creating it on first use.
func (s *AuthService) CompleteOAuth(ctx context.Context, provider, code string) (*model.Session, error) {
	return run(ctx, &s.base, "completing OAuth sign-in", latency.Default, func(ctx context.Context) (*model.Session, error) {
		p, ok := s.oauth.Get(provider)
		if !ok {
			return nil, oauthUnavailable(provider)
		}
		if strings.TrimSpace(code) == "" {
			return nil, apperror.ValidationFailed("code", "OAuth code is required")
		}

		identity, err := p.Exchange(ctx, code)
		if err != nil {
			return nil, apperror.TransportMessage(fmt.Sprintf("sign-in with %s failed, please try again", provider), err)
		}

		user, err := s.users.GetByEmail(ctx, identity.Email)
		switch {
		case err == nil:
		case errors.Is(err, apperror.ErrNotFound):
			avatar := identity.AvatarURL
			if avatar == "" {
				avatar = placeholderAvatar(identity.Email)
			}
			user = &model.User{
				Email:       identity.Email,
				Role:        model.RoleUser,
				FullName:    identity.Name,
				DisplayName: identity.Name,
				AvatarURL:   avatar,
			}
			if err := s.users.Insert(ctx, user); err != nil {
				return nil, authFailed(err)
			}
			s.logger.Info("user registered via OAuth",
				slog.String("userID", user.ID),
				slog.String("provider", provider),
			)
		default:
			return nil, authFailed(err)
		}

		sess, err := s.issue(user)
		if err != nil {
			return nil, err
		}
		s.logger.Info("user signed in via OAuth",
			slog.String("userID", user.ID),
			slog.String("provider", provider),
		)
		return sess, nil
	})
}

// ValidateToken resolves a session token to the current profile of its user.
// Expired, revoked or malformed tokens, and tokens for deleted accounts, all
// fail with the same InvalidSession error.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*model.User, error) {
	return run(ctx, &s.base, "checking session", latency.Short, func(ctx context.Context) (*model.User, error) {
		claims, err := s.tokens.Validate(token)
		if err != nil {
			return nil, apperror.InvalidSession()
		}
		user, err := s.users.GetByID(ctx, claims.UserID)
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidSession()
		}
		if err != nil {
			return nil, err
		}
		p := user.Profile()
		return &p, nil
	})
}

// SignOut revokes token. Signing out twice, or with a token that is already
// invalid, succeeds.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	return do(ctx, &s.base, "signing out", latency.Short, func(ctx context.Context) error {
		s.tokens.Revoke(token)
		return nil
	})
}

// GetUserByID returns the profile (no secret) of the user with id.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return run(ctx, &s.base, "loading user", latency.Short, func(ctx context.Context) (*model.User, error) {
		if strings.TrimSpace(id) == "" {
			return nil, apperror.ValidationFailed("id", "user ID is required")
		}
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		p := user.Profile()
		return &p, nil
	})
}

// OAuthProviders lists the providers SignInWithOAuth will accept.
func (s *AuthService) OAuthProviders() []string {
	return s.oauth.Names()
}

func (s *AuthService) issue(user *model.User) (*model.Session, error) {
	token, expiresAt, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, authFailed(err)
	}
	return &model.Session{User: user.Profile(), Token: token, ExpiresAt: expiresAt}, nil
}

// authFailed hides storage and network failures behind one generic message.
func authFailed(cause error) error {
	var appErr *apperror.AppError
	if errors.As(cause, &appErr) && !errors.Is(cause, apperror.ErrTransport) {
		return appErr
	}
	return apperror.TransportMessage("authentication failed, please try again", cause)
}

func emailTaken() error {
	err := apperror.ConflictMessage("Email already registered")
	err.Field = "email"
	return err
}

func oauthUnavailable(provider string) error {
	return apperror.NotConfigured(fmt.Sprintf("OAuth with %s is not available in demo mode", provider))
}
