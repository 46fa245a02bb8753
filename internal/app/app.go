// Package app builds the object graph both binaries share:
//
//	config → stores (memory | remote | redis) → services
//
// cmd/server puts the services behind HTTP; cmd/portfolio drives them
// through a session manager and the social controllers, like a browser tab
// would.
//
// WHY A SEPARATE PACKAGE?
// Two main packages need the same wiring. Keeping it here means the choice
// between mock mode and a configured backend is made in exactly one place.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/portfolio/internal/auth"
	"github.com/sakif/portfolio/internal/config"
	"github.com/sakif/portfolio/internal/latency"
	"github.com/sakif/portfolio/internal/realtime"
	"github.com/sakif/portfolio/internal/repository"
	"github.com/sakif/portfolio/internal/repository/memory"
	"github.com/sakif/portfolio/internal/repository/redisstore"
	"github.com/sakif/portfolio/internal/repository/remote"
	"github.com/sakif/portfolio/internal/repository/sqlite"
	"github.com/sakif/portfolio/internal/server"
	"github.com/sakif/portfolio/internal/service"
)

// App holds the services and the resources they own.
type App struct {
	Mode     string // "mock" or "remote"
	Store    *memory.Store
	Tokens   *auth.TokenService
	Auth     *service.AuthService
	Users    *service.UserService
	Projects *service.ProjectService
	Blogs    *service.BlogService
	Comments *service.CommentService
	Likes    *service.LikeService
	Views    *service.ViewService
	Live     realtime.Source

	closers []io.Closer
}

// NewLogger returns a text logger for development and a JSON logger in
// production, where logs are read by machines.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Build wires everything cfg asks for. Users, projects and blog posts always
// live in the seeded in-memory store; comments and likes move to the remote
// backend when one is configured. View counts need a persistent counter
// (redis, or the remote backend) and are unavailable otherwise.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Mode: "mock"}

	hub := realtime.NewHub(logger)
	store := memory.New(memory.WithPublisher(hub))

	passwords := auth.NewPasswordService(cfg.Auth.BcryptCost)
	if err := store.Seed(ctx, passwords); err != nil {
		return nil, fmt.Errorf("app: seeding demo data: %w", err)
	}
	a.Store = store

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		// Validate has already refused this in production.
		generated, err := randomSecret()
		if err != nil {
			return nil, err
		}
		secret = generated
		logger.Warn("auth.jwt_secret not set, using a throwaway secret; sessions end on restart")
	}
	tokens, err := auth.NewTokenService(secret, cfg.Auth.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("app: creating token service: %w", err)
	}
	a.Tokens = tokens

	oauth := auth.NewOAuthProviders(
		auth.OAuthCredentials{ClientID: cfg.Auth.OAuthGitHubID, ClientSecret: cfg.Auth.OAuthGitHubSecret},
		auth.OAuthCredentials{ClientID: cfg.Auth.OAuthGoogleID, ClientSecret: cfg.Auth.OAuthGoogleSecret},
		cfg.Auth.OAuthCallbackURL,
	)

	sim := latency.New(latency.Durations{
		Default: cfg.Mock.Latency,
		Short:   cfg.Mock.ShortLatency,
		Check:   cfg.Mock.CheckLatency,
		Upload:  cfg.Mock.UploadLatency,
	})

	var (
		comments repository.CommentRepository = store.Comments()
		likes    repository.LikeRepository    = store.Likes()
		// Left as a nil interface unless a counter is configured, so the
		// view service reports NotConfigured.
		views repository.ViewCounter
		live  realtime.Source = hub
	)

	if cfg.BackendConfigured() {
		client, err := remote.New(remote.Config{
			URL:     cfg.Backend.URL,
			APIKey:  cfg.Backend.APIKey,
			Timeout: cfg.Backend.Timeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("app: creating backend client: %w", err)
		}
		comments, likes, views, live = client.Comments(), client.Likes(), client.Views(), client
		a.Mode = "remote"
		// Remote rows carry no artificial delay.
		sim = nil
		logger.Info("using remote backend", slog.String("url", cfg.Backend.URL))
	} else {
		logger.Info("backend not configured, running in mock mode")
	}

	if cfg.Views.RedisURL != "" {
		counter, err := redisstore.Dial(ctx, cfg.Views.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("app: connecting to redis: %w", err)
		}
		views = counter
		a.closers = append(a.closers, counter)
	}

	a.Live = live
	a.Auth = service.NewAuthService(store.Users(), tokens, passwords, oauth, sim, logger)
	a.Users = service.NewUserService(store.Users(), sim, logger)
	a.Projects = service.NewProjectService(store.Projects(), sim, logger)
	a.Blogs = service.NewBlogService(store.Blogs(), sim, logger)
	a.Comments = service.NewCommentService(comments, store.Users(), sim, logger)
	a.Likes = service.NewLikeService(likes, sim, logger)
	a.Views = service.NewViewService(views, sim, logger)

	return a, nil
}

// Services returns the set the HTTP server routes to.
func (a *App) Services() server.Services {
	return server.Services{
		Auth:     a.Auth,
		Users:    a.Users,
		Projects: a.Projects,
		Blogs:    a.Blogs,
		Comments: a.Comments,
		Likes:    a.Likes,
		Views:    a.Views,
		Tokens:   a.Tokens,
		Live:     a.Live,
	}
}

// Closers hands ownership of the app's resources to the caller.
func (a *App) Closers() []io.Closer {
	return a.closers
}

// Close releases every resource Build opened.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

// OpenStorage opens the durable client storage at path, creating its
// directory first.
func OpenStorage(path string) (*sqlite.DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		// 0755 = owner can read/write/execute, others can read/execute.
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("app: creating storage directory %s: %w", dir, err)
		}
	}
	db, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("app: opening client storage: %w", err)
	}
	return db, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("app: generating jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
