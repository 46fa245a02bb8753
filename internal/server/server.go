// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects handlers, middleware and
// routes, and owns the process lifetime (graceful shutdown, closing stores).
//
// DEPENDENCY INJECTION FLOW:
// app.Build creates config → stores (memory | remote | redis) → services,
// then server.New creates handlers over the services and the chi routes:
//
//	config → stores → services → handlers → routes
//
// The handler never touches a store and the service never touches HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/portfolio/internal/auth"
	"github.com/sakif/portfolio/internal/handler"
	"github.com/sakif/portfolio/internal/middleware"
	"github.com/sakif/portfolio/internal/realtime"
	"github.com/sakif/portfolio/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	SecureCookies   bool
}

// Services is everything the HTTP layer calls into.
type Services struct {
	Auth     *service.AuthService
	Users    *service.UserService
	Projects *service.ProjectService
	Blogs    *service.BlogService
	Comments *service.CommentService
	Likes    *service.LikeService
	Views    *service.ViewService
	Tokens   *auth.TokenService
	Live     realtime.Source
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// Closers (the SQLite file, the redis client) are owned by the server and
// closed, in reverse order, once in-flight requests have drained.
type Server struct {
	router  *chi.Mux
	config  Config
	logger  *slog.Logger
	closers []io.Closer
}

// New builds the router. closers are closed when Start returns.
func New(cfg Config, svc Services, logger *slog.Logger, closers ...io.Closer) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		closers: closers,
	}
	s.setupRoutes(svc)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /healthz, /metrics
// POST   /api/auth/{signin,signup,signout}   GET /api/auth/session
// GET    /api/auth/providers, /api/auth/oauth/{provider}[/callback]
// *      /api/users…, /api/projects…, /api/blogs…
// *      /api/{project|blog}/{ref}/{comments,likes,views}
// PATCH|DELETE /api/comments/{id}   GET /api/comments, /api/likes (admin)
// GET    /api/live (websocket)
//
// MIDDLEWARE ORDER MATTERS:
// RequestID and RealIP first so the logger sees them; Recoverer inside the
// logger so a panic is logged as the 500 it becomes.
func (s *Server) setupRoutes(svc Services) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics())
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.CORS(s.config.AllowedOrigins))

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	s.router.Handle("/metrics", promhttp.Handler())

	authHandler := handler.NewAuthHandler(svc.Auth, s.config.SecureCookies, s.logger)
	userHandler := handler.NewUserHandler(svc.Users, svc.Likes, s.logger)
	projectHandler := handler.NewProjectHandler(svc.Projects, s.logger)
	blogHandler := handler.NewBlogHandler(svc.Blogs, s.logger)
	socialHandler := handler.NewSocialHandler(svc.Comments, svc.Likes, svc.Views, s.logger)
	liveHandler := handler.NewLiveHandler(svc.Live, s.config.AllowedOrigins, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		// Every API request may carry a token; handlers pass the resolved
		// actor (or nil) to the services, which make the decisions.
		r.Use(auth.OptionalAuth(svc.Tokens))
		r.Use(handler.LoadActor(svc.Auth, s.logger))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signin", authHandler.HandleSignIn)
			r.Post("/signup", authHandler.HandleSignUp)
			r.Post("/signout", authHandler.HandleSignOut)
			r.With(auth.RequireAuth(svc.Tokens)).Get("/session", authHandler.HandleSession)
			r.Get("/providers", authHandler.HandleProviders)
			r.Get("/oauth/{provider}", authHandler.HandleOAuthStart)
			r.Get("/oauth/{provider}/callback", authHandler.HandleOAuthCallback)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.HandleList)
			r.Get("/username-available", userHandler.HandleUsernameAvailable)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", userHandler.HandleGet)
				r.Patch("/", userHandler.HandleUpdate)
				r.Delete("/", userHandler.HandleDelete)
				r.Post("/avatar", userHandler.HandleAvatar)
				r.Put("/role", userHandler.HandleRole)
				r.Get("/likes", userHandler.HandleLikes)
			})
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", projectHandler.HandleList)
			r.Post("/", projectHandler.HandleCreate)
			r.Get("/{slug}", projectHandler.HandleGet)
			r.Patch("/{slug}", projectHandler.HandleUpdate)
			r.Delete("/{slug}", projectHandler.HandleDelete)
		})

		r.Route("/blogs", func(r chi.Router) {
			r.Get("/", blogHandler.HandleList)
			r.Post("/", blogHandler.HandleCreate)
			r.Get("/{slug}", blogHandler.HandleGet)
			r.Patch("/{slug}", blogHandler.HandleUpdate)
			r.Delete("/{slug}", blogHandler.HandleDelete)
		})

		r.Route("/{entityType:project|blog}/{ref}", func(r chi.Router) {
			r.Get("/comments", socialHandler.HandleListComments)
			r.Post("/comments", socialHandler.HandleCreateComment)
			r.Get("/likes", socialHandler.HandleGetLikes)
			r.Post("/likes", socialHandler.HandleToggleLike)
			r.Get("/views", socialHandler.HandleGetViews)
			r.Post("/views", socialHandler.HandleRecordView)
		})

		r.Get("/comments", socialHandler.HandleAllComments)
		r.Patch("/comments/{id}", socialHandler.HandleUpdateComment)
		r.Delete("/comments/{id}", socialHandler.HandleDeleteComment)
		r.Get("/likes", socialHandler.HandleAllLikes)

		r.Get("/live", liveHandler.HandleLive)
	})
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (ShutdownTimeout)
//  3. Close owned resources (SQLite flushes its WAL, redis drops its pool)
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run is Start with the shutdown trigger supplied by the caller.
func (s *Server) Run(ctx context.Context) error {
	defer s.closeAll()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}

func (s *Server) closeAll() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.logger.Error("closing resource", slog.String("error", err.Error()))
		}
	}
}
