// Package session keeps one client's sign-in state.
//
// The Manager is the client half of authentication: it calls the auth
// service, mirrors the resulting session into durable storage as a single
// record, and re-reads that record on every check so expiry is honoured
// without a background timer.
//
//	Anonymous ──SignIn/SignUp──▶ Authenticating ──ok──▶ Authenticated
//	    ▲                              │                      │
//	    └────────────failure───────────┘     SignOut/expiry ──┘
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/repository"
	"github.com/sakif/portfolio/internal/service"
)

const (
	// StorageKey holds the one serialized session record.
	StorageKey = "portfolio.auth.session"
	// LegacyUserKey is the profile-only key older clients wrote next to the
	// session. It is never written, only cleared when found.
	LegacyUserKey = "portfolio.auth.user"
)

type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Authenticator is the part of service.AuthService the manager needs.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*model.Session, error)
	SignUp(ctx context.Context, in service.SignUpInput) (*model.Session, error)
	SignOut(ctx context.Context, token string) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

var _ Authenticator = (*service.AuthService)(nil)

// Manager is safe for concurrent use. Operations that change the session run
// one at a time; State never waits for them.
type Manager struct {
	auth   Authenticator
	store  repository.KeyValueStore
	now    func() time.Time
	logger *slog.Logger

	op sync.Mutex // serializes SignIn, SignUp, SignOut, Session, Refresh

	mu      sync.Mutex
	state   State
	current *model.Session
	// signedOut remembers tokens this client gave up. A record carrying one
	// of them is stale, whatever its expiry says.
	signedOut map[string]bool
}

type Option func(*Manager)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func New(auth Authenticator, store repository.KeyValueStore, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Manager{
		auth:      auth,
		store:     store,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "session")),
		signedOut: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the in-memory state. It does not consult storage; call
// Session for an expiry-checked answer.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SignIn authenticates and persists the new session.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	return m.authenticate(ctx, "signed in", func(ctx context.Context) (*model.Session, error) {
		return m.auth.SignIn(ctx, email, password)
	})
}

// SignUp registers an account and signs straight into it.
func (m *Manager) SignUp(ctx context.Context, email, password, fullName string) (*model.Session, error) {
	return m.authenticate(ctx, "signed up", func(ctx context.Context) (*model.Session, error) {
		return m.auth.SignUp(ctx, service.SignUpInput{Email: email, Password: password, FullName: fullName})
	})
}

// authenticate runs fn in the Authenticating state. On failure the manager
// falls back to whatever it held before the attempt.
func (m *Manager) authenticate(ctx context.Context, event string, fn func(context.Context) (*model.Session, error)) (*model.Session, error) {
	m.op.Lock()
	defer m.op.Unlock()

	m.mu.Lock()
	prevState, prev := m.state, m.current
	m.state = Authenticating
	m.mu.Unlock()

	restore := func() {
		m.mu.Lock()
		m.state, m.current = prevState, prev
		m.mu.Unlock()
	}

	s, err := fn(ctx)
	if err != nil {
		restore()
		return nil, err
	}
	if err := m.persist(ctx, s); err != nil {
		restore()
		// The server side minted a token nobody will ever hold.
		if rerr := m.auth.SignOut(ctx, s.Token); rerr != nil {
			m.logger.Warn("revoking unpersisted session", slog.String("error", rerr.Error()))
		}
		return nil, apperror.TransportMessage("authentication failed, please try again", err)
	}

	m.mu.Lock()
	m.state, m.current = Authenticated, s
	delete(m.signedOut, s.Token)
	m.mu.Unlock()

	m.logger.Info("session "+event, slog.String("userID", s.User.ID))
	return cloneSession(s), nil
}

// SignOut drops the session. Memory is cleared first and unconditionally;
// the returned error only reports cleanup that did not complete.
func (m *Manager) SignOut(ctx context.Context) error {
	m.op.Lock()
	defer m.op.Unlock()

	m.mu.Lock()
	s := m.current
	m.state, m.current = Anonymous, nil
	if s != nil {
		m.signedOut[s.Token] = true
	}
	m.mu.Unlock()

	var errs []error
	if err := m.store.Delete(ctx, StorageKey); err != nil {
		errs = append(errs, fmt.Errorf("session: clearing %s: %w", StorageKey, err))
	}
	if err := m.store.Delete(ctx, LegacyUserKey); err != nil {
		errs = append(errs, fmt.Errorf("session: clearing %s: %w", LegacyUserKey, err))
	}
	if s != nil {
		if err := m.auth.SignOut(ctx, s.Token); err != nil {
			errs = append(errs, fmt.Errorf("session: revoking token: %w", err))
		}
		m.logger.Info("session signed out", slog.String("userID", s.User.ID))
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		m.logger.Error("sign out cleanup incomplete", slog.String("error", err.Error()))
		return apperror.Transport("signing out", err)
	}
	return nil
}

// Session returns the stored session, or nil when there is none. An expired,
// corrupt or signed-out record is purged and reported as absent.
func (m *Manager) Session(ctx context.Context) (*model.Session, error) {
	m.op.Lock()
	defer m.op.Unlock()

	s, err := m.load(ctx)
	if err != nil || s == nil {
		return nil, err
	}
	return cloneSession(s), nil
}

// Refresh re-reads storage and, when signed in, reloads the profile so
// edits made elsewhere (a new display name, a changed role) show up. When
// the account cannot be found the stored session is returned unchanged;
// only expiry and SignOut end a session.
func (m *Manager) Refresh(ctx context.Context) (*model.Session, error) {
	m.op.Lock()
	defer m.op.Unlock()

	s, err := m.load(ctx)
	if err != nil || s == nil {
		return nil, err
	}

	u, err := m.auth.GetUserByID(ctx, s.User.ID)
	if errors.Is(err, apperror.ErrNotFound) {
		m.logger.Info("session account not found, keeping stored profile", slog.String("userID", s.User.ID))
		return cloneSession(s), nil
	}
	if err != nil {
		return nil, err
	}

	refreshed := cloneSession(s)
	refreshed.User = u.Profile()
	if err := m.persist(ctx, refreshed); err != nil {
		return nil, apperror.Transport("refreshing session", err)
	}
	m.mu.Lock()
	m.current = refreshed
	m.mu.Unlock()
	return cloneSession(refreshed), nil
}

// CurrentUser returns the signed-in profile, or nil for an anonymous client.
func (m *Manager) CurrentUser(ctx context.Context) (*model.User, error) {
	s, err := m.Session(ctx)
	if err != nil || s == nil {
		return nil, err
	}
	return &s.User, nil
}

// load reads the record and brings the in-memory state in line with it.
// Callers hold m.op.
func (m *Manager) load(ctx context.Context) (*model.Session, error) {
	m.clearLegacy(ctx)

	raw, found, err := m.store.Get(ctx, StorageKey)
	if err != nil {
		return nil, apperror.Transport("loading session", fmt.Errorf("session: reading %s: %w", StorageKey, err))
	}
	if !found {
		m.setAnonymous()
		return nil, nil
	}

	var s model.Session
	if err := json.Unmarshal(raw, &s); err != nil || s.Token == "" || s.User.ID == "" || s.ExpiresAt.IsZero() {
		m.logger.Warn("discarding corrupt session record")
		m.drop(ctx, "")
		return nil, nil
	}

	m.mu.Lock()
	stale := m.signedOut[s.Token]
	m.mu.Unlock()
	switch {
	case stale:
		m.logger.Warn("discarding signed-out session record", slog.String("userID", s.User.ID))
		m.drop(ctx, "")
		return nil, nil
	case s.Expired(m.now()):
		m.logger.Info("session expired", slog.String("userID", s.User.ID))
		m.drop(ctx, s.Token)
		return nil, nil
	}

	m.mu.Lock()
	m.state, m.current = Authenticated, &s
	m.mu.Unlock()
	return &s, nil
}

// drop purges the record and goes Anonymous. A purge that fails is logged:
// the token is remembered, so the record is ignored if read again.
func (m *Manager) drop(ctx context.Context, token string) {
	m.mu.Lock()
	m.state, m.current = Anonymous, nil
	if token != "" {
		m.signedOut[token] = true
	}
	m.mu.Unlock()

	if err := m.store.Delete(ctx, StorageKey); err != nil {
		m.logger.Error("purging session record", slog.String("error", err.Error()))
	}
}

func (m *Manager) setAnonymous() {
	m.mu.Lock()
	m.state, m.current = Anonymous, nil
	m.mu.Unlock()
}

func (m *Manager) clearLegacy(ctx context.Context) {
	_, found, err := m.store.Get(ctx, LegacyUserKey)
	if err != nil || !found {
		return
	}
	if err := m.store.Delete(ctx, LegacyUserKey); err != nil {
		m.logger.Warn("clearing legacy user key", slog.String("error", err.Error()))
	}
}

func (m *Manager) persist(ctx context.Context, s *model.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encoding record: %w", err)
	}
	if err := m.store.Set(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("session: writing %s: %w", StorageKey, err)
	}
	return nil
}

func cloneSession(s *model.Session) *model.Session {
	c := *s
	return &c
}
