// Package auth provides session tokens, password hashing, OAuth providers,
// HTTP middleware and the authorization policy.
//
// SESSION TOKENS:
// A session token is an HS256-signed JWT:
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Payload: {"sub":"<user id>","jti":"<uuid>","exp":...,"iat":...,"iss":"portfolio"}
//
// The server verifies a token with nothing but the secret. The jti makes every
// sign-in mint a distinct token even for the same user in the same second,
// and is what Revoke records so a signed-out token stops working before it
// expires.
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "portfolio"

// DefaultSessionTTL is how long a session token stays valid.
const DefaultSessionTTL = 24 * time.Hour

var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenRevoked = errors.New("auth: token revoked")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Claims is what a valid token says about its bearer.
type Claims struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// TokenService handles JWT creation, validation and revocation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // jti → token expiry
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithTokenClock replaces time.Now for expiry decisions.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService creates a TokenService. The secret must be at least 16
// characters; production deployments should use 32 random bytes.
// A non-positive ttl means DefaultSessionTTL.
func NewTokenService(secret string, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &TokenService{
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the lifetime of tokens minted by Generate.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

type claims struct {
	jwt.RegisteredClaims
}

// Generate mints a session token for userID that expires after TTL.
func (s *TokenService) Generate(userID string) (string, time.Time, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration mints a token with a custom lifetime. The returned
// expiry is the one encoded in the token (second precision).
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, time.Time, error) {
	now := s.now()
	exp := jwt.NewNumericDate(now.Add(d))

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: exp,
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, exp.Time, nil
}

// parse verifies the signature, algorithm, issuer and expiry.
// A token is expired from the instant now reaches exp.
func (s *TokenService) parse(tokenStr string) (*claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.Subject == "" || c.ID == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}

// Validate returns the claims of a valid, unrevoked token.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	c, err := s.parse(tokenStr)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	_, revoked := s.revoked[c.ID]
	s.mu.Unlock()
	if revoked {
		return nil, ErrTokenRevoked
	}

	return &Claims{UserID: c.Subject, TokenID: c.ID, ExpiresAt: c.ExpiresAt.Time}, nil
}

// Revoke makes a token invalid before its expiry. Revoking an expired or
// malformed token is a no-op: it can never validate anyway.
func (s *TokenService) Revoke(tokenStr string) {
	c, err := s.parse(tokenStr)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.revoked {
		if !now.Before(exp) {
			delete(s.revoked, id)
		}
	}
	s.revoked[c.ID] = c.ExpiresAt.Time
}
