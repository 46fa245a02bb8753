package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is unexported so only this package can read or write the
// values it stores in a request context.
type contextKey string

const (
	claimsKey contextKey = "claims"
	tokenKey  contextKey = "token"
)

// TokenCookie is the cookie a browser front end may carry the session token in.
const TokenCookie = "token"

// RequireAuth rejects requests without a valid session token with 401 and
// otherwise stores the token's claims in the request context.
//
// The token is read from "Authorization: Bearer <jwt>" first and from the
// HttpOnly "token" cookie second.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, claims, err := authenticate(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), raw, claims)))
		})
	}
}

// OptionalAuth attaches the caller's identity when a valid token is present
// and lets anonymous requests through untouched.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw, claims, err := authenticate(r, tokens); err == nil {
				r = r.WithContext(withClaims(r.Context(), raw, claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withClaims(ctx context.Context, raw string, c *Claims) context.Context {
	ctx = context.WithValue(ctx, claimsKey, c)
	return context.WithValue(ctx, tokenKey, raw)
}

// ClaimsFromContext returns the authenticated caller's claims, or (nil, false)
// for an anonymous request.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// UserIDFromContext returns ("", false) for anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", false
	}
	return c.UserID, c.UserID != ""
}

// TokenFromContext returns the raw token the request was authenticated with.
func TokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey).(string)
	return t, ok && t != ""
}

// TokenFromRequest extracts the raw session token without validating it.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func authenticate(r *http.Request, tokens *TokenService) (string, *Claims, error) {
	raw := TokenFromRequest(r)
	if raw == "" {
		return "", nil, ErrInvalidToken
	}
	c, err := tokens.Validate(raw)
	if err != nil {
		return "", nil, err
	}
	return raw, c, nil
}
