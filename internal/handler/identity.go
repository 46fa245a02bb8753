package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/auth"
	"github.com/sakif/portfolio/internal/model"
)

type actorKey struct{}

// UserLoader resolves the account behind a token's user id.
type UserLoader interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// LoadActor turns the claims left by auth.OptionalAuth into the acting user
// for the services. It must run after OptionalAuth. A token whose account
// no longer exists is treated as anonymous.
func LoadActor(users UserLoader, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			u, err := users.GetUserByID(r.Context(), id)
			switch {
			case err == nil:
				r = r.WithContext(context.WithValue(r.Context(), actorKey{}, u))
			case errors.Is(err, apperror.ErrNotFound):
				logger.Info("token names a deleted account", slog.String("userID", id))
			default:
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// actorFrom returns the acting user, or nil for an anonymous request.
func actorFrom(ctx context.Context) *model.User {
	u, _ := ctx.Value(actorKey{}).(*model.User)
	return u
}
