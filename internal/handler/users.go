package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/service"
)

// UserHandler manages profiles and, for admins, accounts.
type UserHandler struct {
	users  *service.UserService
	likes  *service.LikeService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, likes *service.LikeService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, likes: likes, logger: logger}
}

// HandleList returns every profile. Admin only.
//
// HTTP: GET /api/users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context(), actorFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleGet returns one public profile.
//
// HTTP: GET /api/users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleUpdate applies a partial profile update.
//
// HTTP: PATCH /api/users/{id}
// REQUEST BODY: any of {"full_name","username","display_name","bio","avatar_url"}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var upd service.ProfileUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, err)
		return
	}
	u, err := h.users.UpdateProfile(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleAvatar accepts an avatar upload and returns its URL.
//
// HTTP: POST /api/users/{id}/avatar
// REQUEST BODY: {"filename": "me.png"}
func (h *UserHandler) HandleAvatar(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename string `json:"filename"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	url, err := h.users.UploadAvatar(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Filename)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"avatar_url": url})
}

// HandleUsernameAvailable answers the live check of a profile form.
//
// HTTP: GET /api/users/username-available?username=x&exclude=user-2
func (h *UserHandler) HandleUsernameAvailable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ok, err := h.users.CheckUsernameAvailable(r.Context(), q.Get("username"), q.Get("exclude"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": ok})
}

// HandleDelete removes an account. Admin only; admins cannot be deleted.
//
// HTTP: DELETE /api/users/{id}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRole changes an account's role. Admin only.
//
// HTTP: PUT /api/users/{id}/role
// REQUEST BODY: {"role": "admin"}
func (h *UserHandler) HandleRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role model.Role `json:"role"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	u, err := h.users.UpdateRole(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleLikes lists a user's likes. Own likes, or anyone's for admins.
//
// HTTP: GET /api/users/{id}/likes
func (h *UserHandler) HandleLikes(w http.ResponseWriter, r *http.Request) {
	likes, err := h.likes.UserLikes(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, likes)
}
