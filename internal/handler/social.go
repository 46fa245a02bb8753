package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/service"
)

// SocialHandler serves comments, likes and view counts of projects and blog
// posts. Routes are mounted under /api/{entityType}/{ref}, where entityType
// is "project" or "blog". ref is the entity id for comments and likes and
// the slug for views, matching how each is keyed in storage.
type SocialHandler struct {
	comments *service.CommentService
	likes    *service.LikeService
	views    *service.ViewService
	logger   *slog.Logger
}

func NewSocialHandler(
	comments *service.CommentService,
	likes *service.LikeService,
	views *service.ViewService,
	logger *slog.Logger,
) *SocialHandler {
	return &SocialHandler{comments: comments, likes: likes, views: views, logger: logger}
}

func entityFrom(r *http.Request) model.EntityRef {
	return model.EntityRef{
		Type: model.EntityType(chi.URLParam(r, "entityType")),
		ID:   chi.URLParam(r, "ref"),
	}
}

type contentRequest struct {
	Content string `json:"content"`
}

// HandleListComments returns the thread newest first with authors joined.
//
// HTTP: GET /api/{entityType}/{ref}/comments
func (h *SocialHandler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	views, err := h.comments.List(r.Context(), entityFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// HTTP: POST /api/{entityType}/{ref}/comments
// REQUEST BODY: {"content": "Nice work"}
func (h *SocialHandler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.comments.Create(r.Context(), actorFrom(r.Context()), entityFrom(r), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HTTP: PATCH /api/comments/{id}
func (h *SocialHandler) HandleUpdateComment(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.comments.Update(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HTTP: DELETE /api/comments/{id}
func (h *SocialHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	if err := h.comments.Delete(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAllComments lists every comment. Admin only.
//
// HTTP: GET /api/comments
func (h *SocialHandler) HandleAllComments(w http.ResponseWriter, r *http.Request) {
	views, err := h.comments.ListAll(r.Context(), actorFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleGetLikes returns {count, hasLiked} for the caller.
//
// HTTP: GET /api/{entityType}/{ref}/likes
func (h *SocialHandler) HandleGetLikes(w http.ResponseWriter, r *http.Request) {
	var userID string
	if u := actorFrom(r.Context()); u != nil {
		userID = u.ID
	}
	data, err := h.likes.GetLikeData(r.Context(), entityFrom(r), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// HandleToggleLike flips the caller's like and returns {liked, count}.
//
// HTTP: POST /api/{entityType}/{ref}/likes
func (h *SocialHandler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	res, err := h.likes.Toggle(r.Context(), actorFrom(r.Context()), entityFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleAllLikes lists every like. Admin only.
//
// HTTP: GET /api/likes
func (h *SocialHandler) HandleAllLikes(w http.ResponseWriter, r *http.Request) {
	likes, err := h.likes.ListAll(r.Context(), actorFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, likes)
}

// HTTP: GET /api/{entityType}/{ref}/views
func (h *SocialHandler) HandleGetViews(w http.ResponseWriter, r *http.Request) {
	e := entityFrom(r)
	vc, err := h.views.Get(r.Context(), e.Type, e.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vc)
}

// HandleRecordView counts one visit of a detail page.
//
// HTTP: POST /api/{entityType}/{ref}/views
func (h *SocialHandler) HandleRecordView(w http.ResponseWriter, r *http.Request) {
	e := entityFrom(r)
	vc, err := h.views.Record(r.Context(), e.Type, e.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vc)
}
