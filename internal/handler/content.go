package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/service"
)

// ProjectHandler serves the portfolio projects. Reads are public; writes
// are admin only (enforced by ProjectService).
type ProjectHandler struct {
	projects *service.ProjectService
	logger   *slog.Logger
}

func NewProjectHandler(projects *service.ProjectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, logger: logger}
}

// HandleList returns projects, optionally filtered.
//
// HTTP: GET /api/projects[?featured=true][?category=Frontend]
func (h *ProjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		projects []model.Project
		err      error
	)
	switch {
	case featured(q.Get("featured")):
		projects, err = h.projects.Featured(r.Context())
	case q.Has("category"):
		projects, err = h.projects.ByCategory(r.Context(), q.Get("category"))
	default:
		projects, err = h.projects.List(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// HandleGet returns one project.
//
// HTTP: GET /api/projects/{slug}
func (h *ProjectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.projects.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleCreate adds a project.
//
// HTTP: POST /api/projects
func (h *ProjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var p model.Project
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, err)
		return
	}
	created, err := h.projects.Create(r.Context(), actorFrom(r.Context()), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleUpdate applies a partial update; a new slug renames the project.
//
// HTTP: PATCH /api/projects/{slug}
func (h *ProjectHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch model.ProjectPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.projects.Update(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "slug"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleDelete removes a project.
//
// HTTP: DELETE /api/projects/{slug}
func (h *ProjectHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.projects.Delete(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "slug")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func featured(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// BlogHandler serves blog posts. Anonymous readers and non-admins only ever
// see published posts.
type BlogHandler struct {
	blogs  *service.BlogService
	logger *slog.Logger
}

func NewBlogHandler(blogs *service.BlogService, logger *slog.Logger) *BlogHandler {
	return &BlogHandler{blogs: blogs, logger: logger}
}

// HandleList returns published posts, optionally filtered. Admins may ask
// for drafts too with ?drafts=true.
//
// HTTP: GET /api/blogs[?tag=React][?author=user-2][?drafts=true]
func (h *BlogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		posts []model.BlogPost
		err   error
	)
	switch {
	case q.Get("drafts") == "true":
		posts, err = h.blogs.ListAll(r.Context(), actorFrom(r.Context()))
	case q.Has("tag"):
		posts, err = h.blogs.ByTag(r.Context(), q.Get("tag"))
	case q.Has("author"):
		posts, err = h.blogs.ByAuthor(r.Context(), q.Get("author"))
	default:
		posts, err = h.blogs.List(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleGet returns one post.
//
// HTTP: GET /api/blogs/{slug}
func (h *BlogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.blogs.GetBySlug(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HTTP: POST /api/blogs
func (h *BlogHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var p model.BlogPost
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, err)
		return
	}
	created, err := h.blogs.Create(r.Context(), actorFrom(r.Context()), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HTTP: PATCH /api/blogs/{slug}
func (h *BlogHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch model.BlogPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.blogs.Update(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "slug"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HTTP: DELETE /api/blogs/{slug}
func (h *BlogHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.blogs.Delete(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "slug")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
