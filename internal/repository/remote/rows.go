package remote

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/repository"
)

const (
	tableComments = "comments"
	tableLikes    = "likes"
)

var (
	_ repository.CommentRepository = (*CommentStore)(nil)
	_ repository.LikeRepository    = (*LikeStore)(nil)
)

// CommentStore keeps comments in the remote comments table.
type CommentStore struct {
	c *Client
}

func commentQuery(f repository.CommentFilter) url.Values {
	return eq("entity_type", string(f.EntityType), "entity_id", f.EntityID, "user_id", f.UserID)
}

func (s *CommentStore) List(ctx context.Context, filter repository.CommentFilter) ([]model.Comment, error) {
	q := commentQuery(filter)
	q.Set("order", "created_at.desc")

	var rows []model.Comment
	if err := s.c.do(ctx, http.MethodGet, tableComments, q, nil, &rows); err != nil {
		return nil, mapError("listing comments", "comment", "", err)
	}
	return rows, nil
}

func (s *CommentStore) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	q, ok := exact("id", id)
	if !ok {
		return nil, apperror.NotFound("comment", id)
	}
	var rows []model.Comment
	if err := s.c.do(ctx, http.MethodGet, tableComments, q, nil, &rows); err != nil {
		return nil, mapError("loading comment", "comment", id, err)
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound("comment", id)
	}
	return &rows[0], nil
}

// Insert sends the comment without an id when it has none; the backend
// assigns the id and timestamps, which are copied back into comment.
func (s *CommentStore) Insert(ctx context.Context, comment *model.Comment) error {
	body := map[string]any{
		"entity_type": comment.EntityType,
		"entity_id":   comment.EntityID,
		"user_id":     comment.UserID,
		"content":     comment.Content,
	}
	if comment.ID != "" {
		body["id"] = comment.ID
	}

	var rows []model.Comment
	if err := s.c.do(ctx, http.MethodPost, tableComments, nil, body, &rows); err != nil {
		return mapError("creating comment", "comment", comment.ID, err)
	}
	if len(rows) == 0 {
		return apperror.TransportMessage("creating comment failed", nil)
	}
	*comment = rows[0]
	return nil
}

func (s *CommentStore) Update(ctx context.Context, id string, content string) (*model.Comment, error) {
	q, ok := exact("id", id)
	if !ok {
		return nil, apperror.NotFound("comment", id)
	}
	body := map[string]any{
		"content":    content,
		"updated_at": time.Now().UTC(),
	}
	var rows []model.Comment
	if err := s.c.do(ctx, http.MethodPatch, tableComments, q, body, &rows); err != nil {
		return nil, mapError("updating comment", "comment", id, err)
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound("comment", id)
	}
	return &rows[0], nil
}

func (s *CommentStore) Remove(ctx context.Context, id string) error {
	q, ok := exact("id", id)
	if !ok {
		return apperror.NotFound("comment", id)
	}
	var rows []model.Comment
	if err := s.c.do(ctx, http.MethodDelete, tableComments, q, nil, &rows); err != nil {
		return mapError("deleting comment", "comment", id, err)
	}
	if len(rows) == 0 {
		return apperror.NotFound("comment", id)
	}
	return nil
}

// LikeStore keeps likes in the remote likes table. The backend is expected to
// carry a unique index on (entity_type, entity_id, user_id) and to answer a
// duplicate insert with 409.
type LikeStore struct {
	c *Client
}

// keyQuery targets the single row of k. It reports false unless all three
// parts are set.
func keyQuery(k model.LikeKey) (url.Values, bool) {
	return exact("entity_type", string(k.Entity.Type), "entity_id", k.Entity.ID, "user_id", k.UserID)
}

func (s *LikeStore) List(ctx context.Context, filter repository.LikeFilter) ([]model.Like, error) {
	q := eq("entity_type", string(filter.EntityType), "entity_id", filter.EntityID, "user_id", filter.UserID)
	var rows []model.Like
	if err := s.c.do(ctx, http.MethodGet, tableLikes, q, nil, &rows); err != nil {
		return nil, mapError("listing likes", "like", "", err)
	}
	return rows, nil
}

func (s *LikeStore) Find(ctx context.Context, key model.LikeKey) (*model.Like, error) {
	q, ok := keyQuery(key)
	if !ok {
		return nil, apperror.NotFound("like", key.String())
	}
	var rows []model.Like
	if err := s.c.do(ctx, http.MethodGet, tableLikes, q, nil, &rows); err != nil {
		return nil, mapError("loading like", "like", key.String(), err)
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound("like", key.String())
	}
	return &rows[0], nil
}

func (s *LikeStore) Count(ctx context.Context, entity model.EntityRef) (int, error) {
	q := eq("entity_type", string(entity.Type), "entity_id", entity.ID)
	q.Set("select", "id")

	var rows []struct {
		ID string `json:"id"`
	}
	if err := s.c.do(ctx, http.MethodGet, tableLikes, q, nil, &rows); err != nil {
		return 0, mapError("counting likes", "like", entity.String(), err)
	}
	return len(rows), nil
}

func (s *LikeStore) Insert(ctx context.Context, like *model.Like) error {
	body := map[string]any{
		"entity_type": like.EntityType,
		"entity_id":   like.EntityID,
		"user_id":     like.UserID,
	}
	if like.ID != "" {
		body["id"] = like.ID
	}

	var rows []model.Like
	if err := s.c.do(ctx, http.MethodPost, tableLikes, nil, body, &rows); err != nil {
		return mapError("creating like", "like", like.Key().String(), err)
	}
	if len(rows) == 0 {
		return apperror.TransportMessage("creating like failed", nil)
	}
	*like = rows[0]
	return nil
}

func (s *LikeStore) Remove(ctx context.Context, id string) error {
	q, ok := exact("id", id)
	if !ok {
		return apperror.NotFound("like", id)
	}
	var rows []model.Like
	if err := s.c.do(ctx, http.MethodDelete, tableLikes, q, nil, &rows); err != nil {
		return mapError("deleting like", "like", id, err)
	}
	if len(rows) == 0 {
		return apperror.NotFound("like", id)
	}
	return nil
}

func (s *LikeStore) DeleteTriple(ctx context.Context, key model.LikeKey) error {
	q, ok := keyQuery(key)
	if !ok {
		return apperror.NotFound("like", key.String())
	}
	var rows []model.Like
	if err := s.c.do(ctx, http.MethodDelete, tableLikes, q, nil, &rows); err != nil {
		return mapError("deleting like", "like", key.String(), err)
	}
	if len(rows) == 0 {
		return apperror.NotFound("like", key.String())
	}
	return nil
}
