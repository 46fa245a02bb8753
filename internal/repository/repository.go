// Package repository defines the storage contracts the service layer depends on.
//
// Services never know which backend is behind an interface. In mock mode every
// store is the in-memory implementation (package memory); when a remote backend
// is configured the comment and like stores are swapped for package remote, and
// view counts come from remote or redis.
//
// Contract shared by every entity store:
//   - reads return copies; mutating a returned value never changes the store
//   - Insert assigns an id when the record has none and sets created_at == updated_at
//   - Update refreshes updated_at to a value strictly later than the previous one
//   - a missing id is apperror.ErrNotFound, a uniqueness violation apperror.ErrConflict
package repository

import (
	"context"

	"github.com/sakif/portfolio/internal/model"
)

// Predicate selects records in List. A nil predicate selects everything.
type Predicate[T any] func(T) bool

type UserRepository interface {
	List(ctx context.Context, where Predicate[model.User]) ([]model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Insert(ctx context.Context, user *model.User) error
	Update(ctx context.Context, id string, patch model.UserPatch) (*model.User, error)
	Remove(ctx context.Context, id string) error
}

type ProjectRepository interface {
	List(ctx context.Context, where Predicate[model.Project]) ([]model.Project, error)
	GetByID(ctx context.Context, id string) (*model.Project, error)
	GetBySlug(ctx context.Context, slug string) (*model.Project, error)
	Insert(ctx context.Context, project *model.Project) error
	Update(ctx context.Context, id string, patch model.ProjectPatch) (*model.Project, error)
	Remove(ctx context.Context, id string) error
}

type BlogRepository interface {
	List(ctx context.Context, where Predicate[model.BlogPost]) ([]model.BlogPost, error)
	GetByID(ctx context.Context, id string) (*model.BlogPost, error)
	GetBySlug(ctx context.Context, slug string) (*model.BlogPost, error)
	Insert(ctx context.Context, post *model.BlogPost) error
	Update(ctx context.Context, id string, patch model.BlogPatch) (*model.BlogPost, error)
	Remove(ctx context.Context, id string) error
}

// CommentFilter narrows a comment listing. Zero fields match anything.
//
// It is a struct rather than a Predicate because the remote store has to
// translate it into query parameters.
type CommentFilter struct {
	EntityType model.EntityType
	EntityID   string
	UserID     string
}

// Match reports whether c satisfies every non-zero field of f.
func (f CommentFilter) Match(c model.Comment) bool {
	return (f.EntityType == "" || c.EntityType == f.EntityType) &&
		(f.EntityID == "" || c.EntityID == f.EntityID) &&
		(f.UserID == "" || c.UserID == f.UserID)
}

type CommentRepository interface {
	List(ctx context.Context, filter CommentFilter) ([]model.Comment, error)
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	Insert(ctx context.Context, comment *model.Comment) error
	Update(ctx context.Context, id string, content string) (*model.Comment, error)
	Remove(ctx context.Context, id string) error
}

// LikeFilter narrows a like listing. Zero fields match anything.
type LikeFilter struct {
	EntityType model.EntityType
	EntityID   string
	UserID     string
}

func (f LikeFilter) Match(l model.Like) bool {
	return (f.EntityType == "" || l.EntityType == f.EntityType) &&
		(f.EntityID == "" || l.EntityID == f.EntityID) &&
		(f.UserID == "" || l.UserID == f.UserID)
}

// LikeRepository stores likes. The (entity type, entity id, user id) triple
// is unique: inserting a second like for the same triple is a conflict.
type LikeRepository interface {
	List(ctx context.Context, filter LikeFilter) ([]model.Like, error)
	// Find returns the like for key, or apperror.ErrNotFound.
	Find(ctx context.Context, key model.LikeKey) (*model.Like, error)
	Count(ctx context.Context, entity model.EntityRef) (int, error)
	Insert(ctx context.Context, like *model.Like) error
	Remove(ctx context.Context, id string) error
	DeleteTriple(ctx context.Context, key model.LikeKey) error
}

// ViewCounter persists page-view counts per (entity type, slug).
type ViewCounter interface {
	Increment(ctx context.Context, entityType model.EntityType, slug string) (int64, error)
	Get(ctx context.Context, entityType model.EntityType, slug string) (int64, error)
}

// KeyValueStore is durable client-side storage: a flat namespace of byte
// values. Get reports found=false for a missing key rather than an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
