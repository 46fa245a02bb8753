package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/auth"
	"github.com/sakif/portfolio/internal/latency"
	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/repository"
)

const (
	MaxCommentLength = 2000
	// authorLookups bounds concurrent user lookups while joining authors.
	authorLookups = 8
)

// CommentService manages comment threads on projects and blog posts.
type CommentService struct {
	base
	comments repository.CommentRepository
	users    repository.UserRepository
}

func NewCommentService(
	comments repository.CommentRepository,
	users repository.UserRepository,
	sim *latency.Simulator,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		base:     newBase("comment", sim, logger),
		comments: comments,
		users:    users,
	}
}

// List returns the comments on entity, newest first, each joined with its
// author's profile.
func (s *CommentService) List(ctx context.Context, entity model.EntityRef) ([]model.CommentView, error) {
	return run(ctx, &s.base, "listing comments", latency.Default, func(ctx context.Context) ([]model.CommentView, error) {
		if err := validEntity(entity); err != nil {
			return nil, err
		}
		comments, err := s.comments.List(ctx, repository.CommentFilter{
			EntityType: entity.Type,
			EntityID:   entity.ID,
		})
		if err != nil {
			return nil, err
		}
		return s.withAuthors(ctx, comments)
	})
}

// ListAll returns every comment on every entity, newest first. Admin only.
func (s *CommentService) ListAll(ctx context.Context, actor *model.User) ([]model.CommentView, error) {
	return run(ctx, &s.base, "listing all comments", latency.Default, func(ctx context.Context) ([]model.CommentView, error) {
		if err := auth.Authorize(actor, auth.ActionListAllSocial, auth.Resource{}); err != nil {
			return nil, err
		}
		comments, err := s.comments.List(ctx, repository.CommentFilter{})
		if err != nil {
			return nil, err
		}
		return s.withAuthors(ctx, comments)
	})
}

// Create posts content on entity as actor. Content is trimmed and must not
// be empty.
func (s *CommentService) Create(ctx context.Context, actor *model.User, entity model.EntityRef, content string) (*model.Comment, error) {
	return run(ctx, &s.base, "creating comment", latency.Default, func(ctx context.Context) (*model.Comment, error) {
		if err := auth.Authorize(actor, auth.ActionComment, auth.Resource{}); err != nil {
			return nil, err
		}
		if err := validEntity(entity); err != nil {
			return nil, err
		}
		content, err := cleanContent(content)
		if err != nil {
			return nil, err
		}

		c := &model.Comment{
			EntityType: entity.Type,
			EntityID:   entity.ID,
			UserID:     actor.ID,
			Content:    content,
		}
		if err := s.comments.Insert(ctx, c); err != nil {
			return nil, err
		}
		s.logger.Info("comment created",
			slog.String("id", c.ID),
			slog.String("entity", entity.String()),
			slog.String("userID", actor.ID),
		)
		return c, nil
	})
}

// Update replaces the content of comment id. Only its author may edit it;
// the previous content is not kept.
func (s *CommentService) Update(ctx context.Context, actor *model.User, id, content string) (*model.Comment, error) {
	return run(ctx, &s.base, "updating comment", latency.Default, func(ctx context.Context) (*model.Comment, error) {
		if err := auth.Authorize(actor, auth.ActionComment, auth.Resource{}); err != nil {
			return nil, err
		}
		if err := validID(id); err != nil {
			return nil, err
		}
		content, err := cleanContent(content)
		if err != nil {
			return nil, err
		}
		existing, err := s.comments.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := auth.Authorize(actor, auth.ActionEditComment, auth.Resource{OwnerID: existing.UserID}); err != nil {
			return nil, err
		}

		updated, err := s.comments.Update(ctx, id, content)
		if err != nil {
			return nil, err
		}
		s.logger.Info("comment updated",
			slog.String("id", id),
			slog.String("userID", actor.ID),
		)
		return updated, nil
	})
}

// Delete removes comment id. Its author or an admin may delete it.
func (s *CommentService) Delete(ctx context.Context, actor *model.User, id string) error {
	return do(ctx, &s.base, "deleting comment", latency.Default, func(ctx context.Context) error {
		if err := auth.Authorize(actor, auth.ActionComment, auth.Resource{}); err != nil {
			return err
		}
		if err := validID(id); err != nil {
			return err
		}
		existing, err := s.comments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.Authorize(actor, auth.ActionDeleteComment, auth.Resource{OwnerID: existing.UserID}); err != nil {
			return err
		}
		if err := s.comments.Remove(ctx, id); err != nil {
			return err
		}
		s.logger.Info("comment deleted",
			slog.String("id", id),
			slog.String("actorID", actor.ID),
		)
		return nil
	})
}

// withAuthors sorts comments newest first and resolves each distinct author
// concurrently. A deleted author leaves Author nil.
func (s *CommentService) withAuthors(ctx context.Context, comments []model.Comment) ([]model.CommentView, error) {
	sort.SliceStable(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		}
		return comments[i].ID > comments[j].ID
	})

	var (
		mu      sync.Mutex
		authors = make(map[string]*model.User)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(authorLookups)
	for _, id := range distinctAuthors(comments) {
		g.Go(func() error {
			u, err := s.users.GetByID(gctx, id)
			if errors.Is(err, apperror.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("service: resolving comment author %s: %w", id, err)
			}
			p := u.Profile()
			mu.Lock()
			authors[id] = &p
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	views := make([]model.CommentView, len(comments))
	for i, c := range comments {
		views[i] = model.CommentView{Comment: c, Author: authors[c.UserID], Edited: c.Edited()}
	}
	return views, nil
}

func distinctAuthors(comments []model.Comment) []string {
	seen := make(map[string]bool, len(comments))
	var ids []string
	for _, c := range comments {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			ids = append(ids, c.UserID)
		}
	}
	return ids
}

func cleanContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperror.ValidationFailed("content", "Comment content cannot be empty")
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return "", apperror.ValidationFailed("content",
			fmt.Sprintf("Comment must be %d characters or less", MaxCommentLength))
	}
	return content, nil
}

func validEntity(e model.EntityRef) error {
	if !e.Type.Valid() {
		return apperror.ValidationFailed("entity_type",
			fmt.Sprintf("entity type must be %q or %q", model.EntityProject, model.EntityBlog))
	}
	if strings.TrimSpace(e.ID) == "" {
		return apperror.ValidationFailed("entity_id", "entity ID is required")
	}
	return nil
}

func validID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperror.ValidationFailed("id", "comment ID is required")
	}
	return nil
}
