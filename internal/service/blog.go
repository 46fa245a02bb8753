package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/auth"
	"github.com/sakif/portfolio/internal/latency"
	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/repository"
)

// BlogService serves blog posts. Only published posts are visible to the
// public; admins can also read drafts by slug and list everything.
type BlogService struct {
	base
	blogs repository.BlogRepository
}

func NewBlogService(blogs repository.BlogRepository, sim *latency.Simulator, logger *slog.Logger) *BlogService {
	return &BlogService{
		base:  newBase("blog", sim, logger),
		blogs: blogs,
	}
}

func published(b model.BlogPost) bool { return b.Published }

// List returns published posts.
func (s *BlogService) List(ctx context.Context) ([]model.BlogPost, error) {
	return run(ctx, &s.base, "listing blog posts", latency.Default, func(ctx context.Context) ([]model.BlogPost, error) {
		return s.blogs.List(ctx, published)
	})
}

// ListAll returns every post, drafts included. Admin only.
func (s *BlogService) ListAll(ctx context.Context, actor *model.User) ([]model.BlogPost, error) {
	return run(ctx, &s.base, "listing all blog posts", latency.Default, func(ctx context.Context) ([]model.BlogPost, error) {
		if err := auth.Authorize(actor, auth.ActionViewDrafts, auth.Resource{}); err != nil {
			return nil, err
		}
		return s.blogs.List(ctx, nil)
	})
}

// GetBySlug returns the post at slug. A draft is NotFound unless actor is an
// admin, so its existence is not revealed.
func (s *BlogService) GetBySlug(ctx context.Context, actor *model.User, slug string) (*model.BlogPost, error) {
	return run(ctx, &s.base, "loading blog post", latency.Default, func(ctx context.Context) (*model.BlogPost, error) {
		post, err := s.blogs.GetBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		if !post.Published && auth.Authorize(actor, auth.ActionViewDrafts, auth.Resource{}) != nil {
			return nil, apperror.NotFound("blog post", slug)
		}
		return post, nil
	})
}

// ByTag returns published posts carrying tag, compared case-insensitively.
func (s *BlogService) ByTag(ctx context.Context, tag string) ([]model.BlogPost, error) {
	return run(ctx, &s.base, "listing blog posts by tag", latency.Default, func(ctx context.Context) ([]model.BlogPost, error) {
		tag = strings.TrimSpace(tag)
		return s.blogs.List(ctx, func(b model.BlogPost) bool {
			return b.Published && slices.ContainsFunc(b.Tags, func(t string) bool {
				return strings.EqualFold(t, tag)
			})
		})
	})
}

// ByAuthor returns published posts written by authorID.
func (s *BlogService) ByAuthor(ctx context.Context, authorID string) ([]model.BlogPost, error) {
	return run(ctx, &s.base, "listing blog posts by author", latency.Default, func(ctx context.Context) ([]model.BlogPost, error) {
		return s.blogs.List(ctx, func(b model.BlogPost) bool {
			return b.Published && b.AuthorID == authorID
		})
	})
}

// Create stores a new post. The author defaults to the acting admin.
func (s *BlogService) Create(ctx context.Context, actor *model.User, post model.BlogPost) (*model.BlogPost, error) {
	return run(ctx, &s.base, "creating blog post", latency.Default, func(ctx context.Context) (*model.BlogPost, error) {
		if err := auth.Authorize(actor, auth.ActionManageContent, auth.Resource{}); err != nil {
			return nil, err
		}
		post.Slug = strings.TrimSpace(post.Slug)
		post.Title = strings.TrimSpace(post.Title)
		if err := validateStruct(post); err != nil {
			return nil, err
		}
		if post.AuthorID == "" {
			post.AuthorID = actor.ID
		}
		if err := slugFree(ctx, s.blogs.GetBySlug, post.Slug); err != nil {
			return nil, blogSlugTaken(err)
		}

		post.ID = ""
		if err := s.blogs.Insert(ctx, &post); err != nil {
			return nil, blogSlugTaken(err)
		}
		s.logger.Info("blog post created",
			slog.String("id", post.ID),
			slog.String("slug", post.Slug),
			slog.Bool("published", post.Published),
		)
		return &post, nil
	})
}

func (s *BlogService) Update(ctx context.Context, actor *model.User, slug string, patch model.BlogPatch) (*model.BlogPost, error) {
	return run(ctx, &s.base, "updating blog post", latency.Default, func(ctx context.Context) (*model.BlogPost, error) {
		if err := auth.Authorize(actor, auth.ActionManageContent, auth.Resource{}); err != nil {
			return nil, err
		}
		if err := validateStruct(patch); err != nil {
			return nil, err
		}
		existing, err := s.blogs.GetBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		if patch.Slug != nil && *patch.Slug != existing.Slug {
			if err := slugFree(ctx, s.blogs.GetBySlug, *patch.Slug); err != nil {
				return nil, blogSlugTaken(err)
			}
		}

		updated, err := s.blogs.Update(ctx, existing.ID, patch)
		if err != nil {
			return nil, blogSlugTaken(err)
		}
		s.logger.Info("blog post updated",
			slog.String("id", updated.ID),
			slog.String("slug", updated.Slug),
		)
		return updated, nil
	})
}

func (s *BlogService) Delete(ctx context.Context, actor *model.User, slug string) error {
	return do(ctx, &s.base, "deleting blog post", latency.Default, func(ctx context.Context) error {
		if err := auth.Authorize(actor, auth.ActionManageContent, auth.Resource{}); err != nil {
			return err
		}
		existing, err := s.blogs.GetBySlug(ctx, slug)
		if err != nil {
			return err
		}
		if err := s.blogs.Remove(ctx, existing.ID); err != nil {
			return err
		}
		s.logger.Info("blog post deleted", slog.String("slug", slug))
		return nil
	})
}

func blogSlugTaken(err error) error {
	if errors.Is(err, apperror.ErrConflict) {
		e := apperror.ConflictMessage("Blog post with this slug already exists")
		e.Field = "slug"
		return e
	}
	return err
}
