package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/auth"
	"github.com/sakif/portfolio/internal/latency"
	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/repository"
)

// CategoryAll selects every project in ByCategory.
const CategoryAll = "all"

// ProjectService serves the showcase. Reads are public; mutations are
// admin only. Projects are addressed by slug.
type ProjectService struct {
	base
	projects repository.ProjectRepository
}

func NewProjectService(projects repository.ProjectRepository, sim *latency.Simulator, logger *slog.Logger) *ProjectService {
	return &ProjectService{
		base:     newBase("project", sim, logger),
		projects: projects,
	}
}

func (s *ProjectService) List(ctx context.Context) ([]model.Project, error) {
	return run(ctx, &s.base, "listing projects", latency.Default, func(ctx context.Context) ([]model.Project, error) {
		return s.projects.List(ctx, nil)
	})
}

func (s *ProjectService) GetBySlug(ctx context.Context, slug string) (*model.Project, error) {
	return run(ctx, &s.base, "loading project", latency.Default, func(ctx context.Context) (*model.Project, error) {
		return s.projects.GetBySlug(ctx, slug)
	})
}

func (s *ProjectService) Featured(ctx context.Context) ([]model.Project, error) {
	return run(ctx, &s.base, "listing featured projects", latency.Default, func(ctx context.Context) ([]model.Project, error) {
		return s.projects.List(ctx, func(p model.Project) bool { return p.Featured })
	})
}

// ByCategory filters by category, case-insensitively. CategoryAll or an
// empty category returns everything.
func (s *ProjectService) ByCategory(ctx context.Context, category string) ([]model.Project, error) {
	return run(ctx, &s.base, "listing projects by category", latency.Default, func(ctx context.Context) ([]model.Project, error) {
		category = strings.TrimSpace(category)
		if category == "" || strings.EqualFold(category, CategoryAll) {
			return s.projects.List(ctx, nil)
		}
		return s.projects.List(ctx, func(p model.Project) bool {
			return strings.EqualFold(p.Category, category)
		})
	})
}

func (s *ProjectService) Create(ctx context.Context, actor *model.User, p model.Project) (*model.Project, error) {
	return run(ctx, &s.base, "creating project", latency.Default, func(ctx context.Context) (*model.Project, error) {
		if err := auth.Authorize(actor, auth.ActionManageContent, auth.Resource{}); err != nil {
			return nil, err
		}
		p.Slug = strings.TrimSpace(p.Slug)
		p.Title = strings.TrimSpace(p.Title)
		if err := validateStruct(p); err != nil {
			return nil, err
		}
		if err := slugFree(ctx, s.projects.GetBySlug, p.Slug); err != nil {
			return nil, projectSlugTaken(err)
		}

		p.ID = ""
		if err := s.projects.Insert(ctx, &p); err != nil {
			return nil, projectSlugTaken(err)
		}
		s.logger.Info("project created",
			slog.String("id", p.ID),
			slog.String("slug", p.Slug),
		)
		return &p, nil
	})
}

// Update applies patch to the project currently at slug. Renaming to a slug
// another project uses is a Conflict.
func (s *ProjectService) Update(ctx context.Context, actor *model.User, slug string, patch model.ProjectPatch) (*model.Project, error) {
	return run(ctx, &s.base, "updating project", latency.Default, func(ctx context.Context) (*model.Project, error) {
		if err := auth.Authorize(actor, auth.ActionManageContent, auth.Resource{}); err != nil {
			return nil, err
		}
		if err := validateStruct(patch); err != nil {
			return nil, err
		}
		existing, err := s.projects.GetBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		if patch.Slug != nil && *patch.Slug != existing.Slug {
			if err := slugFree(ctx, s.projects.GetBySlug, *patch.Slug); err != nil {
				return nil, projectSlugTaken(err)
			}
		}

		updated, err := s.projects.Update(ctx, existing.ID, patch)
		if err != nil {
			return nil, projectSlugTaken(err)
		}
		s.logger.Info("project updated",
			slog.String("id", updated.ID),
			slog.String("slug", updated.Slug),
		)
		return updated, nil
	})
}

func (s *ProjectService) Delete(ctx context.Context, actor *model.User, slug string) error {
	return do(ctx, &s.base, "deleting project", latency.Default, func(ctx context.Context) error {
		if err := auth.Authorize(actor, auth.ActionManageContent, auth.Resource{}); err != nil {
			return err
		}
		existing, err := s.projects.GetBySlug(ctx, slug)
		if err != nil {
			return err
		}
		if err := s.projects.Remove(ctx, existing.ID); err != nil {
			return err
		}
		s.logger.Info("project deleted", slog.String("slug", slug))
		return nil
	})
}

// slugFree returns nil when no record uses slug and a Conflict otherwise.
// On rename, callers only ask about slugs that differ from the record's own.
func slugFree[T any](ctx context.Context, get func(context.Context, string) (*T, error), slug string) error {
	_, err := get(ctx, slug)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return apperror.Conflict("slug", slug)
}

// projectSlugTaken rewrites a slug conflict into the message the admin UI
// shows. Other errors pass through.
func projectSlugTaken(err error) error {
	if errors.Is(err, apperror.ErrConflict) {
		e := apperror.ConflictMessage("Project with this slug already exists")
		e.Field = "slug"
		return e
	}
	return err
}
