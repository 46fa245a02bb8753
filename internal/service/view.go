package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/latency"
	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/repository"
)

// ViewService counts detail-page views. Counts need a persistent backend;
// without one every call reports NotConfigured and the page shows the
// "not configured" state instead of a number.
type ViewService struct {
	base
	counter repository.ViewCounter
}

// NewViewService accepts a nil counter for mock mode.
func NewViewService(counter repository.ViewCounter, sim *latency.Simulator, logger *slog.Logger) *ViewService {
	return &ViewService{
		base:    newBase("view", sim, logger),
		counter: counter,
	}
}

func (s *ViewService) Configured() bool {
	return s.counter != nil
}

// Record counts one view of the entity at slug and returns the new total.
func (s *ViewService) Record(ctx context.Context, entityType model.EntityType, slug string) (model.ViewCount, error) {
	return run(ctx, &s.base, "recording view", latency.Short, func(ctx context.Context) (model.ViewCount, error) {
		if err := s.check(entityType, slug); err != nil {
			return model.ViewCount{}, err
		}
		n, err := s.counter.Increment(ctx, entityType, slug)
		if err != nil {
			return model.ViewCount{}, err
		}
		return model.ViewCount{EntityType: entityType, Slug: slug, Count: n}, nil
	})
}

func (s *ViewService) Get(ctx context.Context, entityType model.EntityType, slug string) (model.ViewCount, error) {
	return run(ctx, &s.base, "loading views", latency.Short, func(ctx context.Context) (model.ViewCount, error) {
		if err := s.check(entityType, slug); err != nil {
			return model.ViewCount{}, err
		}
		n, err := s.counter.Get(ctx, entityType, slug)
		if err != nil {
			return model.ViewCount{}, err
		}
		return model.ViewCount{EntityType: entityType, Slug: slug, Count: n}, nil
	})
}

func (s *ViewService) check(entityType model.EntityType, slug string) error {
	if s.counter == nil {
		return apperror.NotConfigured("View counts are not available: no backend is configured")
	}
	if !entityType.Valid() {
		return apperror.ValidationFailed("entity_type", "unknown entity type")
	}
	if strings.TrimSpace(slug) == "" {
		return apperror.ValidationFailed("slug", "slug is required")
	}
	return nil
}
