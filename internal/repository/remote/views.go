package remote

import (
	"context"
	"net/http"

	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/repository"
)

const (
	tableViews       = "page_views"
	rpcIncrementView = "rpc/increment_page_view"
)

var _ repository.ViewCounter = (*ViewCounter)(nil)

// ViewCounter stores per-page view counts in the page_views table. Increments
// go through a stored procedure so two visitors never read-modify-write the
// same row.
type ViewCounter struct {
	c *Client
}

type viewRow struct {
	EntityType model.EntityType `json:"entity_type"`
	Slug       string           `json:"slug"`
	ViewCount  int64            `json:"view_count"`
}

func (v *ViewCounter) Increment(ctx context.Context, entityType model.EntityType, slug string) (int64, error) {
	body := map[string]any{"p_entity_type": entityType, "p_slug": slug}

	var count int64
	if err := v.c.do(ctx, http.MethodPost, rpcIncrementView, nil, body, &count); err != nil {
		return 0, mapError("recording view", "page view", slug, err)
	}
	return count, nil
}

// Get returns 0 for a page nobody has opened yet.
func (v *ViewCounter) Get(ctx context.Context, entityType model.EntityType, slug string) (int64, error) {
	var rows []viewRow
	q := eq("entity_type", string(entityType), "slug", slug)
	if err := v.c.do(ctx, http.MethodGet, tableViews, q, nil, &rows); err != nil {
		return 0, mapError("loading views", "page view", slug, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].ViewCount, nil
}
