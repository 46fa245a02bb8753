package memory

import (
	"context"
	"time"

	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/realtime"
	"github.com/sakif/portfolio/internal/repository"
)

var (
	_ repository.ProjectRepository = (*ProjectStore)(nil)
	_ repository.BlogRepository    = (*BlogStore)(nil)
)

// ProjectStore keeps projects unique by slug.
type ProjectStore struct {
	t *table[model.Project]
}

func newProjectStore(o options) *ProjectStore {
	return &ProjectStore{t: newTable(schema[model.Project]{
		resource: "project",
		table:    realtime.TableProjects,
		id:       func(p *model.Project) *string { return &p.ID },
		created:  func(p *model.Project) *time.Time { return &p.CreatedAt },
		updated:  func(p *model.Project) *time.Time { return &p.UpdatedAt },
		clone:    model.Project.Clone,
		unique: []uniqueKey[model.Project]{
			{name: "slug", value: func(p *model.Project) string { return p.Slug }},
		},
	}, o.now, o.pub)}
}

func (s *ProjectStore) List(ctx context.Context, where repository.Predicate[model.Project]) ([]model.Project, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	if where == nil {
		return s.t.list(nil), nil
	}
	return s.t.list(func(p *model.Project) bool { return where(*p) }), nil
}

func (s *ProjectStore) GetByID(ctx context.Context, id string) (*model.Project, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	return s.t.get(id)
}

func (s *ProjectStore) GetBySlug(ctx context.Context, slug string) (*model.Project, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	return s.t.find(slug, func(p *model.Project) bool { return p.Slug == slug })
}

func (s *ProjectStore) Insert(ctx context.Context, project *model.Project) error {
	if err := live(ctx); err != nil {
		return err
	}
	return s.t.insert(project)
}

func (s *ProjectStore) Update(ctx context.Context, id string, patch model.ProjectPatch) (*model.Project, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	return s.t.update(id, patch.Apply)
}

func (s *ProjectStore) Remove(ctx context.Context, id string) error {
	if err := live(ctx); err != nil {
		return err
	}
	return s.t.remove(id)
}

// BlogStore keeps posts unique by slug. Blog slugs and project slugs are
// separate namespaces.
type BlogStore struct {
	t *table[model.BlogPost]
}

func newBlogStore(o options) *BlogStore {
	return &BlogStore{t: newTable(schema[model.BlogPost]{
		resource: "blog post",
		table:    realtime.TableBlogs,
		id:       func(b *model.BlogPost) *string { return &b.ID },
		created:  func(b *model.BlogPost) *time.Time { return &b.CreatedAt },
		updated:  func(b *model.BlogPost) *time.Time { return &b.UpdatedAt },
		clone:    model.BlogPost.Clone,
		unique: []uniqueKey[model.BlogPost]{
			{name: "slug", value: func(b *model.BlogPost) string { return b.Slug }},
		},
	}, o.now, o.pub)}
}

func (s *BlogStore) List(ctx context.Context, where repository.Predicate[model.BlogPost]) ([]model.BlogPost, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	if where == nil {
		return s.t.list(nil), nil
	}
	return s.t.list(func(b *model.BlogPost) bool { return where(*b) }), nil
}

func (s *BlogStore) GetByID(ctx context.Context, id string) (*model.BlogPost, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	return s.t.get(id)
}

func (s *BlogStore) GetBySlug(ctx context.Context, slug string) (*model.BlogPost, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	return s.t.find(slug, func(b *model.BlogPost) bool { return b.Slug == slug })
}

func (s *BlogStore) Insert(ctx context.Context, post *model.BlogPost) error {
	if err := live(ctx); err != nil {
		return err
	}
	return s.t.insert(post)
}

func (s *BlogStore) Update(ctx context.Context, id string, patch model.BlogPatch) (*model.BlogPost, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	return s.t.update(id, patch.Apply)
}

func (s *BlogStore) Remove(ctx context.Context, id string) error {
	if err := live(ctx); err != nil {
		return err
	}
	return s.t.remove(id)
}
