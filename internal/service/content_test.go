package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/model"
)

// =========================================================================
// PROJECTS
// =========================================================================

func newProject(slug string) model.Project {
	return model.Project{
		Slug:         slug,
		Title:        "CLI Toolkit",
		Description:  "Small tools",
		Technologies: []string{"Go", "Go"},
		Category:     "Backend",
		GitHubURL:    "https://github.com/example/cli",
	}
}

func TestProject_Reads(t *testing.T) {
	store := newSeededStore(t)
	svc := NewProjectService(store.Projects(), nil, testLogger())
	ctx := context.Background()

	all, err := svc.List(ctx)
	if err != nil || len(all) != 6 {
		t.Fatalf("List() = %d, %v; want 6 projects", len(all), err)
	}

	featured, _ := svc.Featured(ctx)
	if len(featured) != 3 {
		t.Errorf("Featured() = %d projects, want 3", len(featured))
	}

	tests := []struct {
		category string
		want     int
	}{
		{"Full-Stack", 3},
		{"frontend", 2},
		{"all", 6},
		{"", 6},
		{"Embedded", 0},
	}
	for _, tt := range tests {
		got, err := svc.ByCategory(ctx, tt.category)
		if err != nil {
			t.Fatalf("ByCategory(%q) error = %v", tt.category, err)
		}
		if len(got) != tt.want {
			t.Errorf("ByCategory(%q) = %d projects, want %d", tt.category, len(got), tt.want)
		}
	}

	p, err := svc.GetBySlug(ctx, "ecommerce-platform")
	if err != nil || p.ID != "project-1" {
		t.Errorf("GetBySlug() = %v, %v", p, err)
	}
	_, err = svc.GetBySlug(ctx, "missing")
	wantKind(t, err, apperror.ErrNotFound)
}

func TestProject_CreateUpdateDelete(t *testing.T) {
	store := newSeededStore(t)
	svc := NewProjectService(store.Projects(), nil, testLogger())
	admin := mustUser(t, store, "user-1")
	ctx := context.Background()

	created, err := svc.Create(ctx, admin, newProject("cli-toolkit"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == "" || !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Errorf("Create() = %+v; want an id and created_at == updated_at", created)
	}
	if len(created.Technologies) != 2 {
		t.Errorf("duplicate technologies were not kept as authored: %v", created.Technologies)
	}

	_, err = svc.Create(ctx, admin, newProject("ecommerce-platform"))
	wantKind(t, err, apperror.ErrConflict)
	wantMessage(t, err, "Project with this slug already exists")

	// Rename onto an existing slug.
	_, err = svc.Update(ctx, admin, "cli-toolkit", model.ProjectPatch{Slug: ptr("weather-dashboard")})
	wantKind(t, err, apperror.ErrConflict)

	renamed, err := svc.Update(ctx, admin, "cli-toolkit", model.ProjectPatch{Slug: ptr("cli-kit"), Featured: ptr(true)})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if renamed.Slug != "cli-kit" || !renamed.Featured || !renamed.UpdatedAt.After(renamed.CreatedAt) {
		t.Errorf("Update() = %+v", renamed)
	}

	if err := svc.Delete(ctx, admin, "cli-kit"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_, err = svc.GetBySlug(ctx, "cli-kit")
	wantKind(t, err, apperror.ErrNotFound)
}

func TestProject_MutationsAreAdminOnly(t *testing.T) {
	store := newSeededStore(t)
	svc := NewProjectService(store.Projects(), nil, testLogger())
	john := mustUser(t, store, "user-2")
	ctx := context.Background()

	_, err := svc.Create(ctx, john, newProject("mine"))
	wantKind(t, err, apperror.ErrUnauthorized)

	_, err = svc.Update(ctx, john, "ecommerce-platform", model.ProjectPatch{Title: ptr("x")})
	wantKind(t, err, apperror.ErrUnauthorized)

	err = svc.Delete(ctx, nil, "ecommerce-platform")
	wantKind(t, err, apperror.ErrUnauthorized)

	if _, err := svc.GetBySlug(ctx, "ecommerce-platform"); err != nil {
		t.Errorf("project disappeared after rejected delete: %v", err)
	}
}

func TestProject_CreateValidation(t *testing.T) {
	store := newSeededStore(t)
	svc := NewProjectService(store.Projects(), nil, testLogger())
	admin := mustUser(t, store, "user-1")

	tests := []struct {
		name  string
		edit  func(p *model.Project)
		field string
	}{
		{"missing slug", func(p *model.Project) { p.Slug = "" }, "slug"},
		{"unsafe slug", func(p *model.Project) { p.Slug = "Has Spaces" }, "slug"},
		{"missing title", func(p *model.Project) { p.Title = "   " }, "title"},
		{"bad url", func(p *model.Project) { p.LiveURL = "not a url" }, "live_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProject("valid-slug")
			tt.edit(&p)
			_, err := svc.Create(context.Background(), admin, p)
			wantKind(t, err, apperror.ErrValidation)
			var appErr *apperror.AppError
			if errors.As(err, &appErr); appErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.field)
			}
		})
	}
}

// =========================================================================
// BLOG POSTS
// =========================================================================

func TestBlog_DraftsAreHidden(t *testing.T) {
	store := newSeededStore(t)
	svc := NewBlogService(store.Blogs(), nil, testLogger())
	admin := mustUser(t, store, "user-1")
	john := mustUser(t, store, "user-2")
	ctx := context.Background()

	draft, err := svc.Create(ctx, admin, model.BlogPost{
		Slug: "work-in-progress", Title: "WIP", Content: "soon", Tags: []string{"Go"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if draft.AuthorID != admin.ID {
		t.Errorf("AuthorID = %q, want the acting admin", draft.AuthorID)
	}

	public, _ := svc.List(ctx)
	if len(public) != 4 {
		t.Errorf("List() = %d posts, want the 4 published ones", len(public))
	}
	everything, err := svc.ListAll(ctx, admin)
	if err != nil || len(everything) != 5 {
		t.Errorf("ListAll() = %d, %v; want 5", len(everything), err)
	}
	_, err = svc.ListAll(ctx, john)
	wantKind(t, err, apperror.ErrUnauthorized)

	_, err = svc.GetBySlug(ctx, john, "work-in-progress")
	wantKind(t, err, apperror.ErrNotFound)
	_, err = svc.GetBySlug(ctx, nil, "work-in-progress")
	wantKind(t, err, apperror.ErrNotFound)
	if _, err := svc.GetBySlug(ctx, admin, "work-in-progress"); err != nil {
		t.Errorf("admin GetBySlug(draft) error = %v", err)
	}

	byTag, _ := svc.ByTag(ctx, "go")
	if len(byTag) != 0 {
		t.Errorf("ByTag(go) = %d, drafts must not be listed", len(byTag))
	}

	if _, err := svc.Update(ctx, admin, "work-in-progress", model.BlogPatch{Published: ptr(true)}); err != nil {
		t.Fatalf("publish error = %v", err)
	}
	if _, err := svc.GetBySlug(ctx, john, "work-in-progress"); err != nil {
		t.Errorf("published post still hidden: %v", err)
	}
}

func TestBlog_Filters(t *testing.T) {
	store := newSeededStore(t)
	svc := NewBlogService(store.Blogs(), nil, testLogger())
	ctx := context.Background()

	react, _ := svc.ByTag(ctx, "react")
	if len(react) != 1 || react[0].ID != "blog-1" {
		t.Errorf("ByTag(react) = %v", react)
	}
	byJohn, _ := svc.ByAuthor(ctx, "user-2")
	if len(byJohn) != 3 {
		t.Errorf("ByAuthor(user-2) = %d posts, want 3", len(byJohn))
	}
}

func TestBlog_SlugConflicts(t *testing.T) {
	store := newSeededStore(t)
	svc := NewBlogService(store.Blogs(), nil, testLogger())
	projects := NewProjectService(store.Projects(), nil, testLogger())
	admin := mustUser(t, store, "user-1")
	ctx := context.Background()

	_, err := svc.Create(ctx, admin, model.BlogPost{Slug: "nodejs-microservices", Title: "Again", Content: "x", Published: true})
	wantKind(t, err, apperror.ErrConflict)
	wantMessage(t, err, "Blog post with this slug already exists")

	// Slugs are unique per entity type only.
	if _, err := svc.Create(ctx, admin, model.BlogPost{Slug: "ecommerce-platform", Title: "Post", Content: "x"}); err != nil {
		t.Errorf("blog slug equal to a project slug rejected: %v", err)
	}
	if _, err := projects.GetBySlug(ctx, "ecommerce-platform"); err != nil {
		t.Errorf("project lookup broken: %v", err)
	}

	err = svc.Delete(ctx, admin, "no-such-post")
	wantKind(t, err, apperror.ErrNotFound)
}
