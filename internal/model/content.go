package model

import (
	"slices"
	"time"
)

// Project is a portfolio showcase entry, addressed publicly by Slug.
type Project struct {
	ID              string    `json:"id"`
	Slug            string    `json:"slug" validate:"required,slug"`
	Title           string    `json:"title" validate:"required,max=200"`
	Description     string    `json:"description" validate:"max=500"`
	LongDescription string    `json:"long_description"`
	Image           string    `json:"image" validate:"omitempty,url"`
	Technologies    []string  `json:"technologies"`
	Category        string    `json:"category" validate:"required"`
	GitHubURL       string    `json:"github_url,omitempty" validate:"omitempty,url"`
	LiveURL         string    `json:"live_url,omitempty" validate:"omitempty,url"`
	Featured        bool      `json:"featured"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Clone returns a deep copy; the technology list is not shared.
func (p Project) Clone() Project {
	p.Technologies = slices.Clone(p.Technologies)
	return p
}

// ProjectPatch is a partial update. Nil fields are left unchanged.
type ProjectPatch struct {
	Slug            *string   `json:"slug,omitempty" validate:"omitnil,slug"`
	Title           *string   `json:"title,omitempty" validate:"omitnil,min=1,max=200"`
	Description     *string   `json:"description,omitempty" validate:"omitnil,max=500"`
	LongDescription *string   `json:"long_description,omitempty"`
	Image           *string   `json:"image,omitempty" validate:"omitempty,url"`
	Technologies    *[]string `json:"technologies,omitempty"`
	Category        *string   `json:"category,omitempty" validate:"omitnil,min=1"`
	GitHubURL       *string   `json:"github_url,omitempty" validate:"omitempty,url"`
	LiveURL         *string   `json:"live_url,omitempty" validate:"omitempty,url"`
	Featured        *bool     `json:"featured,omitempty"`
}

func (p ProjectPatch) Apply(dst *Project) {
	if p.Slug != nil {
		dst.Slug = *p.Slug
	}
	if p.Title != nil {
		dst.Title = *p.Title
	}
	if p.Description != nil {
		dst.Description = *p.Description
	}
	if p.LongDescription != nil {
		dst.LongDescription = *p.LongDescription
	}
	if p.Image != nil {
		dst.Image = *p.Image
	}
	if p.Technologies != nil {
		dst.Technologies = slices.Clone(*p.Technologies)
	}
	if p.Category != nil {
		dst.Category = *p.Category
	}
	if p.GitHubURL != nil {
		dst.GitHubURL = *p.GitHubURL
	}
	if p.LiveURL != nil {
		dst.LiveURL = *p.LiveURL
	}
	if p.Featured != nil {
		dst.Featured = *p.Featured
	}
}

// BlogPost is an article. Only published posts are visible to non-admins.
type BlogPost struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug" validate:"required,slug"`
	Title      string    `json:"title" validate:"required,max=200"`
	Excerpt    string    `json:"excerpt" validate:"max=500"`
	Content    string    `json:"content" validate:"required"`
	CoverImage string    `json:"cover_image" validate:"omitempty,url"`
	AuthorID   string    `json:"author_id"`
	Tags       []string  `json:"tags"`
	Published  bool      `json:"published"`
	ReadTime   int       `json:"read_time" validate:"gte=0"` // minutes
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (b BlogPost) Clone() BlogPost {
	b.Tags = slices.Clone(b.Tags)
	return b
}

type BlogPatch struct {
	Slug       *string   `json:"slug,omitempty" validate:"omitnil,slug"`
	Title      *string   `json:"title,omitempty" validate:"omitnil,min=1,max=200"`
	Excerpt    *string   `json:"excerpt,omitempty" validate:"omitnil,max=500"`
	Content    *string   `json:"content,omitempty" validate:"omitnil,min=1"`
	CoverImage *string   `json:"cover_image,omitempty" validate:"omitempty,url"`
	Tags       *[]string `json:"tags,omitempty"`
	Published  *bool     `json:"published,omitempty"`
	ReadTime   *int      `json:"read_time,omitempty" validate:"omitnil,gte=0"`
}

func (p BlogPatch) Apply(dst *BlogPost) {
	if p.Slug != nil {
		dst.Slug = *p.Slug
	}
	if p.Title != nil {
		dst.Title = *p.Title
	}
	if p.Excerpt != nil {
		dst.Excerpt = *p.Excerpt
	}
	if p.Content != nil {
		dst.Content = *p.Content
	}
	if p.CoverImage != nil {
		dst.CoverImage = *p.CoverImage
	}
	if p.Tags != nil {
		dst.Tags = slices.Clone(*p.Tags)
	}
	if p.Published != nil {
		dst.Published = *p.Published
	}
	if p.ReadTime != nil {
		dst.ReadTime = *p.ReadTime
	}
}
