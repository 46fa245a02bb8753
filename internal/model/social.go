package model

import (
	"fmt"
	"time"
)

// EntityType names the kind of content a comment, like or view refers to.
type EntityType string

const (
	EntityProject EntityType = "project"
	EntityBlog    EntityType = "blog"
)

func (t EntityType) Valid() bool {
	return t == EntityProject || t == EntityBlog
}

// EntityRef identifies one likeable/commentable entity.
type EntityRef struct {
	Type EntityType `json:"entity_type"`
	ID   string     `json:"entity_id"`
}

func (r EntityRef) String() string {
	return fmt.Sprintf("%s/%s", r.Type, r.ID)
}

// Comment is a user's remark on an entity.
// UpdatedAt equals CreatedAt until the first edit.
type Comment struct {
	ID         string     `json:"id"`
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	UserID     string     `json:"user_id"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (c Comment) Entity() EntityRef {
	return EntityRef{Type: c.EntityType, ID: c.EntityID}
}

// Edited reports whether the comment was changed after creation.
func (c Comment) Edited() bool {
	return !c.UpdatedAt.Equal(c.CreatedAt)
}

// CommentView is a comment joined with its author's profile, as shown in a
// thread. Author is nil when the account no longer exists.
type CommentView struct {
	Comment
	Author *User `json:"user,omitempty"`
	Edited bool  `json:"edited"`
}

// Like records that a user liked an entity. At most one exists per
// (entity type, entity id, user id).
type Like struct {
	ID         string     `json:"id"`
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	UserID     string     `json:"user_id"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (l Like) Key() LikeKey {
	return LikeKey{Entity: EntityRef{Type: l.EntityType, ID: l.EntityID}, UserID: l.UserID}
}

// LikeKey is the uniqueness triple of a Like.
type LikeKey struct {
	Entity EntityRef
	UserID string
}

func (k LikeKey) String() string {
	return fmt.Sprintf("%s/%s", k.Entity, k.UserID)
}

// LikeData is what a like button needs to render.
type LikeData struct {
	Count    int  `json:"count"`
	HasLiked bool `json:"hasLiked"`
}

// ToggleResult is the authoritative outcome of a like toggle.
type ToggleResult struct {
	Liked bool `json:"liked"`
	Count int  `json:"count"`
}

// ViewCount is the number of times an entity's detail page was opened.
type ViewCount struct {
	EntityType EntityType `json:"entity_type"`
	Slug       string     `json:"slug"`
	Count      int64      `json:"count"`
}
