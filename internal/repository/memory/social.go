package memory

import (
	"context"
	"time"

	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/realtime"
	"github.com/sakif/portfolio/internal/repository"
)

var (
	_ repository.CommentRepository = (*CommentStore)(nil)
	_ repository.LikeRepository    = (*LikeStore)(nil)
)

// CommentStore publishes changes per entity, so a thread subscribes only to
// its own comments.
type CommentStore struct {
	t *table[model.Comment]
}

func newCommentStore(o options) *CommentStore {
	return &CommentStore{t: newTable(schema[model.Comment]{
		resource: "comment",
		table:    realtime.TableComments,
		id:       func(c *model.Comment) *string { return &c.ID },
		created:  func(c *model.Comment) *time.Time { return &c.CreatedAt },
		updated:  func(c *model.Comment) *time.Time { return &c.UpdatedAt },
		topic: func(c *model.Comment) realtime.Topic {
			return realtime.Topic{Table: realtime.TableComments, EntityType: c.EntityType, EntityID: c.EntityID}
		},
	}, o.now, o.pub)}
}

func (s *CommentStore) List(ctx context.Context, filter repository.CommentFilter) ([]model.Comment, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	return s.t.list(func(c *model.Comment) bool { return filter.Match(*c) }), nil
}

func (s *CommentStore) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	return s.t.get(id)
}

func (s *CommentStore) Insert(ctx context.Context, comment *model.Comment) error {
	if err := live(ctx); err != nil {
		return err
	}
	return s.t.insert(comment)
}

func (s *CommentStore) Update(ctx context.Context, id string, content string) (*model.Comment, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	return s.t.update(id, func(c *model.Comment) { c.Content = content })
}

func (s *CommentStore) Remove(ctx context.Context, id string) error {
	if err := live(ctx); err != nil {
		return err
	}
	return s.t.remove(id)
}

// LikeStore enforces one like per (entity type, entity id, user id).
type LikeStore struct {
	t *table[model.Like]
}

func newLikeStore(o options) *LikeStore {
	return &LikeStore{t: newTable(schema[model.Like]{
		resource: "like",
		table:    realtime.TableLikes,
		id:       func(l *model.Like) *string { return &l.ID },
		created:  func(l *model.Like) *time.Time { return &l.CreatedAt },
		unique: []uniqueKey[model.Like]{
			{name: "triple", value: func(l *model.Like) string { return l.Key().String() }},
		},
		topic: func(l *model.Like) realtime.Topic {
			return realtime.Topic{Table: realtime.TableLikes, EntityType: l.EntityType, EntityID: l.EntityID}
		},
	}, o.now, o.pub)}
}

func (s *LikeStore) List(ctx context.Context, filter repository.LikeFilter) ([]model.Like, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	return s.t.list(func(l *model.Like) bool { return filter.Match(*l) }), nil
}

func (s *LikeStore) Find(ctx context.Context, key model.LikeKey) (*model.Like, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	return s.t.find(key.String(), func(l *model.Like) bool { return l.Key() == key })
}

func (s *LikeStore) Count(ctx context.Context, entity model.EntityRef) (int, error) {
	if err := live(ctx); err != nil {
		return 0, err
	}
	return s.t.count(func(l *model.Like) bool {
		return l.EntityType == entity.Type && l.EntityID == entity.ID
	}), nil
}

func (s *LikeStore) Insert(ctx context.Context, like *model.Like) error {
	if err := live(ctx); err != nil {
		return err
	}
	return s.t.insert(like)
}

func (s *LikeStore) Remove(ctx context.Context, id string) error {
	if err := live(ctx); err != nil {
		return err
	}
	return s.t.remove(id)
}

func (s *LikeStore) DeleteTriple(ctx context.Context, key model.LikeKey) error {
	if err := live(ctx); err != nil {
		return err
	}
	return s.t.removeWhere(key.String(), func(l *model.Like) bool { return l.Key() == key })
}
