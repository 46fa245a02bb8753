package social

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/realtime"
)

// Commenter is the part of service.CommentService the thread calls.
type Commenter interface {
	List(ctx context.Context, entity model.EntityRef) ([]model.CommentView, error)
	Create(ctx context.Context, actor *model.User, entity model.EntityRef, content string) (*model.Comment, error)
	Update(ctx context.Context, actor *model.User, id, content string) (*model.Comment, error)
	Delete(ctx context.Context, actor *model.User, id string) error
}

// Confirm asks the user whether c should really be deleted.
type Confirm func(ctx context.Context, c model.CommentView) bool

// CommentThread is the comment list under one entity. Every successful
// mutation is followed by a reload, so the list always mirrors the service;
// a failed mutation leaves the list as it was.
type CommentThread struct {
	entity   model.EntityRef
	comments Commenter
	identity IdentitySource
	logger   *slog.Logger
	follow   follower

	mu        sync.Mutex
	items     []model.CommentView
	closed    bool
	listeners []func([]model.CommentView)
}

func NewCommentThread(entity model.EntityRef, comments Commenter, identity IdentitySource, logger *slog.Logger) *CommentThread {
	if identity == nil {
		identity = Anonymous{}
	}
	return &CommentThread{
		entity:   entity,
		comments: comments,
		identity: identity,
		logger:   discardIfNil(logger).With(slog.String("widget", "comments"), slog.String("entity", entity.String())),
	}
}

func (t *CommentThread) OnChange(fn func([]model.CommentView)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// Comments returns the thread newest first. Edited marks comments changed
// after they were posted.
func (t *CommentThread) Comments() []model.CommentView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.items)
}

func (t *CommentThread) Load(ctx context.Context) error {
	items, err := t.comments.List(ctx, t.entity)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.items = items
	listeners := slices.Clone(t.listeners)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(slices.Clone(items))
	}
	return nil
}

// Post adds a comment as the current user.
func (t *CommentThread) Post(ctx context.Context, content string) (*model.Comment, error) {
	actor, err := t.actor(ctx)
	if err != nil {
		return nil, err
	}
	c, err := t.comments.Create(ctx, actor, t.entity, content)
	if err != nil {
		return nil, err
	}
	t.reconcile(ctx)
	return c, nil
}

// Edit replaces the content of one of the current user's comments.
func (t *CommentThread) Edit(ctx context.Context, id, content string) (*model.Comment, error) {
	actor, err := t.actor(ctx)
	if err != nil {
		return nil, err
	}
	c, err := t.comments.Update(ctx, actor, id, content)
	if err != nil {
		return nil, err
	}
	t.reconcile(ctx)
	return c, nil
}

// Delete removes comment id after confirm approves it. It reports false
// without calling the service when the user declines.
func (t *CommentThread) Delete(ctx context.Context, id string, confirm Confirm) (bool, error) {
	if confirm == nil {
		return false, ErrConfirmationRequired
	}
	actor, err := t.actor(ctx)
	if err != nil {
		return false, err
	}

	t.mu.Lock()
	i := slices.IndexFunc(t.items, func(c model.CommentView) bool { return c.ID == id })
	var target model.CommentView
	if i >= 0 {
		target = t.items[i]
	}
	t.mu.Unlock()
	if i < 0 {
		return false, apperror.NotFound("comment", id)
	}

	if !confirm(ctx, target) {
		return false, nil
	}
	if err := t.comments.Delete(ctx, actor, id); err != nil {
		return false, err
	}
	t.reconcile(ctx)
	return true, nil
}

// Follow reloads the thread whenever a comment on the entity changes.
func (t *CommentThread) Follow(ctx context.Context, src realtime.Source) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return ErrClosed
	}
	topic := realtime.Topic{Table: realtime.TableComments, EntityType: t.entity.Type, EntityID: t.entity.ID}
	return t.follow.start(ctx, src, topic, t.logger, t.Load)
}

func (t *CommentThread) Close() {
	t.mu.Lock()
	t.closed = true
	t.listeners = nil
	t.mu.Unlock()
	t.follow.stop()
}

func (t *CommentThread) actor(ctx context.Context) (*model.User, error) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return t.identity.CurrentUser(ctx)
}

// reconcile reloads after a mutation that already succeeded. A failed reload
// keeps the previous list; the next change or Load corrects it.
func (t *CommentThread) reconcile(ctx context.Context) {
	if err := t.Load(ctx); err != nil && err != ErrClosed {
		t.logger.Warn("reloading thread after mutation", slog.String("error", err.Error()))
	}
}
