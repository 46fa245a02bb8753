package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/auth"
	"github.com/sakif/portfolio/internal/latency"
	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/repository"
)

// LikeService manages likes. A user has at most one like per entity;
// Toggle adds it when absent and removes it when present.
//
// Toggles for the same (entity, user) are serialized: the second caller
// waits for the first to finish, so concurrent toggles behave exactly as if
// they ran one after another in lock order. Toggles for different triples
// never wait on each other.
type LikeService struct {
	base
	likes repository.LikeRepository
	locks keyedLock
}

func NewLikeService(likes repository.LikeRepository, sim *latency.Simulator, logger *slog.Logger) *LikeService {
	return &LikeService{
		base:  newBase("like", sim, logger),
		likes: likes,
	}
}

// GetLikeData returns the like count of entity and whether userID is among
// the likers. An empty userID (anonymous viewer) never has liked.
func (s *LikeService) GetLikeData(ctx context.Context, entity model.EntityRef, userID string) (model.LikeData, error) {
	return run(ctx, &s.base, "loading likes", latency.Default, func(ctx context.Context) (model.LikeData, error) {
		if err := validEntity(entity); err != nil {
			return model.LikeData{}, err
		}
		count, err := s.likes.Count(ctx, entity)
		if err != nil {
			return model.LikeData{}, err
		}
		data := model.LikeData{Count: count}
		if userID == "" {
			return data, nil
		}
		_, err = s.likes.Find(ctx, model.LikeKey{Entity: entity, UserID: userID})
		switch {
		case err == nil:
			data.HasLiked = true
		case !errors.Is(err, apperror.ErrNotFound):
			return model.LikeData{}, err
		}
		return data, nil
	})
}

// Toggle flips actor's like on entity and returns the new state with the
// authoritative count.
func (s *LikeService) Toggle(ctx context.Context, actor *model.User, entity model.EntityRef) (model.ToggleResult, error) {
	return run(ctx, &s.base, "toggling like", latency.Default, func(ctx context.Context) (model.ToggleResult, error) {
		if err := auth.Authorize(actor, auth.ActionLike, auth.Resource{}); err != nil {
			return model.ToggleResult{}, err
		}
		if err := validEntity(entity); err != nil {
			return model.ToggleResult{}, err
		}
		key := model.LikeKey{Entity: entity, UserID: actor.ID}

		release, err := s.locks.acquire(ctx, key.String())
		if err != nil {
			return model.ToggleResult{}, err
		}
		defer release()

		liked, err := s.flip(ctx, key)
		if err != nil {
			return model.ToggleResult{}, err
		}
		count, err := s.likes.Count(ctx, entity)
		if err != nil {
			return model.ToggleResult{}, err
		}

		s.logger.Info("like toggled",
			slog.String("entity", entity.String()),
			slog.String("userID", actor.ID),
			slog.Bool("liked", liked),
			slog.Int("count", count),
		)
		return model.ToggleResult{Liked: liked, Count: count}, nil
	})
}

// flip removes the like for key if present and inserts it otherwise. The
// store's uniqueness rule settles races with writers outside this process:
// losing an insert race means the like exists, losing a delete race means
// it is gone.
func (s *LikeService) flip(ctx context.Context, key model.LikeKey) (bool, error) {
	_, err := s.likes.Find(ctx, key)
	switch {
	case err == nil:
		if err := s.likes.DeleteTriple(ctx, key); err != nil && !errors.Is(err, apperror.ErrNotFound) {
			return false, err
		}
		return false, nil

	case errors.Is(err, apperror.ErrNotFound):
		like := &model.Like{EntityType: key.Entity.Type, EntityID: key.Entity.ID, UserID: key.UserID}
		if err := s.likes.Insert(ctx, like); err != nil && !errors.Is(err, apperror.ErrConflict) {
			return false, err
		}
		return true, nil

	default:
		return false, err
	}
}

// UserLikes lists the likes of userID. Users may list their own; admins
// anyone's.
func (s *LikeService) UserLikes(ctx context.Context, actor *model.User, userID string) ([]model.Like, error) {
	return run(ctx, &s.base, "listing user likes", latency.Default, func(ctx context.Context) ([]model.Like, error) {
		if err := auth.Authorize(actor, auth.ActionViewUserLikes, auth.Resource{OwnerID: userID}); err != nil {
			return nil, err
		}
		return s.likes.List(ctx, repository.LikeFilter{UserID: userID})
	})
}

// ListAll returns every like. Admin only.
func (s *LikeService) ListAll(ctx context.Context, actor *model.User) ([]model.Like, error) {
	return run(ctx, &s.base, "listing all likes", latency.Default, func(ctx context.Context) ([]model.Like, error) {
		if err := auth.Authorize(actor, auth.ActionListAllSocial, auth.Resource{}); err != nil {
			return nil, err
		}
		return s.likes.List(ctx, repository.LikeFilter{})
	})
}

// keyedLock is a set of mutexes created on demand per key and dropped when
// nobody holds or waits for them. Waiting honours ctx.
type keyedLock struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{} // holds one token while the key is locked
	refs int
}

func (k *keyedLock) acquire(ctx context.Context, key string) (release func(), err error) {
	k.mu.Lock()
	if k.slots == nil {
		k.slots = make(map[string]*lockSlot)
	}
	slot, ok := k.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		k.slots[key] = slot
	}
	slot.refs++
	k.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
		return func() {
			<-slot.ch
			k.drop(key, slot)
		}, nil
	case <-ctx.Done():
		k.drop(key, slot)
		return nil, ctx.Err()
	}
}

func (k *keyedLock) drop(key string, slot *lockSlot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(k.slots, key)
	}
}

// held reports how many keys are currently locked or awaited.
func (k *keyedLock) held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}
