package social

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/sakif/portfolio/internal/auth"
	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/realtime"
)

// Phase is where a LikeWidget is in its toggle cycle.
//
//	Idle ──Toggle──▶ Pending(previous) ──ok────▶ Committed
//	                                   └─error─▶ RolledBack(previous)
//
// Committed and RolledBack behave like Idle for the next toggle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseCommitted
	PhaseRolledBack
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseCommitted:
		return "committed"
	case PhaseRolledBack:
		return "rolled back"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// LikeState is what the widget renders. Previous is the snapshot captured
// when the current or last toggle started; Err is the failure that caused a
// rollback.
type LikeState struct {
	Phase    Phase
	Liked    bool
	Count    int
	Previous model.LikeData
	Err      error
}

// Liker is the part of service.LikeService the widget calls.
type Liker interface {
	GetLikeData(ctx context.Context, entity model.EntityRef, userID string) (model.LikeData, error)
	Toggle(ctx context.Context, actor *model.User, entity model.EntityRef) (model.ToggleResult, error)
}

// LikeWidget is the like button of one entity for one client.
type LikeWidget struct {
	entity   model.EntityRef
	likes    Liker
	identity IdentitySource
	logger   *slog.Logger
	follow   follower

	mu        sync.Mutex
	phase     Phase
	shown     model.LikeData
	previous  model.LikeData
	err       error
	closed    bool
	listeners []func(LikeState)

	// gen moves when a toggle starts and when it settles. A load that saw
	// it move overlapped a toggle and may have read the old row.
	gen uint64
}

func NewLikeWidget(entity model.EntityRef, likes Liker, identity IdentitySource, logger *slog.Logger) *LikeWidget {
	if identity == nil {
		identity = Anonymous{}
	}
	return &LikeWidget{
		entity:   entity,
		likes:    likes,
		identity: identity,
		logger:   discardIfNil(logger).With(slog.String("widget", "like"), slog.String("entity", entity.String())),
	}
}

// OnChange registers fn to run after every state change, outside the
// widget's lock.
func (w *LikeWidget) OnChange(fn func(LikeState)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

func (w *LikeWidget) State() LikeState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

func (w *LikeWidget) stateLocked() LikeState {
	return LikeState{
		Phase:    w.phase,
		Liked:    w.shown.HasLiked,
		Count:    w.shown.Count,
		Previous: w.previous,
		Err:      w.err,
	}
}

// Load fetches the count and the viewer's like. Data fetched while a toggle
// was in flight is not shown; the toggle's answer supersedes it.
func (w *LikeWidget) Load(ctx context.Context) error {
	viewer, err := w.identity.CurrentUser(ctx)
	if err != nil {
		return err
	}
	var userID string
	if viewer != nil {
		userID = viewer.ID
	}

	w.mu.Lock()
	gen := w.gen
	w.mu.Unlock()

	data, err := w.likes.GetLikeData(ctx, w.entity, userID)
	if err != nil {
		return err
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.phase == PhasePending || w.gen != gen {
		w.mu.Unlock()
		return nil
	}
	w.shown = data
	w.notifyLocked()
	return nil
}

// Toggle flips the viewer's like. The flipped state is shown immediately;
// the service's answer then replaces it, or on failure the exact pre-toggle
// state comes back.
func (w *LikeWidget) Toggle(ctx context.Context) (LikeState, error) {
	actor, err := w.identity.CurrentUser(ctx)
	if err != nil {
		return w.State(), err
	}
	if err := auth.Authorize(actor, auth.ActionLike, auth.Resource{}); err != nil {
		return w.State(), err
	}

	w.mu.Lock()
	switch {
	case w.closed:
		w.mu.Unlock()
		return LikeState{}, ErrClosed
	case w.phase == PhasePending:
		state := w.stateLocked()
		w.mu.Unlock()
		return state, ErrToggleInFlight
	}
	w.previous = w.shown
	w.shown = optimistic(w.shown)
	w.phase = PhasePending
	w.err = nil
	w.gen++
	w.notifyLocked()

	res, err := w.likes.Toggle(ctx, actor, w.entity)

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return LikeState{}, ErrClosed
	}
	w.gen++
	if err != nil {
		w.shown = w.previous
		w.phase = PhaseRolledBack
		w.err = err
		w.logger.Warn("like toggle rolled back", slog.String("error", err.Error()))
		state := w.stateLocked()
		w.notifyLocked()
		return state, err
	}
	w.shown = model.LikeData{Count: res.Count, HasLiked: res.Liked}
	w.phase = PhaseCommitted
	state := w.stateLocked()
	w.notifyLocked()
	return state, nil
}

// Follow keeps the count current while other clients like and unlike.
func (w *LikeWidget) Follow(ctx context.Context, src realtime.Source) error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return ErrClosed
	}
	topic := realtime.Topic{Table: realtime.TableLikes, EntityType: w.entity.Type, EntityID: w.entity.ID}
	return w.follow.start(ctx, src, topic, w.logger, w.Load)
}

// Close ends any subscription. Answers to calls still in flight are dropped.
func (w *LikeWidget) Close() {
	w.mu.Lock()
	w.closed = true
	w.listeners = nil
	w.mu.Unlock()
	w.follow.stop()
}

// notifyLocked releases w.mu and then runs the listeners.
func (w *LikeWidget) notifyLocked() {
	state := w.stateLocked()
	listeners := slices.Clone(w.listeners)
	w.mu.Unlock()
	for _, fn := range listeners {
		fn(state)
	}
}

func optimistic(d model.LikeData) model.LikeData {
	if d.HasLiked {
		return model.LikeData{Count: max(d.Count-1, 0), HasLiked: false}
	}
	return model.LikeData{Count: d.Count + 1, HasLiked: true}
}
