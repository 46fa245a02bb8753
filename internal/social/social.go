// Package social holds the interactive state behind a like button and a
// comment thread: what a view renders, the optimistic update it shows while
// a call is in flight, and the reconciliation once the service answers.
//
// Controllers never touch stores. They call the domain services with the
// identity of the current client and re-read through them whenever a change
// notification arrives.
package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/realtime"
)

var (
	// ErrToggleInFlight is returned by a toggle issued while the previous one
	// has not been answered. The first toggle wins.
	ErrToggleInFlight = errors.New("social: a like toggle is already in flight")
	// ErrClosed is returned once the controller has been closed. Results of
	// calls that were in flight at Close are discarded.
	ErrClosed = errors.New("social: controller closed")
	// ErrConfirmationRequired is returned by CommentThread.Delete without a
	// confirmation callback.
	ErrConfirmationRequired = errors.New("social: deleting a comment requires confirmation")
)

// IdentitySource reports who is using the client. A nil user means
// anonymous. *session.Manager implements it.
type IdentitySource interface {
	CurrentUser(ctx context.Context) (*model.User, error)
}

// Anonymous is an IdentitySource for viewers that never sign in.
type Anonymous struct{}

func (Anonymous) CurrentUser(context.Context) (*model.User, error) { return nil, nil }

// follower runs one change subscription for a controller.
type follower struct {
	mu  sync.Mutex
	sub *realtime.Subscription
}

// start subscribes to topic and calls reload for every change until ctx ends
// or stop is called. A second start replaces the first subscription.
func (f *follower) start(ctx context.Context, src realtime.Source, topic realtime.Topic, logger *slog.Logger, reload func(context.Context) error) error {
	sub, err := src.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("social: subscribing to %s: %w", topic.Table, err)
	}

	f.mu.Lock()
	prev := f.sub
	f.sub = sub
	f.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	go func() {
		for change := range sub.C {
			if err := reload(ctx); err != nil {
				if errors.Is(err, ErrClosed) {
					return
				}
				logger.Warn("reloading after change",
					slog.String("op", string(change.Op)),
					slog.String("recordID", change.RecordID),
					slog.String("error", err.Error()),
				)
			}
		}
	}()
	return nil
}

func (f *follower) stop() {
	f.mu.Lock()
	sub := f.sub
	f.sub = nil
	f.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

func discardIfNil(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
