// Package realtime carries change notifications from stores to whoever is
// watching a comment thread or a like count.
//
// The contract is small on purpose: a Source hands out Subscriptions, a
// Subscription delivers Changes on a channel until it is closed. The in-memory
// Hub implements Source for mock mode; the remote backend client implements it
// over a websocket.
package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/portfolio/internal/model"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Table names used as topics.
const (
	TableUsers    = "users"
	TableProjects = "projects"
	TableBlogs    = "blog_posts"
	TableComments = "comments"
	TableLikes    = "likes"
)

// Topic selects changes. Empty EntityType or EntityID match any value.
type Topic struct {
	Table      string           `json:"table"`
	EntityType model.EntityType `json:"entity_type,omitempty"`
	EntityID   string           `json:"entity_id,omitempty"`
}

// Matches reports whether a change published under c belongs to t.
func (t Topic) Matches(c Topic) bool {
	return t.Table == c.Table &&
		(t.EntityType == "" || t.EntityType == c.EntityType) &&
		(t.EntityID == "" || t.EntityID == c.EntityID)
}

// Change is one insert, update or delete. It names the record but does not
// carry it: subscribers re-read through the service layer.
type Change struct {
	Topic    Topic     `json:"topic"`
	Op       Op        `json:"op"`
	RecordID string    `json:"record_id"`
	At       time.Time `json:"at"`
}

// Source hands out subscriptions. The subscription ends when ctx is done or
// Close is called, whichever comes first.
type Source interface {
	Subscribe(ctx context.Context, topic Topic) (*Subscription, error)
}

// Publisher is the write side used by stores.
type Publisher interface {
	Publish(c Change)
}

// Subscription delivers matching changes on C. C is closed once the
// subscription ends.
type Subscription struct {
	C <-chan Change

	once   sync.Once
	cancel func()
}

// NewSubscription builds a Subscription around ch. cancel runs once, on the
// first Close; it must arrange for ch to be closed.
func NewSubscription(ch <-chan Change, cancel func()) *Subscription {
	return &Subscription{C: ch, cancel: cancel}
}

// Close ends the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}

const subscriberBuffer = 32

type subscriber struct {
	topic Topic
	ch    chan Change
}

// Hub is an in-process fan-out of changes. A slow subscriber loses changes
// rather than blocking the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	nextID uint64
	logger *slog.Logger
}

// NewHub returns an empty hub. A nil logger discards the hub's warnings.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		subs:   make(map[uint64]*subscriber),
		logger: logger,
	}
}

var (
	_ Source    = (*Hub)(nil)
	_ Publisher = (*Hub)(nil)
)

// Publish delivers c to every subscriber whose topic matches. A nil Hub
// drops everything.
func (h *Hub) Publish(c Change) {
	if h == nil {
		return
	}
	if c.At.IsZero() {
		c.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, s := range h.subs {
		if !s.topic.Matches(c.Topic) {
			continue
		}
		select {
		case s.ch <- c:
		default:
			h.logger.Warn("dropping change for slow subscriber",
				slog.Uint64("subscriber", id),
				slog.String("table", c.Topic.Table),
				slog.String("record_id", c.RecordID),
			)
		}
	}
}

func (h *Hub) Subscribe(ctx context.Context, topic Topic) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := make(chan Change, subscriberBuffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = &subscriber{topic: topic, ch: ch}
	h.mu.Unlock()

	done := make(chan struct{})
	remove := func() {
		close(done)
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
		// Publish holds the read lock while sending, so nothing can be
		// mid-send on ch once it is out of the map.
		close(ch)
	}
	sub := NewSubscription(ch, remove)

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-done:
		}
	}()

	return sub, nil
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
