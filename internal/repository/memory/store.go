// Package memory implements every repository interface with in-process maps.
//
// This is the mock-mode backend: the demo runs entirely against these stores,
// seeded with the records from Seed. All stores are safe for concurrent use
// and publish change events to an optional realtime.Publisher, so live
// comment threads and like counts work without a remote backend.
package memory

import (
	"context"
	"time"

	"github.com/sakif/portfolio/internal/realtime"
)

// Store groups one table per entity. Use the accessor methods to get the
// repository implementations.
type Store struct {
	users    *UserStore
	projects *ProjectStore
	blogs    *BlogStore
	comments *CommentStore
	likes    *LikeStore
}

// Option configures a Store.
type Option func(*options)

type options struct {
	now func() time.Time
	pub realtime.Publisher
}

// WithClock replaces time.Now, for tests that need deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithPublisher sends every insert, update and delete to pub.
func WithPublisher(pub realtime.Publisher) Option {
	return func(o *options) { o.pub = pub }
}

// New creates an empty Store. Call Seed to load the demo data.
func New(opts ...Option) *Store {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{
		users:    newUserStore(o),
		projects: newProjectStore(o),
		blogs:    newBlogStore(o),
		comments: newCommentStore(o),
		likes:    newLikeStore(o),
	}
}

func (s *Store) Users() *UserStore       { return s.users }
func (s *Store) Projects() *ProjectStore { return s.projects }
func (s *Store) Blogs() *BlogStore       { return s.blogs }
func (s *Store) Comments() *CommentStore { return s.comments }
func (s *Store) Likes() *LikeStore       { return s.likes }

func live(ctx context.Context) error {
	return ctx.Err()
}
