package memory

import (
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/realtime"
)

// uniqueKey is a column that must not repeat. Empty values are exempt, which
// is how an optional username stays unique only when set.
type uniqueKey[T any] struct {
	name  string
	value func(*T) string
}

// schema tells a table how to handle one record type.
type schema[T any] struct {
	resource string // used in error messages: "project", "blog post"
	table    string // realtime topic table
	id       func(*T) *string
	created  func(*T) *time.Time
	updated  func(*T) *time.Time // nil for records that are never updated
	clone    func(T) T
	unique   []uniqueKey[T]
	topic    func(*T) realtime.Topic // nil publishes on the bare table
}

// table is a concurrency-safe ordered map of records. Every method copies on
// the way in and on the way out.
type table[T any] struct {
	mu    sync.RWMutex
	s     schema[T]
	rows  map[string]*T
	order []string // insertion order
	now   func() time.Time
	pub   realtime.Publisher
}

func newTable[T any](s schema[T], now func() time.Time, pub realtime.Publisher) *table[T] {
	return &table[T]{
		s:    s,
		rows: make(map[string]*T),
		now:  now,
		pub:  pub,
	}
}

func (t *table[T]) copyOf(rec *T) T {
	if t.s.clone != nil {
		return t.s.clone(*rec)
	}
	return *rec
}

func (t *table[T]) list(match func(*T) bool) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		rec := t.rows[id]
		if match == nil || match(rec) {
			out = append(out, t.copyOf(rec))
		}
	}
	return out
}

func (t *table[T]) get(id string) (*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.rows[id]
	if !ok {
		return nil, apperror.NotFound(t.s.resource, id)
	}
	c := t.copyOf(rec)
	return &c, nil
}

// find returns the first record for which match is true, or NotFound
// described by key.
func (t *table[T]) find(key string, match func(*T) bool) (*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, id := range t.order {
		if rec := t.rows[id]; match(rec) {
			c := t.copyOf(rec)
			return &c, nil
		}
	}
	return nil, apperror.NotFound(t.s.resource, key)
}

// conflictLocked checks rec's unique keys against every row except skipID.
func (t *table[T]) conflictLocked(rec *T, skipID string) error {
	for _, k := range t.s.unique {
		v := k.value(rec)
		if v == "" {
			continue
		}
		for id, other := range t.rows {
			if id != skipID && k.value(other) == v {
				err := apperror.Conflict(t.s.resource, v)
				err.Field = k.name
				return err
			}
		}
	}
	return nil
}

// insert stores a copy of rec and writes the assigned id and timestamps back
// into rec. A rejected rec is left as it was passed in.
func (t *table[T]) insert(rec *T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.copyOf(rec)
	id := t.s.id(&c)
	if *id == "" {
		*id = xid.New().String()
	}
	if _, exists := t.rows[*id]; exists {
		return apperror.Conflict(t.s.resource, *id)
	}
	if err := t.conflictLocked(&c, *id); err != nil {
		return err
	}

	now := t.now()
	if created := t.s.created(&c); created.IsZero() {
		*created = now
	}
	if t.s.updated != nil {
		*t.s.updated(&c) = *t.s.created(&c)
	}

	t.rows[*id] = &c
	t.order = append(t.order, *id)
	*rec = t.copyOf(&c)

	t.publish(realtime.OpInsert, &c)
	return nil
}

// update applies mutate to a copy of the stored record, re-checks unique keys
// and refreshes updated_at. The stored record is untouched on error.
func (t *table[T]) update(id string, mutate func(*T)) (*T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.rows[id]
	if !ok {
		return nil, apperror.NotFound(t.s.resource, id)
	}

	next := t.copyOf(cur)
	mutate(&next)
	*t.s.id(&next) = id
	if err := t.conflictLocked(&next, id); err != nil {
		return nil, err
	}

	if t.s.updated != nil {
		prev := *t.s.updated(cur)
		now := t.now()
		if !now.After(prev) {
			now = prev.Add(time.Nanosecond)
		}
		*t.s.updated(&next) = now
	}

	t.rows[id] = &next
	t.publish(realtime.OpUpdate, &next)

	out := t.copyOf(&next)
	return &out, nil
}

func (t *table[T]) remove(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.rows[id]
	if !ok {
		return apperror.NotFound(t.s.resource, id)
	}
	delete(t.rows, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}

	t.publish(realtime.OpDelete, rec)
	return nil
}

// removeWhere deletes the first record matching match, returning NotFound
// described by key when there is none.
func (t *table[T]) removeWhere(key string, match func(*T) bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, id := range t.order {
		rec := t.rows[id]
		if !match(rec) {
			continue
		}
		delete(t.rows, id)
		t.order = append(t.order[:i], t.order[i+1:]...)
		t.publish(realtime.OpDelete, rec)
		return nil
	}
	return apperror.NotFound(t.s.resource, key)
}

func (t *table[T]) count(match func(*T) bool) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, rec := range t.rows {
		if match(rec) {
			n++
		}
	}
	return n
}

func (t *table[T]) publish(op realtime.Op, rec *T) {
	if t.pub == nil {
		return
	}
	topic := realtime.Topic{Table: t.s.table}
	if t.s.topic != nil {
		topic = t.s.topic(rec)
	}
	t.pub.Publish(realtime.Change{
		Topic:    topic,
		Op:       op,
		RecordID: *t.s.id(rec),
		At:       t.now(),
	})
}
