package memory

import (
	"context"
	"time"

	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/realtime"
	"github.com/sakif/portfolio/internal/repository"
)

var _ repository.UserRepository = (*UserStore)(nil)

// UserStore keeps users unique by email (exact, case-sensitive match) and by
// username when one is set.
type UserStore struct {
	t *table[model.User]
}

func newUserStore(o options) *UserStore {
	return &UserStore{t: newTable(schema[model.User]{
		resource: "user",
		table:    realtime.TableUsers,
		id:       func(u *model.User) *string { return &u.ID },
		created:  func(u *model.User) *time.Time { return &u.CreatedAt },
		updated:  func(u *model.User) *time.Time { return &u.UpdatedAt },
		unique: []uniqueKey[model.User]{
			{name: "email", value: func(u *model.User) string { return u.Email }},
			{name: "username", value: func(u *model.User) string { return u.Username }},
		},
	}, o.now, o.pub)}
}

func (s *UserStore) List(ctx context.Context, where repository.Predicate[model.User]) ([]model.User, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	if where == nil {
		return s.t.list(nil), nil
	}
	return s.t.list(func(u *model.User) bool { return where(*u) }), nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	return s.t.get(id)
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	return s.t.find(email, func(u *model.User) bool { return u.Email == email })
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	return s.t.find(username, func(u *model.User) bool {
		return username != "" && u.Username == username
	})
}

func (s *UserStore) Insert(ctx context.Context, user *model.User) error {
	if err := live(ctx); err != nil {
		return err
	}
	return s.t.insert(user)
}

func (s *UserStore) Update(ctx context.Context, id string, patch model.UserPatch) (*model.User, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	return s.t.update(id, patch.Apply)
}

func (s *UserStore) Remove(ctx context.Context, id string) error {
	if err := live(ctx); err != nil {
		return err
	}
	return s.t.remove(id)
}
