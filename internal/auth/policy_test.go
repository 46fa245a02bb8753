package auth

import (
	"errors"
	"testing"

	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/model"
)

func TestAuthorize(t *testing.T) {
	admin := &model.User{ID: "user-1", Role: model.RoleAdmin}
	john := &model.User{ID: "user-2", Role: model.RoleUser}
	jane := &model.User{ID: "user-3", Role: model.RoleUser}

	ownedByJohn := Resource{OwnerID: "user-2"}

	tests := []struct {
		name    string
		actor   *model.User
		action  Action
		res     Resource
		allowed bool
	}{
		{"anonymous cannot like", nil, ActionLike, Resource{}, false},
		{"anonymous cannot comment", nil, ActionComment, Resource{}, false},
		{"user can like", john, ActionLike, Resource{}, true},
		{"user can comment", jane, ActionComment, Resource{}, true},

		{"owner edits own comment", john, ActionEditComment, ownedByJohn, true},
		{"other user cannot edit", jane, ActionEditComment, ownedByJohn, false},
		{"admin cannot edit someone else's comment", admin, ActionEditComment, ownedByJohn, false},

		{"owner deletes own comment", john, ActionDeleteComment, ownedByJohn, true},
		{"admin deletes any comment", admin, ActionDeleteComment, ownedByJohn, true},
		{"other user cannot delete", jane, ActionDeleteComment, ownedByJohn, false},

		{"self edits profile", john, ActionUpdateProfile, ownedByJohn, true},
		{"admin edits any profile", admin, ActionUpdateProfile, ownedByJohn, true},
		{"user cannot edit another profile", jane, ActionUpdateProfile, ownedByJohn, false},

		{"admin lists users", admin, ActionListUsers, Resource{}, true},
		{"user cannot list users", john, ActionListUsers, Resource{}, false},
		{"user cannot change roles", john, ActionChangeRole, ownedByJohn, false},
		{"user cannot manage content", john, ActionManageContent, Resource{}, false},
		{"admin manages content", admin, ActionManageContent, Resource{}, true},
		{"user cannot see drafts", jane, ActionViewDrafts, Resource{}, false},
		{"user cannot list all likes", jane, ActionListAllSocial, Resource{}, false},

		{"self views own likes", jane, ActionViewUserLikes, Resource{OwnerID: "user-3"}, true},
		{"user cannot view another's likes", jane, ActionViewUserLikes, ownedByJohn, false},

		{"empty owner never matches", john, ActionEditComment, Resource{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.actor, tt.action, tt.res)
			if tt.allowed && err != nil {
				t.Fatalf("Authorize() = %v, want allowed", err)
			}
			if !tt.allowed && !errors.Is(err, apperror.ErrUnauthorized) {
				t.Fatalf("Authorize() = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestAuthorize_AnonymousLikeMessage(t *testing.T) {
	err := Authorize(nil, ActionLike, Resource{})
	if err == nil || err.Error() != "please log in to like" {
		t.Errorf("Authorize() = %v, want %q", err, "please log in to like")
	}
}
