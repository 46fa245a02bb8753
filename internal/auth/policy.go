package auth

import (
	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/model"
)

// Action is something an actor asks to do.
type Action int

const (
	ActionListUsers Action = iota
	ActionUpdateProfile
	ActionDeleteUser
	ActionChangeRole
	ActionManageContent // create, update or delete projects and blog posts
	ActionViewDrafts
	ActionComment
	ActionEditComment
	ActionDeleteComment
	ActionLike
	ActionViewUserLikes
	ActionListAllSocial // every comment or like across all entities
)

// Resource describes what the action targets. OwnerID is the user id that
// owns it (the comment author, the profile's own id); empty when the action
// has no owner.
type Resource struct {
	OwnerID string
}

// Authorize decides whether actor may perform action on resource. A nil
// actor is anonymous. The result is either nil or an Unauthorized error
// whose message can be shown to the user.
//
// The check is pure and runs wherever the data is handled. A deployment with
// a shared backend must enforce the same rules there too.
func Authorize(actor *model.User, action Action, resource Resource) error {
	if actor == nil {
		switch action {
		case ActionComment:
			return apperror.Unauthorized("please log in to comment")
		case ActionLike:
			return apperror.Unauthorized("please log in to like")
		default:
			return apperror.Unauthorized("please log in to continue")
		}
	}

	isAdmin := actor.IsAdmin()
	isOwner := resource.OwnerID != "" && resource.OwnerID == actor.ID

	switch action {
	case ActionComment, ActionLike:
		return nil

	case ActionUpdateProfile:
		if isOwner || isAdmin {
			return nil
		}
		return apperror.Unauthorized("you can only edit your own profile")

	case ActionEditComment:
		if isOwner {
			return nil
		}
		return apperror.Unauthorized("only the author can edit this comment")

	case ActionDeleteComment:
		if isOwner || isAdmin {
			return nil
		}
		return apperror.Unauthorized("only the author or an admin can delete this comment")

	case ActionViewUserLikes:
		if isOwner || isAdmin {
			return nil
		}
		return apperror.Unauthorized("you can only view your own likes")

	case ActionListUsers, ActionDeleteUser, ActionChangeRole, ActionManageContent,
		ActionViewDrafts, ActionListAllSocial:
		if isAdmin {
			return nil
		}
		return apperror.Unauthorized("admin access required")
	}

	return apperror.Unauthorized("action not permitted")
}
