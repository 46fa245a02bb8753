package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/auth"
	"github.com/sakif/portfolio/internal/latency"
	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/repository"
)

// ProfileUpdate is the self-service part of a profile. Nil fields are left
// unchanged; an empty username clears it.
type ProfileUpdate struct {
	FullName    *string `json:"full_name,omitempty" validate:"omitnil,max=100"`
	Username    *string `json:"username,omitempty" validate:"omitempty,min=3,max=30,username"`
	DisplayName *string `json:"display_name,omitempty" validate:"omitnil,max=100"`
	Bio         *string `json:"bio,omitempty" validate:"omitnil,max=500"`
	AvatarURL   *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

func (u ProfileUpdate) patch() model.UserPatch {
	return model.UserPatch{
		FullName:    u.FullName,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Bio:         u.Bio,
		AvatarURL:   u.AvatarURL,
	}
}

var avatarExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"}

// UserService manages profiles and, for admins, accounts and roles.
type UserService struct {
	base
	users repository.UserRepository
	now   func() time.Time
}

func NewUserService(users repository.UserRepository, sim *latency.Simulator, logger *slog.Logger) *UserService {
	return &UserService{
		base:  newBase("user", sim, logger),
		users: users,
		now:   time.Now,
	}
}

// List returns every profile. Admin only.
func (s *UserService) List(ctx context.Context, actor *model.User) ([]model.User, error) {
	return run(ctx, &s.base, "listing users", latency.Default, func(ctx context.Context) ([]model.User, error) {
		if err := auth.Authorize(actor, auth.ActionListUsers, auth.Resource{}); err != nil {
			return nil, err
		}
		users, err := s.users.List(ctx, nil)
		if err != nil {
			return nil, err
		}
		for i := range users {
			users[i] = users[i].Profile()
		}
		return users, nil
	})
}

func (s *UserService) GetProfile(ctx context.Context, id string) (*model.User, error) {
	return run(ctx, &s.base, "loading profile", latency.Default, func(ctx context.Context) (*model.User, error) {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		p := user.Profile()
		return &p, nil
	})
}

// UpdateProfile applies upd to the profile with id. Users may edit their own
// profile; admins may edit anyone's.
func (s *UserService) UpdateProfile(ctx context.Context, actor *model.User, id string, upd ProfileUpdate) (*model.User, error) {
	return run(ctx, &s.base, "updating profile", latency.Default, func(ctx context.Context) (*model.User, error) {
		if err := auth.Authorize(actor, auth.ActionUpdateProfile, auth.Resource{OwnerID: id}); err != nil {
			return nil, err
		}
		if upd.Username != nil {
			trimmed := strings.TrimSpace(*upd.Username)
			upd.Username = &trimmed
		}
		if err := validateStruct(upd); err != nil {
			return nil, err
		}

		if upd.Username != nil && *upd.Username != "" {
			available, err := s.usernameFree(ctx, *upd.Username, id)
			if err != nil {
				return nil, err
			}
			if !available {
				return nil, usernameTaken()
			}
		}

		user, err := s.users.Update(ctx, id, upd.patch())
		if err != nil {
			// The store is the last word on uniqueness.
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && errors.Is(err, apperror.ErrConflict) && appErr.Field == "username" {
				return nil, usernameTaken()
			}
			return nil, err
		}

		s.logger.Info("profile updated",
			slog.String("userID", id),
			slog.String("actorID", actor.ID),
		)
		p := user.Profile()
		return &p, nil
	})
}

// UploadAvatar accepts an image upload for the profile with id and returns
// the URL it is served from. Nothing is stored; the caller saves the URL
// with UpdateProfile.
func (s *UserService) UploadAvatar(ctx context.Context, actor *model.User, id, filename string) (string, error) {
	return run(ctx, &s.base, "uploading avatar", latency.Upload, func(ctx context.Context) (string, error) {
		if err := auth.Authorize(actor, auth.ActionUpdateProfile, auth.Resource{OwnerID: id}); err != nil {
			return "", err
		}
		ext := strings.ToLower(filepath.Ext(filename))
		if !slices.Contains(avatarExtensions, ext) {
			return "", apperror.ValidationFailed("avatar", "Avatar must be an image file")
		}
		if _, err := s.users.GetByID(ctx, id); err != nil {
			return "", err
		}
		return placeholderAvatar(fmt.Sprintf("%s-%d", id, s.now().UnixMilli())), nil
	})
}

// CheckUsernameAvailable reports whether username is free, ignoring the
// account excludeID (the caller's own, when editing).
func (s *UserService) CheckUsernameAvailable(ctx context.Context, username, excludeID string) (bool, error) {
	return run(ctx, &s.base, "checking username", latency.Check, func(ctx context.Context) (bool, error) {
		username = strings.TrimSpace(username)
		if username == "" {
			return false, apperror.ValidationFailed("username", "Username is required")
		}
		return s.usernameFree(ctx, username, excludeID)
	})
}

func (s *UserService) usernameFree(ctx context.Context, username, excludeID string) (bool, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, apperror.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return excludeID != "" && user.ID == excludeID, nil
}

// Delete removes an account. Admin only, and admin accounts cannot be
// deleted at all.
func (s *UserService) Delete(ctx context.Context, actor *model.User, id string) error {
	return do(ctx, &s.base, "deleting user", latency.Default, func(ctx context.Context) error {
		if err := auth.Authorize(actor, auth.ActionDeleteUser, auth.Resource{OwnerID: id}); err != nil {
			return err
		}
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if user.IsAdmin() {
			return apperror.Unauthorized("Cannot delete admin user")
		}
		if err := s.users.Remove(ctx, id); err != nil {
			return err
		}
		s.logger.Info("user deleted",
			slog.String("userID", id),
			slog.String("actorID", actor.ID),
		)
		return nil
	})
}

// UpdateRole changes the role of the account with id. Admin only.
func (s *UserService) UpdateRole(ctx context.Context, actor *model.User, id string, role model.Role) (*model.User, error) {
	return run(ctx, &s.base, "updating role", latency.Default, func(ctx context.Context) (*model.User, error) {
		if err := auth.Authorize(actor, auth.ActionChangeRole, auth.Resource{OwnerID: id}); err != nil {
			return nil, err
		}
		if !role.Valid() {
			return nil, apperror.ValidationFailed("role", fmt.Sprintf("Role must be %q or %q", model.RoleAdmin, model.RoleUser))
		}
		user, err := s.users.Update(ctx, id, model.UserPatch{Role: &role})
		if err != nil {
			return nil, err
		}
		s.logger.Info("role updated",
			slog.String("userID", id),
			slog.String("role", string(role)),
			slog.String("actorID", actor.ID),
		)
		p := user.Profile()
		return &p, nil
	})
}

func usernameTaken() error {
	err := apperror.ConflictMessage("Username is already taken")
	err.Field = "username"
	return err
}
