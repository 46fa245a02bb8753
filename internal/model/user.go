// Package model defines the data structures used throughout the application.
package model

import "time"

// Role is the access level of a user account.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is the identity record behind every profile.
//
// Email is unique and compared case-sensitively, exactly as stored.
// Username is optional; when set it is unique across all users.
//
// WHY PasswordHash HAS json:"-"?
// The hash must never leave the process. Tagging it "-" means that even if a
// full User is accidentally written to an HTTP response or to the session
// record, encoding/json skips the field. Profile() goes further and zeroes it.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	FullName     string    `json:"full_name,omitempty"`
	Username     string    `json:"username,omitempty"`
	DisplayName  string    `json:"display_name,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role. A nil user is not an admin.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Profile returns a copy of u with the secret stripped. This is the snapshot
// that is handed to callers and stored in sessions.
func (u User) Profile() User {
	u.PasswordHash = ""
	return u
}

// UserPatch is a partial update. Nil fields are left unchanged.
type UserPatch struct {
	FullName    *string
	Username    *string
	DisplayName *string
	Bio         *string
	AvatarURL   *string
	Role        *Role
}

// Apply copies the non-nil fields of p onto u.
func (p UserPatch) Apply(u *User) {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.DisplayName != nil {
		u.DisplayName = *p.DisplayName
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
}
