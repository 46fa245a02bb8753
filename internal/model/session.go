package model

import "time"

// Session binds a client to a user until ExpiresAt.
//
// User is a profile snapshot (no secret). Token is minted fresh on every
// sign-in, so two logins never share one.
type Session struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is no longer valid at now.
// The boundary itself counts as expired.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
