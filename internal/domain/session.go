package domain

import "time"

// Session is the short-lived proof of authentication. At most one session
// exists at a time: it occupies a single global slot, and a new login
// overwrites any prior session, including another user's.
type Session struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	LoginTime time.Time `json:"loginTime"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session's expiry is in the past.
func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}
