package models

import "time"

// Scope names one attendance table. It is always file-safe.
type Scope string

// GlobalScope is the single shared table used when sessions are disabled
const GlobalScope Scope = "attendance"

func (s Scope) String() string {
	return string(s)
}

// Session binds a session id to the scope resolved from an email
type Session struct {
	ID        string    `json:"session_id"`
	Email     string    `json:"email"`
	Scope     Scope     `json:"scope"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer valid at t
func (s *Session) Expired(t time.Time) bool {
	return !s.ExpiresAt.IsZero() && !t.Before(s.ExpiresAt)
}

// LoginRequest is the request body for opening a session
type LoginRequest struct {
	Email string `json:"email" binding:"required"`
}

// Valid reports whether the scope is a non-empty token of [a-z0-9_]
func (s Scope) Valid() bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}
