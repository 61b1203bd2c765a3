// Package models defines the client-side data shapes shared by the dogstack
// client packages: the auth session, the published user and the profile row.
package models

import "time"

// User is the identity the session store publishes. ID is opaque.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Session is the backend auth session as returned by the token endpoints
// and persisted locally between runs.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token expires within margin of now.
// A zero ExpiresAt is treated as never expiring.
func (s *Session) Expired(now time.Time, margin time.Duration) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(margin).Before(s.ExpiresAt)
}

// AuthEvent names an auth state transition emitted by the backend client.
type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEvent = "USER_UPDATED"
)
