// Package session gates the application behind a signed-in, domain-authorized identity.
package session

import (
	"context"
	"time"
)

// User is the principal carried by a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an identity-provider login.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Provider is the identity provider the guard consults.
type Provider interface {
	// CurrentSession returns the persisted session, or nil when signed out.
	CurrentSession(ctx context.Context) (*Session, error)
	// SignInWithProvider starts an interactive login with the named upstream
	// provider, returning to redirectTo.
	SignInWithProvider(ctx context.Context, provider, redirectTo string) error
	SignOut(ctx context.Context) error
	// OnSessionChange delivers every new session (nil when signed out) until
	// the returned func is called.
	OnSessionChange(fn func(*Session)) (unsubscribe func())
}
