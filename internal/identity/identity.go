// Package identity signs household members in and out. A Provider talks to
// the account backend; a Watcher fans session changes out to subscribers.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"financeiro/internal/core"
)

// MinPasswordLength is the shortest password accepted by ChangePassword.
const MinPasswordLength = 6

// Session is an authenticated identity.
type Session struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	IDToken   string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry. A zero expiry
// never expires.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Provider is the identity collaborator.
type Provider interface {
	// SignIn returns *core.AuthError with InvalidCredential for a wrong
	// email or password.
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context, s Session) error
	// ChangePassword re-authenticates with current before setting next.
	ChangePassword(ctx context.Context, s Session, current, next string) (Session, error)
}

var ErrMissingCredentials = errors.New("email and password are required")

func checkCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return &core.AuthError{Reason: core.InvalidCredential, Err: ErrMissingCredentials}
	}
	return nil
}

func checkNewPassword(next string) error {
	if len(next) < MinPasswordLength {
		return &core.AuthError{Reason: core.WeakPassword, Err: errors.New("password must be at least 6 characters")}
	}
	return nil
}
