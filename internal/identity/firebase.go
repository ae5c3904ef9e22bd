package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"financeiro/internal/core"
	"financeiro/internal/log"
)

var ErrMissingAPIKey = errors.New("firebase api key is required")

// Firebase signs in with email and password against the Identity Toolkit
// relying-party API.
type Firebase struct {
	svc    *identitytoolkit.Service
	logger *log.Logger
	now    func() time.Time
}

// NewFirebase builds a provider for the project owning apiKey. Extra options
// are applied after the key, so tests can point it at a local endpoint.
func NewFirebase(ctx context.Context, apiKey string, logger *log.Logger, opts ...option.ClientOption) (*Firebase, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := identitytoolkit.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create identitytoolkit service: %w", err)
	}
	return &Firebase{svc: svc, logger: logger.WithComponent(log.ComponentIdentity), now: time.Now}, nil
}

func (f *Firebase) SignIn(ctx context.Context, email, password string) (Session, error) {
	if err := checkCredentials(email, password); err != nil {
		return Session{}, err
	}
	resp, err := f.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             strings.TrimSpace(email),
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		aerr := classify(err)
		f.logger.WarnContext(ctx, "Sign in failed",
			log.FieldOperation, log.OpSignIn,
			log.FieldError, err,
			"reason", aerr.Reason)
		return Session{}, aerr
	}
	return Session{
		UserID:    resp.LocalId,
		Email:     resp.Email,
		IDToken:   resp.IdToken,
		ExpiresAt: f.expiry(resp.ExpiresIn),
	}, nil
}

// SignOut is local only; the backend has no session to revoke for an id
// token, which simply expires.
func (f *Firebase) SignOut(ctx context.Context, s Session) error {
	f.logger.InfoContext(ctx, "Signed out", log.FieldUserID, s.UserID)
	return nil
}

func (f *Firebase) ChangePassword(ctx context.Context, s Session, current, next string) (Session, error) {
	if err := checkNewPassword(next); err != nil {
		return Session{}, err
	}
	fresh, err := f.SignIn(ctx, s.Email, current)
	if err != nil {
		return Session{}, err
	}
	resp, err := f.svc.Relyingparty.SetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartySetAccountInfoRequest{
		IdToken:           fresh.IDToken,
		Password:          next,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return Session{}, classify(err)
	}
	if resp.IdToken != "" {
		fresh.IDToken = resp.IdToken
		fresh.ExpiresAt = f.expiry(resp.ExpiresIn)
	}
	f.logger.InfoContext(ctx, "Password changed", log.FieldUserID, fresh.UserID)
	return fresh, nil
}

func (f *Firebase) expiry(seconds int64) time.Time {
	if seconds <= 0 {
		seconds = 3600
	}
	return f.now().Add(time.Duration(seconds) * time.Second)
}

// classify maps backend error codes onto auth reasons.
func classify(err error) *core.AuthError {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return &core.AuthError{Reason: core.AuthUnavailable, Err: err}
	}
	msg := gerr.Message
	switch {
	case strings.HasPrefix(msg, "INVALID_PASSWORD"),
		strings.HasPrefix(msg, "EMAIL_NOT_FOUND"),
		strings.HasPrefix(msg, "INVALID_LOGIN_CREDENTIALS"),
		strings.HasPrefix(msg, "INVALID_EMAIL"),
		strings.HasPrefix(msg, "USER_DISABLED"):
		return &core.AuthError{Reason: core.InvalidCredential, Err: err}
	case strings.HasPrefix(msg, "WEAK_PASSWORD"):
		return &core.AuthError{Reason: core.WeakPassword, Err: err}
	case strings.HasPrefix(msg, "TOKEN_EXPIRED"),
		strings.HasPrefix(msg, "INVALID_ID_TOKEN"),
		strings.HasPrefix(msg, "CREDENTIAL_TOO_OLD_LOGIN_AGAIN"):
		return &core.AuthError{Reason: core.SessionExpired, Err: err}
	}
	return &core.AuthError{Reason: core.AuthUnavailable, Err: err}
}
