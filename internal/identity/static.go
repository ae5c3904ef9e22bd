package identity

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"financeiro/internal/core"
)

// Static authenticates against a fixed user list. It backs development
// setups and tests.
type Static struct {
	mu    sync.Mutex
	users map[string]string
	ttl   time.Duration
	now   func() time.Time
}

// ParseStaticUsers reads "email:password,email:password".
func ParseStaticUsers(list string) (map[string]string, error) {
	users := make(map[string]string)
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		email, password, ok := strings.Cut(entry, ":")
		email = strings.ToLower(strings.TrimSpace(email))
		if !ok || email == "" || password == "" {
			return nil, fmt.Errorf("invalid static user entry %q", entry)
		}
		users[email] = password
	}
	return users, nil
}

func NewStatic(users map[string]string) *Static {
	s := &Static{users: make(map[string]string, len(users)), ttl: time.Hour, now: time.Now}
	for email, pw := range users {
		s.users[strings.ToLower(email)] = pw
	}
	return s
}

// WithTTL sets the lifetime of issued sessions.
func (s *Static) WithTTL(ttl time.Duration) *Static {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

func (s *Static) SignIn(ctx context.Context, email, password string) (Session, error) {
	if err := checkCredentials(email, password); err != nil {
		return Session{}, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if !s.verify(email, password) {
		return Session{}, &core.AuthError{Reason: core.InvalidCredential}
	}
	return s.session(email), nil
}

func (s *Static) SignOut(context.Context, Session) error { return nil }

func (s *Static) ChangePassword(ctx context.Context, sess Session, current, next string) (Session, error) {
	if !s.verify(sess.Email, current) {
		return Session{}, &core.AuthError{Reason: core.InvalidCredential}
	}
	if err := checkNewPassword(next); err != nil {
		return Session{}, err
	}
	s.mu.Lock()
	s.users[sess.Email] = next
	s.mu.Unlock()
	return s.session(sess.Email), nil
}

func (s *Static) verify(email, password string) bool {
	s.mu.Lock()
	want, ok := s.users[email]
	s.mu.Unlock()
	return ok && subtle.ConstantTimeCompare([]byte(want), []byte(password)) == 1
}

// session derives a stable user id from the email.
func (s *Static) session(email string) Session {
	return Session{
		UserID:    uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email)).String(),
		Email:     email,
		IDToken:   uuid.NewString(),
		ExpiresAt: s.now().Add(s.ttl),
	}
}
