package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"financeiro/internal/core"
	"financeiro/internal/identity"
	"financeiro/internal/log"
)

var ErrUnknownSession = errors.New("unknown or expired session")

// SignInResult is what a successful sign-in hands back to the caller.
type SignInResult struct {
	Token     string           `json:"token"`
	Member    core.Member      `json:"member"`
	Session   identity.Session `json:"session"`
	Workspace *Workspace       `json:"-"`
}

// signedIn is one entry of the session table. Several tokens of the same
// user share the workspace. ready is closed once the initial load has
// finished and sub is set.
type signedIn struct {
	workspace *Workspace
	watcher   *identity.Watcher
	sub       *identity.Subscription
	tokens    map[string]struct{}
	ready     chan struct{}
}

// SessionManager maps opaque bearer tokens to workspaces.
type SessionManager struct {
	provider identity.Provider
	deps     Deps
	logger   *log.Logger
	now      func() time.Time

	mu     sync.Mutex
	tokens map[string]*signedIn
	users  map[string]*signedIn
}

func NewSessionManager(provider identity.Provider, deps Deps) *SessionManager {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
		deps.Logger = logger
	}
	return &SessionManager{
		provider: provider,
		deps:     deps,
		logger:   logger.WithComponent(log.ComponentIdentity),
		now:      time.Now,
		tokens:   make(map[string]*signedIn),
		users:    make(map[string]*signedIn),
	}
}

// SignIn authenticates and returns a new bearer token. The first sign-in of
// a user creates and loads the workspace; a failed load is reported as a
// notice and the workspace starts from defaults. Later sign-ins of the same
// user wait for that load before sharing the workspace.
func (m *SessionManager) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	session, err := m.provider.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		m.logger.WarnContext(ctx, "Sign in failed", log.FieldError, err)
		return SignInResult{}, err
	}

	token := uuid.NewString()
	for {
		m.mu.Lock()
		entry, ok := m.users[session.UserID]
		if !ok {
			entry = &signedIn{
				workspace: NewWorkspace(session, m.deps),
				watcher:   identity.NewWatcher(),
				tokens:    map[string]struct{}{token: {}},
				ready:     make(chan struct{}),
			}
			m.tokens[token] = entry
			m.users[session.UserID] = entry
			m.mu.Unlock()
			m.load(ctx, entry, session)
			return SignInResult{Token: token, Member: entry.workspace.Member(), Session: session, Workspace: entry.workspace}, nil
		}
		m.mu.Unlock()

		select {
		case <-entry.ready:
		case <-ctx.Done():
			return SignInResult{}, ctx.Err()
		}

		m.mu.Lock()
		if m.users[session.UserID] != entry {
			// released while loading; start over
			m.mu.Unlock()
			continue
		}
		entry.tokens[token] = struct{}{}
		m.tokens[token] = entry
		m.mu.Unlock()

		entry.watcher.Publish(&session)
		m.logger.InfoContext(ctx, "Signed in", log.FieldUserID, session.UserID, "shared_workspace", true)
		return SignInResult{Token: token, Member: entry.workspace.Member(), Session: session, Workspace: entry.workspace}, nil
	}
}

func (m *SessionManager) load(ctx context.Context, entry *signedIn, session identity.Session) {
	defer close(entry.ready)

	entry.watcher.Publish(&session)
	entry.sub = entry.watcher.OnSessionChange(entry.workspace.setSession)

	if err := entry.workspace.Load(ctx); err != nil {
		m.logger.LogError(ctx, "Initial load failed, using defaults", err, log.ErrorTypeSync, log.OpLoad,
			log.NewFields().WithUser(session.UserID))
	}
	m.logger.InfoContext(ctx, "Signed in",
		log.FieldUserID, session.UserID,
		log.FieldMember, entry.workspace.Member())
}

// Workspace resolves token. Expired sessions are signed out.
func (m *SessionManager) Workspace(ctx context.Context, token string) (*Workspace, error) {
	m.mu.Lock()
	entry, ok := m.tokens[token]
	m.mu.Unlock()
	if !ok {
		return nil, &core.AuthError{Reason: core.SessionExpired, Err: ErrUnknownSession}
	}
	if entry.workspace.Session().Expired(m.now()) {
		_ = m.SignOut(ctx, token)
		return nil, &core.AuthError{Reason: core.SessionExpired, Err: ErrUnknownSession}
	}
	return entry.workspace, nil
}

// SignOut drops token. When it was the last token of the user, the pending
// write is cancelled, the session subscription closed and the workspace
// cleared, in that order.
func (m *SessionManager) SignOut(ctx context.Context, token string) error {
	m.mu.Lock()
	entry, ok := m.tokens[token]
	if !ok {
		m.mu.Unlock()
		return &core.AuthError{Reason: core.SessionExpired, Err: ErrUnknownSession}
	}
	delete(m.tokens, token)
	delete(entry.tokens, token)
	last := len(entry.tokens) == 0
	session := entry.workspace.Session()
	if last {
		delete(m.users, session.UserID)
	}
	m.mu.Unlock()

	if !last {
		return nil
	}
	m.release(entry)

	err := m.provider.SignOut(ctx, session)
	m.logger.InfoContext(ctx, "Signed out", log.FieldUserID, session.UserID)
	return err
}

func (m *SessionManager) release(entry *signedIn) {
	<-entry.ready
	entry.workspace.Close()
	entry.sub.Close()
	entry.watcher.Publish(nil)
	entry.workspace.Clear()
}

// ChangePassword updates the password of the signed-in identity and
// publishes the refreshed session.
func (m *SessionManager) ChangePassword(ctx context.Context, token, current, next string) error {
	m.mu.Lock()
	entry, ok := m.tokens[token]
	m.mu.Unlock()
	if !ok {
		return &core.AuthError{Reason: core.SessionExpired, Err: ErrUnknownSession}
	}
	session, err := m.provider.ChangePassword(ctx, entry.workspace.Session(), current, next)
	if err != nil {
		return err
	}
	entry.watcher.Publish(&session)
	m.logger.InfoContext(ctx, "Password changed", log.FieldUserID, session.UserID)
	return nil
}

// Len returns the number of live tokens.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

// CleanExpired sweeps notices and signs out expired sessions.
func (m *SessionManager) CleanExpired() int {
	m.mu.Lock()
	entries := make([]*signedIn, 0, len(m.users))
	var expired []string
	now := m.now()
	for token, entry := range m.tokens {
		if entry.workspace.Session().Expired(now) {
			expired = append(expired, token)
		}
	}
	for _, entry := range m.users {
		entries = append(entries, entry)
	}
	m.mu.Unlock()

	removed := 0
	for _, entry := range entries {
		removed += entry.workspace.CleanExpired()
	}
	for _, token := range expired {
		if m.SignOut(context.Background(), token) == nil {
			removed++
		}
	}
	return removed
}

// Shutdown flushes every pending write and releases all workspaces.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	entries := make([]*signedIn, 0, len(m.users))
	for _, entry := range m.users {
		entries = append(entries, entry)
	}
	m.tokens = make(map[string]*signedIn)
	m.users = make(map[string]*signedIn)
	m.mu.Unlock()

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		entry.workspace.Flush()
	}
	for _, entry := range entries {
		m.release(entry)
	}
	m.logger.InfoContext(ctx, "Workspaces released", log.FieldCount, len(entries))
	return ctx.Err()
}
