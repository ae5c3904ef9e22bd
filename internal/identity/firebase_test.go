package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"financeiro/internal/core"
	"financeiro/internal/log"
)

type fakeToolkit struct {
	mu        sync.Mutex
	password  string
	setCalled int
	lastToken string
}

func (f *fakeToolkit) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "verifyPassword"):
		if body["email"] != "ana@example.com" || body["password"] != f.password {
			writeToolkitError(w, "INVALID_LOGIN_CREDENTIALS")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"localId":   "uid-ana",
			"email":     "ana@example.com",
			"idToken":   "id-token-1",
			"expiresIn": "3600",
		})
	case strings.HasSuffix(r.URL.Path, "setAccountInfo"):
		f.setCalled++
		f.lastToken, _ = body["idToken"].(string)
		f.password, _ = body["password"].(string)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"localId":   "uid-ana",
			"idToken":   "id-token-2",
			"expiresIn": "3600",
		})
	default:
		http.NotFound(w, r)
	}
}

func writeToolkitError(w http.ResponseWriter, msg string) {
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": 400, "message": msg},
	})
}

func newTestFirebase(t *testing.T, h http.Handler) *Firebase {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	f, err := NewFirebase(context.Background(), "test-key", log.Discard(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	f.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestFirebaseSignIn(t *testing.T) {
	f := newTestFirebase(t, &fakeToolkit{password: "secret1"})

	s, err := f.SignIn(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "uid-ana", s.UserID)
	assert.Equal(t, "id-token-1", s.IDToken)
	assert.Equal(t, time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC), s.ExpiresAt)
}

func TestFirebaseSignInInvalidCredential(t *testing.T) {
	f := newTestFirebase(t, &fakeToolkit{password: "secret1"})

	_, err := f.SignIn(context.Background(), "ana@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, core.IsAuthError(err, core.InvalidCredential))

	_, err = f.SignIn(context.Background(), "", "")
	assert.True(t, core.IsAuthError(err, core.InvalidCredential))
}

func TestFirebaseUnavailable(t *testing.T) {
	f := newTestFirebase(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := f.SignIn(context.Background(), "ana@example.com", "secret1")
	require.Error(t, err)
	assert.True(t, core.IsAuthError(err, core.AuthUnavailable))
}

func TestFirebaseChangePassword(t *testing.T) {
	tk := &fakeToolkit{password: "secret1"}
	f := newTestFirebase(t, tk)
	ctx := context.Background()
	s, err := f.SignIn(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	_, err = f.ChangePassword(ctx, s, "secret1", "123")
	assert.True(t, core.IsAuthError(err, core.WeakPassword))

	_, err = f.ChangePassword(ctx, s, "nope", "secret2")
	assert.True(t, core.IsAuthError(err, core.InvalidCredential))
	assert.Zero(t, tk.setCalled)

	updated, err := f.ChangePassword(ctx, s, "secret1", "secret2")
	require.NoError(t, err)
	assert.Equal(t, "id-token-2", updated.IDToken)
	assert.Equal(t, "id-token-1", tk.lastToken, "update uses the re-authenticated token")

	_, err = f.SignIn(ctx, "ana@example.com", "secret2")
	assert.NoError(t, err)
}

func TestNewFirebaseRequiresKey(t *testing.T) {
	_, err := NewFirebase(context.Background(), "", log.Discard())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
