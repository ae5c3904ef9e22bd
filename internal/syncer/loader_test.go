package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financeiro/internal/core"
	"financeiro/internal/ledger"
	"financeiro/internal/log"
)

func newTestLoader(store *fakeStore) (*Loader, *[]time.Duration) {
	waits := &[]time.Duration{}
	l := NewLoader(store, DefaultLoadRetry(), log.Discard())
	l.sleep = func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
	return l, waits
}

func TestLoadFound(t *testing.T) {
	doc := ledger.Document{Categories: ledger.DefaultCategories(), Version: 7}
	l, waits := newTestLoader(&fakeStore{doc: &doc})

	res, err := l.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, int64(7), res.Document.Version)
	assert.Equal(t, 1, res.Attempts)
	assert.Empty(t, *waits)
}

func TestLoadNotFoundIsNotAnError(t *testing.T) {
	store := &fakeStore{}
	l, _ := newTestLoader(store)

	res, err := l.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Equal(t, 1, store.gets)
}

func TestLoadRetriesWithBackoff(t *testing.T) {
	doc := ledger.Document{Version: 1}
	store := &fakeStore{doc: &doc, getErrs: []error{errNetwork, errNetwork}}
	l, waits := newTestLoader(store)

	res, err := l.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
}

func TestLoadGivesUpAfterCap(t *testing.T) {
	store := &fakeStore{getErrs: []error{errNetwork, errNetwork, errNetwork, errNetwork}}
	l, _ := newTestLoader(store)

	_, err := l.Load(context.Background(), "u1")
	require.Error(t, err)
	assert.True(t, core.IsSyncError(err))
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.ErrorIs(t, err, errNetwork)
	assert.Equal(t, 3, store.gets)
}

func TestLoadStopsOnCancelledContext(t *testing.T) {
	store := &fakeStore{getErrs: []error{errNetwork, errNetwork, errNetwork}}
	l, _ := newTestLoader(store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Load(ctx, "u1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errNetwork))
	assert.False(t, errors.Is(err, ErrMaxRetries))
	assert.Equal(t, 1, store.gets)
}

func TestBackoffCap(t *testing.T) {
	o := DefaultLoadRetry()
	assert.Equal(t, time.Second, o.Backoff(1))
	assert.Equal(t, 4*time.Second, o.Backoff(3))
	assert.Equal(t, 5*time.Second, o.Backoff(4))
	assert.Equal(t, 5*time.Second, o.Backoff(40))
}
