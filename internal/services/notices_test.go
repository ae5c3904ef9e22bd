package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoticesExpire(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	n := NewNotices()
	n.now = func() time.Time { return now }

	n.Success(MsgSynced)
	n.Error(MsgSyncFailed)
	require.Len(t, n.Active(), 2)

	now = now.Add(SuccessNoticeTTL)
	active := n.Active()
	require.Len(t, active, 1, "success notices last 3s")
	assert.Equal(t, NoticeError, active[0].Kind)

	now = now.Add(ErrorNoticeTTL - SuccessNoticeTTL)
	assert.Empty(t, n.Active(), "error notices last 5s")
}

func TestNoticesCleanAndDismiss(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	n := NewNotices()
	n.now = func() time.Time { return now }

	first := n.Success("a")
	second := n.Error("b")
	assert.NotEqual(t, first.ID, second.ID)

	assert.True(t, n.Dismiss(second.ID))
	assert.False(t, n.Dismiss(second.ID))

	now = now.Add(time.Minute)
	assert.Equal(t, 1, n.CleanExpired())
	assert.Equal(t, 0, n.CleanExpired())

	n.Success("c")
	n.Clear()
	assert.Empty(t, n.Active())
}
