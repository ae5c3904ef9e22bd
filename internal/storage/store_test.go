package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financeiro/internal/core"
	"financeiro/internal/docstore"
	"financeiro/internal/ledger"
	"financeiro/internal/log"
)

func newTestStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "financeiro.db")
	s, err := NewSQLiteStore(path, log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func sampleDoc() ledger.Document {
	return ledger.Document{
		Transactions: []core.Transaction{{
			ID:          "1700000000000-abcd1234",
			Owner:       core.MemberA,
			Type:        core.Expense,
			CategoryID:  "e1",
			Description: "Groceries",
			Amount:      decimal.RequireFromString("42.10"),
			Tags:        []string{"weekly"},
			Date:        time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			CreatedAt:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		}},
		Categories:  ledger.DefaultCategories(),
		MemberNames: &core.MemberNames{MemberA: "Ana", MemberB: "Bia"},
		Version:     3,
		UpdatedAt:   time.Date(2024, 5, 1, 10, 0, 1, 0, time.UTC),
	}
}

func TestGetMissingDocument(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestSetThenGet(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	want := sampleDoc()

	require.NoError(t, s.Set(ctx, "u1", want, false))
	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)

	require.Len(t, got.Transactions, 1)
	assert.Equal(t, want.Transactions[0].ID, got.Transactions[0].ID)
	assert.True(t, want.Transactions[0].Amount.Equal(got.Transactions[0].Amount))
	assert.True(t, want.Transactions[0].Date.Equal(got.Transactions[0].Date))
	assert.Equal(t, want.Categories, got.Categories)
	assert.Equal(t, want.MemberNames, got.MemberNames)
	assert.Equal(t, int64(3), got.Version)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
}

func TestMergeKeepsAbsentSections(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.Set(ctx, "u1", sampleDoc(), false))

	patch := ledger.Document{Categories: []core.Category{{ID: "e1", Name: "Food", Type: core.Expense}}, Version: 4}
	require.NoError(t, s.Set(ctx, "u1", patch, true))

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, got.Transactions, 1, "transactions untouched")
	assert.Len(t, got.Categories, 1)
	require.NotNil(t, got.MemberNames)
	assert.Equal(t, "Ana", got.MemberNames.MemberA)
	assert.Equal(t, int64(4), got.Version)
}

func TestMergeRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.Set(ctx, "u1", sampleDoc(), false))

	err := s.Set(ctx, "u1", ledger.Document{Transactions: []core.Transaction{}, Version: 3}, true)
	require.ErrorIs(t, err, ledger.ErrStaleVersion)

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, got.Transactions, 1, "stored state kept")
	assert.Equal(t, int64(3), got.Version)
}

func TestReplaceDropsAbsentSections(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.Set(ctx, "u1", sampleDoc(), false))
	require.NoError(t, s.Set(ctx, "u1", ledger.Document{Version: 1}, false))

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got.Transactions)
	assert.Nil(t, got.Categories)
	assert.Nil(t, got.MemberNames)
}

func TestMergeOnMissingDocumentCreatesIt(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.Set(ctx, "fresh", ledger.Document{Transactions: []core.Transaction{}}, true))

	got, err := s.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, got.Transactions)
	assert.Empty(t, got.Transactions)
}

func TestKeys(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	for _, k := range []string{"b", "a", "c"} {
		require.NoError(t, s.Set(ctx, k, ledger.Document{}, true))
	}
	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestExportTracking(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	_, ok, err := s.ExportedVersion(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.MarkExportError(ctx, "u1", errors.New("quota"), now))
	require.NoError(t, s.MarkExportError(ctx, "u1", errors.New("quota again"), now))
	state, ok, err := s.ExportedVersion(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, state.ErrorCount)
	assert.Equal(t, "quota again", state.LastError)

	require.NoError(t, s.MarkExported(ctx, "u1", 7, now))
	state, _, err = s.ExportedVersion(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), state.Version)
	assert.Zero(t, state.ErrorCount)
	assert.Empty(t, state.LastError)
	assert.True(t, now.Equal(state.ExportedAt))
}

func TestMigrationsAreReversible(t *testing.T) {
	_, path := newTestStore(t)

	v, dirty, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), v)

	require.NoError(t, MigrateDown(path, 1))
	v, _, err = SchemaVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	require.NoError(t, RunMigrations(path))
	v, _, err = SchemaVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
}
