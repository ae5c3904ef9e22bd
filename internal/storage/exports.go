package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ExportState tracks what the worker last pushed to the spreadsheet.
type ExportState struct {
	Version    int64
	ExportedAt time.Time
	ErrorCount int
	LastError  string
}

// ExportedVersion returns the last exported state for key. ok is false when
// the document was never exported.
func (s *SQLiteStore) ExportedVersion(ctx context.Context, key string) (state ExportState, ok bool, err error) {
	var (
		at      string
		lastErr sql.NullString
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT version, exported_at, error_count, last_error FROM exports WHERE doc_key = ?`, key).
		Scan(&state.Version, &at, &state.ErrorCount, &lastErr)
	if errors.Is(err, sql.ErrNoRows) {
		return ExportState{}, false, nil
	}
	if err != nil {
		return ExportState{}, false, fmt.Errorf("get export state %s: %w", key, err)
	}
	state.LastError = lastErr.String
	if state.ExportedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
		return ExportState{}, false, fmt.Errorf("decode exported_at: %w", err)
	}
	return state, true, nil
}

// MarkExported records a successful export of version and clears errors.
func (s *SQLiteStore) MarkExported(ctx context.Context, key string, version int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exports (doc_key, version, exported_at, error_count, last_error)
		VALUES (?, ?, ?, 0, NULL)
		ON CONFLICT(doc_key) DO UPDATE SET
			version     = excluded.version,
			exported_at = excluded.exported_at,
			error_count = 0,
			last_error  = NULL`,
		key, version, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("mark exported %s: %w", key, err)
	}
	return nil
}

// MarkExportError bumps the error counter for key.
func (s *SQLiteStore) MarkExportError(ctx context.Context, key string, exportErr error, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exports (doc_key, version, exported_at, error_count, last_error)
		VALUES (?, 0, ?, 1, ?)
		ON CONFLICT(doc_key) DO UPDATE SET
			error_count = exports.error_count + 1,
			last_error  = excluded.last_error`,
		key, at.UTC().Format(time.RFC3339Nano), exportErr.Error())
	if err != nil {
		return fmt.Errorf("mark export error %s: %w", key, err)
	}
	return nil
}
