// Package storage persists household documents in SQLite. Each synced
// section lives in its own JSON column so a merge write can leave absent
// sections untouched.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"financeiro/internal/core"
	"financeiro/internal/docstore"
	"financeiro/internal/ledger"
	"financeiro/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements docstore.Store and docstore.Lister.
type SQLiteStore struct {
	db     *sql.DB
	logger *log.Logger
}

var (
	_ docstore.Store  = (*SQLiteStore)(nil)
	_ docstore.Lister = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens dbPath, creating its directory, and applies pending
// migrations.
func NewSQLiteStore(dbPath string, logger *log.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type row struct {
	transactions sql.NullString
	categories   sql.NullString
	memberNames  sql.NullString
	version      int64
	updatedAt    string
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (ledger.Document, error) {
	r, err := getRow(ctx, s.db, key)
	if err != nil {
		return ledger.Document{}, err
	}
	return r.document()
}

// Set writes doc under key. With merge, nil sections keep the stored value.
func (s *SQLiteStore) Set(ctx context.Context, key string, doc ledger.Document, merge bool) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	if merge {
		r, gerr := getRow(ctx, tx, key)
		switch {
		case errors.Is(gerr, docstore.ErrNotFound):
		case gerr != nil:
			return gerr
		default:
			base, derr := r.document()
			if derr != nil {
				return derr
			}
			if doc, err = ledger.Merge(base, doc); err != nil {
				return err
			}
		}
	}

	r, err := toRow(doc)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (doc_key, transactions, categories, member_names, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_key) DO UPDATE SET
			transactions = excluded.transactions,
			categories   = excluded.categories,
			member_names = excluded.member_names,
			version      = excluded.version,
			updated_at   = excluded.updated_at`,
		key, r.transactions, r.categories, r.memberNames, r.version, r.updatedAt)
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", key, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.DebugContext(ctx, "Document stored",
		log.FieldUserID, key,
		log.FieldVersion, r.version,
		"merge", merge)
	return nil
}

// Keys lists every stored document key in ascending order.
func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc_key FROM documents ORDER BY doc_key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRow(ctx context.Context, q querier, key string) (row, error) {
	var r row
	err := q.QueryRowContext(ctx, `
		SELECT transactions, categories, member_names, version, updated_at
		FROM documents WHERE doc_key = ?`, key).
		Scan(&r.transactions, &r.categories, &r.memberNames, &r.version, &r.updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return row{}, docstore.ErrNotFound
	}
	if err != nil {
		return row{}, fmt.Errorf("get document %s: %w", key, err)
	}
	return r, nil
}

func (r row) document() (ledger.Document, error) {
	doc := ledger.Document{Version: r.version}
	if r.transactions.Valid {
		doc.Transactions = []core.Transaction{}
		if err := json.Unmarshal([]byte(r.transactions.String), &doc.Transactions); err != nil {
			return ledger.Document{}, fmt.Errorf("decode transactions: %w", err)
		}
	}
	if r.categories.Valid {
		doc.Categories = []core.Category{}
		if err := json.Unmarshal([]byte(r.categories.String), &doc.Categories); err != nil {
			return ledger.Document{}, fmt.Errorf("decode categories: %w", err)
		}
	}
	if r.memberNames.Valid {
		var names core.MemberNames
		if err := json.Unmarshal([]byte(r.memberNames.String), &names); err != nil {
			return ledger.Document{}, fmt.Errorf("decode member names: %w", err)
		}
		doc.MemberNames = &names
	}
	if r.updatedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, r.updatedAt)
		if err != nil {
			return ledger.Document{}, fmt.Errorf("decode updated_at: %w", err)
		}
		doc.UpdatedAt = t
	}
	return doc, nil
}

func toRow(doc ledger.Document) (row, error) {
	r := row{version: doc.Version, updatedAt: doc.UpdatedAt.UTC().Format(time.RFC3339Nano)}
	var err error
	if doc.Transactions != nil {
		if r.transactions, err = jsonColumn(doc.Transactions); err != nil {
			return row{}, fmt.Errorf("encode transactions: %w", err)
		}
	}
	if doc.Categories != nil {
		if r.categories, err = jsonColumn(doc.Categories); err != nil {
			return row{}, fmt.Errorf("encode categories: %w", err)
		}
	}
	if doc.MemberNames != nil {
		if r.memberNames, err = jsonColumn(doc.MemberNames); err != nil {
			return row{}, fmt.Errorf("encode member names: %w", err)
		}
	}
	return r, nil
}

func jsonColumn(v any) (sql.NullString, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
