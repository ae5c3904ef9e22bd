// Package docstore defines the remote document store the ledger syncs to.
// Each signed-in identity owns one document keyed by its user id.
package docstore

import (
	"context"
	"errors"

	"financeiro/internal/ledger"
)

// ErrNotFound signals that no document exists for a key yet.
var ErrNotFound = errors.New("docstore: document not found")

// Store reads and writes whole household documents.
type Store interface {
	// Get returns ErrNotFound when key has no document.
	Get(ctx context.Context, key string) (ledger.Document, error)
	// Set writes doc. With merge, nil sections of doc keep their stored value.
	Set(ctx context.Context, key string, doc ledger.Document, merge bool) error
}

// Lister enumerates stored document keys.
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}
