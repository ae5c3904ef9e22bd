// Package sheets exports household ledgers to spreadsheets.
package sheets

import (
	"context"

	"financeiro/internal/ledger"
)

// LedgerExporter replaces the exported copy of one household ledger.
type LedgerExporter interface {
	Export(ctx context.Context, userID string, doc ledger.Document) error
}
