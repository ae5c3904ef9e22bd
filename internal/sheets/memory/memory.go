// Package memory keeps exported ledgers in process. The worker falls back to
// it when no spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"financeiro/internal/ledger"
	"financeiro/internal/sheets"
)

type Exporter struct {
	mu      sync.Mutex
	tabs    map[string][][]any
	exports int
}

var _ sheets.LedgerExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{tabs: make(map[string][][]any)}
}

// Export stores the rendered rows for userID, replacing earlier ones.
func (e *Exporter) Export(_ context.Context, userID string, doc ledger.Document) error {
	rows := sheets.LedgerRows(doc)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tabs[userID] = rows
	e.exports++
	return nil
}

// Rows returns the last export for userID.
func (e *Exporter) Rows(userID string) ([][]any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rows, ok := e.tabs[userID]
	return rows, ok
}

// Exports counts Export calls.
func (e *Exporter) Exports() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exports
}
