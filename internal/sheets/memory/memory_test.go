package memory

import (
	"context"
	"testing"

	"financeiro/internal/ledger"
	"financeiro/internal/sheets"
)

func TestExporterReplacesRows(t *testing.T) {
	e := New()
	ctx := context.Background()

	if _, ok := e.Rows("u1"); ok {
		t.Fatal("expected no rows before export")
	}
	if err := e.Export(ctx, "u1", ledger.Document{}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if err := e.Export(ctx, "u1", ledger.Document{}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	rows, ok := e.Rows("u1")
	if !ok {
		t.Fatal("expected rows after export")
	}
	if len(rows[0]) != len(sheets.Header) {
		t.Errorf("header width = %d, want %d", len(rows[0]), len(sheets.Header))
	}
	if e.Exports() != 2 {
		t.Errorf("Exports() = %d, want 2", e.Exports())
	}
}
