//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"financeiro/internal/log"
)

// Integration tests require a real spreadsheet and service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_ExportLedger(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	cfg := Config{
		SpreadsheetID:      os.Getenv("GOOGLE_SPREADSHEET_ID"),
		SheetName:          "Integration",
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}
	if cfg.SpreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	if cfg.ServiceAccountJSON == "" && cfg.ServiceAccountFile == "" {
		t.Skip("service account not configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := NewFromConfig(ctx, cfg, log.Discard())
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	if err := client.Export(ctx, "integration-test", testDocument()); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
}
