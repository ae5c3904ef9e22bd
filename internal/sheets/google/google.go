package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"financeiro/internal/ledger"
	"financeiro/internal/log"
	ports "financeiro/internal/sheets"
)

var _ ports.LedgerExporter = (*Client)(nil)

// Config selects the target spreadsheet and credentials.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// Client writes one tab per household into a shared spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *log.Logger

	mu            sync.Mutex
	knownTabs     map[string]struct{}
	tabsExpiresAt time.Time
	tabsValidFor  time.Duration
	now           func() time.Time
}

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID, sheetBase string, logger *log.Logger) *Client {
	if strings.TrimSpace(sheetBase) == "" {
		sheetBase = "Ledger"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     strings.TrimSpace(sheetBase),
		logger:        logger.WithComponent(log.ComponentSheets),
		knownTabs:     make(map[string]struct{}),
		tabsValidFor:  10 * time.Minute,
		now:           time.Now,
	}
}

// NewFromConfig builds a client authenticated with a service account.
func NewFromConfig(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, strings.TrimSpace(cfg.SpreadsheetID), cfg.SheetName, logger), nil
}

// newSheetsService initializes a Sheets service from inline service account
// JSON, a credentials file, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	logger.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Export replaces the household's tab with the current ledger.
func (c *Client) Export(ctx context.Context, userID string, doc ledger.Document) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	tab := TabName(c.sheetBase, userID)
	if err := c.ensureTab(ctx, tab); err != nil {
		return err
	}

	rng := fmt.Sprintf("'%s'!A:H", tab)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	rows := ports.LedgerRows(doc)
	vr := &gsheet.ValueRange{Values: rows}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("'%s'!A1", tab), vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", tab, err)
	}

	c.logger.InfoContext(ctx, "Ledger exported",
		log.FieldUserID, userID,
		log.FieldVersion, doc.Version,
		log.FieldCount, len(doc.Transactions),
		"sheet", tab)
	return nil
}

// ensureTab creates tab when the spreadsheet does not have it. Known titles
// are cached for tabsValidFor.
func (c *Client) ensureTab(ctx context.Context, tab string) error {
	c.mu.Lock()
	if c.now().Before(c.tabsExpiresAt) {
		if _, ok := c.knownTabs[tab]; ok {
			c.mu.Unlock()
			return nil
		}
	}
	c.mu.Unlock()

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	titles := make(map[string]struct{}, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			titles[sh.Properties.Title] = struct{}{}
		}
	}

	if _, ok := titles[tab]; !ok {
		req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		}}}
		if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("add sheet %s: %w", tab, err)
		}
		c.logger.InfoContext(ctx, "Created sheet", "sheet", tab)
		titles[tab] = struct{}{}
	}

	c.mu.Lock()
	c.knownTabs = titles
	c.tabsExpiresAt = c.now().Add(c.tabsValidFor)
	c.mu.Unlock()
	return nil
}

// InvalidateTabs forgets cached sheet titles.
func (c *Client) InvalidateTabs() {
	c.mu.Lock()
	c.tabsExpiresAt = time.Time{}
	c.mu.Unlock()
}

// TabName returns "<base> <first 8 chars of userID>", stripped of characters
// Sheets does not allow in titles.
func TabName(base, userID string) string {
	id := strings.Map(func(r rune) rune {
		switch r {
		case '\'', '[', ']', '*', '?', '/', '\\', ':':
			return -1
		}
		return r
	}, userID)
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.TrimSpace(base + " " + id)
}
