// Package google appends report rows to a Google spreadsheet, one tab per
// entity kind, authenticating with a service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "churchadmin/internal/sheets"
)

var _ ports.TabWriter = (*Client)(nil)

// Config selects the spreadsheet and the service account credentials.
// ServiceAccountJSON wins over ServiceAccountFile; with neither set,
// GOOGLE_APPLICATION_CREDENTIALS is consulted.
type Config struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *slog.Logger

	// Tab titles are cached to avoid a spreadsheet read per append.
	mu                 sync.Mutex
	tabs               map[string]bool
	tabsExpiresAt      time.Time
	cacheValidDuration time.Duration
	now                func() time.Time
}

// New creates a Sheets client using service account credentials.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, logger), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test
// endpoint.
func NewWithService(svc *gsheet.Service, spreadsheetID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		logger:             logger.With("component", "sheets"),
		cacheValidDuration: 5 * time.Minute,
		now:                time.Now,
	}
}

func newSheetsService(ctx context.Context, cfg Config, logger *slog.Logger) (*gsheet.Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		logger.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger.InfoContext(ctx, "Reading service account credentials", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// AppendRows implements sheets.TabWriter.
func (c *Client) AppendRows(ctx context.Context, tab string, header []string, rows [][]any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(rows) == 0 {
		return "", nil
	}
	if err := c.ensureTab(ctx, tab); err != nil {
		return "", err
	}

	values := make([][]any, 0, len(rows)+1)
	empty, err := c.tabEmpty(ctx, tab)
	if err != nil {
		return "", err
	}
	if empty && len(header) > 0 {
		h := make([]any, len(header))
		for i, v := range header {
			h[i] = v
		}
		values = append(values, h)
	}
	values = append(values, rows...)

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, quoteTab(tab)+"!A1", &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", tab, err)
	}
	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.InfoContext(ctx, "Rows appended", "tab", tab, "rows", len(rows), "range", ref, "header_written", empty)
	return ref, nil
}

// ensureTab creates tab unless the spreadsheet already has it.
func (c *Client) ensureTab(ctx context.Context, tab string) error {
	c.mu.Lock()
	if c.tabs != nil && c.now().Before(c.tabsExpiresAt) && c.tabs[tab] {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	titles := make(map[string]bool, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			titles[sh.Properties.Title] = true
		}
	}

	if !titles[tab] {
		req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		}}}
		if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("add tab %s: %w", tab, err)
		}
		c.logger.InfoContext(ctx, "Tab created", "tab", tab)
		titles[tab] = true
	}

	c.mu.Lock()
	c.tabs = titles
	c.tabsExpiresAt = c.now().Add(c.cacheValidDuration)
	c.mu.Unlock()
	return nil
}

// InvalidateTabs forgets the cached tab titles.
func (c *Client) InvalidateTabs() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tabs = nil
	c.tabsExpiresAt = time.Time{}
}

func (c *Client) tabEmpty(ctx context.Context, tab string) (bool, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, quoteTab(tab)+"!A1:A1").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read %s header: %w", tab, err)
	}
	return len(resp.Values) == 0, nil
}

// quoteTab quotes tab names for A1 notation.
func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}
