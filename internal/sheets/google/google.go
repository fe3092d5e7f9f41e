// Package google reads reservation sheets from a Google spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"occupancy/internal/core"
	"occupancy/internal/ingest"
	ports "occupancy/internal/sheets"
)

// Config holds the spreadsheet location and credentials.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	Columns         ingest.Columns
}

// valuesFunc fetches the cell matrix of an A1 range.
type valuesFunc func(ctx context.Context, rng string) ([][]any, error)

// Client is a read-only reservation source backed by one spreadsheet tab.
type Client struct {
	spreadsheetID string
	sheetName     string
	cols          ingest.Columns
	values        valuesFunc
	now           func() time.Time
}

// Ensure interface conformance
var (
	_ ports.SheetWriter = (*Client)(nil)
	_ ports.SheetReader = (*Client)(nil)
	_ ports.SheetLister = (*Client)(nil)
)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(cfg.SheetName) == "" {
		return nil, errors.New("missing sheet name")
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	c := newClient(cfg, func(ctx context.Context, rng string) ([][]any, error) {
		resp, err := svc.Spreadsheets.Values.Get(cfg.SpreadsheetID, rng).
			ValueRenderOption("FORMATTED_VALUE").
			DateTimeRenderOption("FORMATTED_STRING").
			Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return resp.Values, nil
	})
	return c, nil
}

func newClient(cfg Config, values valuesFunc) *Client {
	return &Client{
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		cols:          cfg.Columns,
		values:        values,
		now:           time.Now,
	}
}

// newSheetsService initializes a read-only Sheets service from service
// account credentials, inline JSON taking precedence over a file.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsReadonlyScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// SheetID is the id under which the configured tab is exposed.
func (c *Client) SheetID() string {
	return "gsheet:" + c.sheetName
}

// Save is not supported; the spreadsheet is edited in Google Sheets.
func (c *Client) Save(context.Context, core.SheetInfo, []ingest.Record) error {
	return ports.ErrReadOnly
}

// Load reads the tab when id names it.
func (c *Client) Load(ctx context.Context, id string) (core.Sheet, error) {
	if id != c.SheetID() {
		return core.Sheet{}, fmt.Errorf("%w: %s", ports.ErrSheetNotFound, id)
	}
	return c.Latest(ctx)
}

// Latest reads the whole tab. Every call hits the API; callers cache.
func (c *Client) Latest(ctx context.Context) (core.Sheet, error) {
	rng := fmt.Sprintf("%s!A:Z", quoteSheetName(c.sheetName))
	values, err := c.values(ctx, rng)
	if err != nil {
		return core.Sheet{}, fmt.Errorf("read %s: %w", rng, err)
	}

	reservations, err := parseValues(values, c.cols)
	if err != nil {
		return core.Sheet{}, fmt.Errorf("parse %s: %w", rng, err)
	}

	return core.Sheet{
		ID:           c.SheetID(),
		Name:         c.sheetName,
		ImportedAt:   c.now().UTC(),
		Reservations: reservations,
	}, nil
}

// ListSheets reports the single configured tab.
func (c *Client) ListSheets(ctx context.Context) ([]core.SheetInfo, error) {
	sheet, err := c.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return []core.SheetInfo{sheet.Info()}, nil
}

// quoteSheetName wraps tab names containing spaces or punctuation in
// single quotes as A1 notation requires.
func quoteSheetName(name string) string {
	if strings.IndexFunc(name, func(r rune) bool {
		return !(r == '_' || r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z')
	}) == -1 {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
