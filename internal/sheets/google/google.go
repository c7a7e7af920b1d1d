package google

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"moneytracker/internal/core"
	ports "moneytracker/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Ensure interface conformance
var (
	_ ports.TransactionWriter = (*Client)(nil)
	_ ports.TransactionReader = (*Client)(nil)
)

// Rows are stored verbatim so timestamps stay in TimestampLayout instead of
// being reinterpreted by the spreadsheet locale.
const valueInputOption = "RAW"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	loc           *time.Location
}

// Options configures a Client. ClientOptions replaces the service-account
// credentials entirely, which tests use to point at a fake endpoint.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON []byte
	Location        *time.Location
	ClientOptions   []goption.ClientOption
}

// New creates a Sheets client for one worksheet of one spreadsheet.
func New(ctx context.Context, o Options) (*Client, error) {
	if strings.TrimSpace(o.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheetName := strings.TrimSpace(o.SheetName)
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	loc := o.Location
	if loc == nil {
		loc = time.Local
	}

	svc, err := newSheetsService(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: o.SpreadsheetID,
		sheetName:     sheetName,
		loc:           loc,
	}, nil
}

func newSheetsService(ctx context.Context, o Options) (*gsheet.Service, error) {
	if len(o.ClientOptions) > 0 {
		return gsheet.NewService(ctx, o.ClientOptions...)
	}
	if len(o.CredentialsJSON) == 0 {
		return nil, errors.New("missing service account credentials")
	}
	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(o.CredentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(o.CredentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// LoadCredentials resolves the service account key from, in order, inline
// JSON, base64-encoded JSON, or a key file path.
func LoadCredentials(inlineJSON, base64JSON, file string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inlineJSON) != "":
		return []byte(inlineJSON), nil
	case strings.TrimSpace(base64JSON) != "":
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(base64JSON))
		if err != nil {
			return nil, fmt.Errorf("decode base64 credentials: %w", err)
		}
		return b, nil
	case strings.TrimSpace(file) != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_CREDENTIALS_BASE64, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
}

// Append adds one row after the last row of the sheet.
func (c *Client) Append(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := c.a1("A:F")
	vr := &gsheet.ValueRange{Values: [][]any{ports.EncodeRow(t)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption(valueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: append to %s: %w", core.ErrStoreUnavailable, c.sheetName, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// ListTransactions reads the whole sheet. Malformed rows are logged and skipped.
func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := c.a1("A:F")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", core.ErrStoreUnavailable, rng, err)
	}
	out, bad := ports.DecodeRows(resp.Values, c.loc)
	for _, e := range bad {
		slog.WarnContext(ctx, "Skipping malformed row", "sheet", c.sheetName, "row", e.Row, "error", e.Err)
	}
	return out, nil
}

// Ping fetches only the spreadsheet id, which proves the credentials and the
// spreadsheet are usable without reading any cells.
func (c *Client) Ping(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: get spreadsheet: %w", core.ErrStoreUnavailable, err)
	}
	return nil
}

// EnsureHeader writes the header row when the first row is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := c.a1("A1:F1")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", core.ErrStoreUnavailable, rng, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	vr := &gsheet.ValueRange{Values: [][]any{ports.Header}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption(valueInputOption).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: write header to %s: %w", core.ErrStoreUnavailable, c.sheetName, err)
	}
	slog.InfoContext(ctx, "Wrote header row", "sheet", c.sheetName)
	return nil
}

// a1 builds an A1 range on the configured sheet, quoting names that need it.
func (c *Client) a1(cells string) string {
	name := c.sheetName
	if strings.ContainsAny(name, " '!:") {
		name = "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name + "!" + cells
}
