package sheets

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"moneytracker/internal/core"
)

// Header is the first row of the transactions sheet. Column order is
// [timestamp, description, category, direction, amount, asset].
var Header = []any{"Tanggal", "Deskripsi", "Kategori", "Tipe", "Jumlah", "Aset"}

// minColumns covers older sheets that never had the asset column.
const minColumns = 5

const amountColumn = 4

// RowError reports one stored row that could not be decoded.
type RowError struct {
	Row int // 1-based, as shown by the spreadsheet
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// EncodeRow converts a transaction into sheet cells.
func EncodeRow(t core.Transaction) []any {
	asset := t.Asset
	if strings.TrimSpace(asset) == "" {
		asset = core.AssetOther
	}
	return []any{
		t.Timestamp.Format(core.TimestampLayout),
		t.Description,
		t.Category,
		t.Direction.Label(),
		int64(t.Amount),
		asset,
	}
}

// DecodeRow validates one row of cells. Timestamps are read as wall-clock
// times in loc. Every failure wraps core.ErrMalformedRecord.
func DecodeRow(cols []string, loc *time.Location) (core.Transaction, error) {
	if len(cols) < minColumns {
		return core.Transaction{}, fmt.Errorf("%w: expected at least %d columns, got %d", core.ErrMalformedRecord, minColumns, len(cols))
	}
	ts, err := time.ParseInLocation(core.TimestampLayout, strings.TrimSpace(cols[0]), loc)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: timestamp %q", core.ErrMalformedRecord, cols[0])
	}
	dir, err := core.ParseDirection(cols[3])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: direction %q", core.ErrMalformedRecord, cols[3])
	}
	amount, err := ParseAmountCell(cols[amountColumn])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: amount %q", core.ErrMalformedRecord, cols[amountColumn])
	}
	asset := core.AssetOther
	if len(cols) > minColumns && strings.TrimSpace(cols[5]) != "" {
		asset = strings.TrimSpace(cols[5])
	}
	return core.Transaction{
		Timestamp:   ts,
		Description: strings.TrimSpace(cols[1]),
		Category:    strings.TrimSpace(cols[2]),
		Direction:   dir,
		Amount:      core.Money(amount),
		Asset:       asset,
	}, nil
}

// DecodeRows decodes a values matrix as returned by the Sheets API. Blank and
// header rows are skipped silently, bad rows are reported and skipped.
func DecodeRows(values [][]any, loc *time.Location) ([]core.Transaction, []RowError) {
	out := make([]core.Transaction, 0, len(values))
	var bad []RowError
	for i, row := range values {
		cols := ToStrings(row)
		if len(row) > amountColumn {
			// A hand-edited numeric cell may carry a fraction; its "." is a
			// decimal point, not a thousands separator.
			if f, ok := row[amountColumn].(float64); ok {
				cols[amountColumn] = strconv.FormatFloat(math.Trunc(f), 'f', 0, 64)
			}
		}
		if isBlank(cols) || isHeader(cols) {
			continue
		}
		t, err := DecodeRow(cols, loc)
		if err != nil {
			bad = append(bad, RowError{Row: i + 1, Err: err})
			continue
		}
		out = append(out, t)
	}
	return out, bad
}

// ParseAmountCell reads a stored amount: 23000, 23.000, Rp23.000 or a
// numeric cell rendered as 23000.
func ParseAmountCell(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.EqualFold(s[:2], "rp") {
		s = strings.TrimSpace(s[2:])
	}
	s = strings.NewReplacer(".", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return 0, errors.New("empty amount")
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, core.ErrInvalidAmount
	}
	return v, nil
}

// ToStrings renders cells as trimmed strings. Numbers keep their integer form.
func ToStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = cellString(v)
	}
	return out
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func isBlank(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}

func isHeader(cols []string) bool {
	switch strings.ToLower(cols[0]) {
	case "tanggal", "timestamp", "date":
		return true
	}
	return false
}
