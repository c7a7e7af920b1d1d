package core

import (
	"errors"
	"strings"
	"time"
)

// TimestampLayout is the fixed timestamp format of a stored row.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	Income  Direction = "income"
	Expense Direction = "expense"
)

// Closed category set. A structured message may still carry a raw user token.
const (
	CategoryIncome    = "Pemasukan"
	CategoryClothing  = "Pakaian"
	CategoryDrinks    = "Minuman"
	CategoryFood      = "Makanan"
	CategoryBills     = "Tagihan"
	CategoryTransport = "Transportasi"
	CategoryOther     = "Lainnya"
)

// AssetOther is used when no payment method is recognized.
const AssetOther = "Lainnya"

type (
	Direction string

	// Transaction is one appended row. It is never updated once stored.
	Transaction struct {
		Timestamp   time.Time
		Description string
		Category    string
		Direction   Direction
		Amount      Money
		Asset       string
	}
)

var (
	ErrParseFailure        = errors.New("parse failure")
	ErrAmountNotRecognized = errors.New("amount not recognized")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrMalformedRecord     = errors.New("malformed record")

	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrZeroTimestamp    = errors.New("timestamp cannot be zero")
)

// Categories returns the closed category set in bucket order.
func Categories() []string {
	return []string{
		CategoryIncome,
		CategoryClothing,
		CategoryDrinks,
		CategoryFood,
		CategoryBills,
		CategoryTransport,
		CategoryOther,
	}
}

// Label is the sheet value of the direction.
func (d Direction) Label() string {
	switch d {
	case Income:
		return "Pemasukan"
	case Expense:
		return "Pengeluaran"
	}
	return string(d)
}

func (d Direction) Valid() bool {
	return d == Income || d == Expense
}

// ParseDirection accepts the sheet labels plus a few aliases, case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pemasukan", "income", "masuk":
		return Income, nil
	case "pengeluaran", "expense", "keluar":
		return Expense, nil
	}
	return "", ErrInvalidDirection
}

// Date returns the YYYY-MM-DD prefix of the timestamp.
func (t Transaction) Date() string {
	return t.Timestamp.Format("2006-01-02")
}

// YearMonth returns the YYYY-MM prefix of the timestamp.
func (t Transaction) YearMonth() string {
	return t.Timestamp.Format("2006-01")
}

// Signed is the effect of the transaction on a balance.
func (t Transaction) Signed() int64 {
	return t.Amount.Signed(t.Direction)
}

func (t Transaction) Validate() error {
	if t.Timestamp.IsZero() {
		return ErrZeroTimestamp
	}
	if !t.Direction.Valid() {
		return ErrInvalidDirection
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}
