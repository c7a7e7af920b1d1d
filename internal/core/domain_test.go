package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseDirection(t *testing.T) {
	cases := []struct {
		in   string
		want Direction
		ok   bool
	}{
		{"Pemasukan", Income, true},
		{" income ", Income, true},
		{"MASUK", Income, true},
		{"pengeluaran", Expense, true},
		{"Keluar", Expense, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDirection(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestDirectionLabelRoundTrip(t *testing.T) {
	for _, d := range []Direction{Income, Expense} {
		got, err := ParseDirection(d.Label())
		if err != nil || got != d {
			t.Fatalf("label %q did not parse back to %q", d.Label(), d)
		}
	}
}

func TestTransactionPrefixes(t *testing.T) {
	tx := Transaction{Timestamp: time.Date(2025, 4, 3, 9, 5, 0, 0, time.UTC)}
	if tx.Date() != "2025-04-03" {
		t.Fatalf("date prefix: %s", tx.Date())
	}
	if tx.YearMonth() != "2025-04" {
		t.Fatalf("month prefix: %s", tx.YearMonth())
	}
}

func TestTransactionValidate(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	good := Transaction{
		Timestamp:   now,
		Description: "Beli Kopi",
		Category:    CategoryDrinks,
		Direction:   Expense,
		Amount:      23000,
		Asset:       "QRIS",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		tx   Transaction
		want error
	}{
		{Transaction{Description: "a", Direction: Expense, Amount: 1}, ErrZeroTimestamp},
		{Transaction{Timestamp: now, Description: "a", Direction: "sideways", Amount: 1}, ErrInvalidDirection},
		{Transaction{Timestamp: now, Description: "a", Direction: Income, Amount: 0}, ErrAmountNotRecognized},
		{Transaction{Timestamp: now, Description: "a", Direction: Income, Amount: -5}, ErrInvalidAmount},
		{Transaction{Timestamp: now, Description: " ", Direction: Income, Amount: 5}, ErrEmptyDescription},
	}
	for i, tc := range bads {
		if err := tc.tx.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}
