package core

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is an amount in rupiah, the smallest currency unit used here.
type Money int64

var idPrinter = message.NewPrinter(language.Indonesian)

// Validate rejects negative amounts and the zero amount a failed parse yields.
func (m Money) Validate() error {
	if m < 0 {
		return ErrInvalidAmount
	}
	if m == 0 {
		return ErrAmountNotRecognized
	}
	return nil
}

// Signed returns +m for income and -m for expense.
func (m Money) Signed(d Direction) int64 {
	if d == Income {
		return int64(m)
	}
	return -int64(m)
}

// String renders the amount with Indonesian grouping, e.g. Rp23.000.
func (m Money) String() string {
	return FormatRupiah(int64(m))
}

// FormatRupiah renders a signed amount, e.g. -Rp200.000.
func FormatRupiah(v int64) string {
	var b strings.Builder
	if v < 0 {
		b.WriteByte('-')
		v = -v
	}
	b.WriteString("Rp")
	b.WriteString(idPrinter.Sprintf("%d", v))
	return b.String()
}
