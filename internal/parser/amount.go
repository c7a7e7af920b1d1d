package parser

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// amountRe matches the first amount run: optional Rp prefix, digits with at
// most mixed . and , separators, and an optional unit word.
var amountRe = regexp.MustCompile(`(?i)\b(?:rp\.?\s*)?(\d+(?:[.,]\d+)*)(?:\s*(ribu|rb|juta|jt|k)\b)?`)

// maxDigits keeps decimal.IntPart inside int64.
const maxDigits = 15

var (
	thousand  = decimal.NewFromInt(1_000)
	million   = decimal.NewFromInt(1_000_000)
	maxAmount = decimal.NewFromInt(math.MaxInt64)
)

type amountMatch struct {
	value      int64
	start, end int
}

// ExtractAmount returns the first amount found in text, or 0 when there is none.
func ExtractAmount(text string) int64 {
	m, ok := findAmount(text)
	if !ok {
		return 0
	}
	return m.value
}

func findAmount(text string) (amountMatch, bool) {
	loc := amountRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return amountMatch{}, false
	}
	num := text[loc[2]:loc[3]]
	unit := ""
	if loc[4] >= 0 {
		unit = strings.ToLower(text[loc[4]:loc[5]])
	}
	v, ok := amountValue(num, unit)
	if !ok {
		return amountMatch{}, false
	}
	return amountMatch{value: v, start: loc[0], end: loc[1]}, true
}

func amountValue(num, unit string) (int64, bool) {
	var mult decimal.Decimal
	switch unit {
	case "ribu", "rb", "k":
		mult = thousand
	case "juta", "jt":
		mult = million
	default:
		// No unit: separators are digit grouping.
		digits := stripSeparators(num)
		if len(digits) > maxDigits {
			return 0, false
		}
		d, err := decimal.NewFromString(digits)
		if err != nil {
			return 0, false
		}
		return d.IntPart(), true
	}

	s := decimalString(num)
	if len(stripSeparators(s)) > maxDigits {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	v := d.Mul(mult).Round(0)
	if v.GreaterThan(maxAmount) {
		return 0, false
	}
	return v.IntPart(), true
}

// decimalString normalizes a number that precedes a unit word. A comma is the
// decimal point; a lone dot is too when at most two digits follow it.
// Other separators are grouping and get dropped.
func decimalString(num string) string {
	dots := strings.Count(num, ".")
	commas := strings.Count(num, ",")
	switch {
	case dots > 0 && commas > 0:
		num = strings.ReplaceAll(num, ".", "")
		if commas > 1 {
			return strings.ReplaceAll(num, ",", "")
		}
		return strings.Replace(num, ",", ".", 1)
	case commas == 1:
		return strings.Replace(num, ",", ".", 1)
	case dots == 1 && len(num)-strings.IndexByte(num, '.')-1 <= 2:
		return num
	default:
		return stripSeparators(num)
	}
}

func stripSeparators(s string) string {
	return strings.NewReplacer(".", "", ",", "").Replace(s)
}
