// Package parser turns one free-text chat line into a core.Transaction.
//
// Two input shapes are understood. The free-text shape ("beli kopi 23 ribu
// QRIS") goes through keyword heuristics; the structured shape
// ("Makan siang, Makanan, Pengeluaran, 25000") takes the user's own
// description, category and direction.
package parser

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"moneytracker/internal/core"
)

// incomeMarker selects the income direction when it appears anywhere in the text.
const incomeMarker = "masuk"

// Parser is stateless apart from its keyword table and safe for concurrent use.
type Parser struct {
	table Table
}

// New builds a Parser over the given keyword table.
func New(t Table) *Parser {
	return &Parser{table: t.normalized()}
}

// Default builds a Parser over the built-in keyword table.
func Default() *Parser {
	return New(DefaultTable())
}

// Parse converts text into a transaction stamped with now. It returns an error
// wrapping core.ErrAmountNotRecognized when no amount is found and
// core.ErrParseFailure for any other unusable input.
func (p *Parser) Parse(text string, now time.Time) (tx core.Transaction, err error) {
	defer func() {
		if r := recover(); r != nil {
			tx = core.Transaction{}
			err = fmt.Errorf("%w: %v", core.ErrParseFailure, r)
		}
	}()

	text = strings.TrimSpace(text)
	if text == "" {
		return core.Transaction{}, fmt.Errorf("%w: empty message", core.ErrParseFailure)
	}
	if stx, ok, serr := p.parseStructured(text, now); ok {
		return stx, serr
	}
	return p.parseFree(text, now)
}

func (p *Parser) parseFree(text string, now time.Time) (core.Transaction, error) {
	m, ok := findAmount(text)
	if !ok || m.value == 0 {
		return core.Transaction{}, core.ErrAmountNotRecognized
	}
	category := p.Categorize(text)
	return core.Transaction{
		Timestamp:   now,
		Description: p.describe(text, m, category),
		Category:    category,
		Direction:   DetectDirection(text),
		Amount:      core.Money(m.value),
		Asset:       p.ExtractAsset(text),
	}, nil
}

// parseStructured handles "Deskripsi, Kategori, Tipe, Jumlah". ok is false when
// the text does not have that shape.
func (p *Parser) parseStructured(text string, now time.Time) (core.Transaction, bool, error) {
	if strings.Count(text, ",") < 3 {
		return core.Transaction{}, false, nil
	}
	parts := strings.SplitN(text, ",", 4)
	dir, err := core.ParseDirection(parts[2])
	if err != nil {
		return core.Transaction{}, false, nil
	}
	desc := strings.TrimSpace(parts[0])
	if desc == "" {
		return core.Transaction{}, true, fmt.Errorf("%w: empty description", core.ErrParseFailure)
	}
	amount := ExtractAmount(parts[3])
	if amount == 0 {
		return core.Transaction{}, true, core.ErrAmountNotRecognized
	}
	category := canonicalCategory(strings.TrimSpace(parts[1]))
	if category == "" {
		category = p.Categorize(desc)
	}
	return core.Transaction{
		Timestamp:   now,
		Description: titleCase(desc),
		Category:    category,
		Direction:   dir,
		Amount:      core.Money(amount),
		Asset:       p.ExtractAsset(parts[3]),
	}, true, nil
}

// DetectDirection is a single substring test; there is no negation handling.
func DetectDirection(text string) core.Direction {
	if strings.Contains(strings.ToLower(text), incomeMarker) {
		return core.Income
	}
	return core.Expense
}

// Categorize returns the first bucket with a keyword hit, or core.CategoryOther.
func (p *Parser) Categorize(text string) string {
	hay := haystack(tokenize(text))
	for _, b := range p.table.Buckets {
		for _, k := range b.Keywords {
			if strings.Contains(hay, " "+k+" ") {
				return b.Name
			}
		}
	}
	return core.CategoryOther
}

// ExtractAsset returns the label of the first whitelisted payment method in
// text, or core.AssetOther.
func (p *Parser) ExtractAsset(text string) string {
	if a, ok := p.matchAsset(tokenize(text)); ok {
		return a.Label
	}
	return core.AssetOther
}

func (p *Parser) matchAsset(tokens []string) (Asset, bool) {
	hay := haystack(tokens)
	for _, a := range p.table.Assets {
		for _, k := range a.Keywords {
			if strings.Contains(hay, " "+k+" ") {
				return a, true
			}
		}
	}
	return Asset{}, false
}

func (p *Parser) isAssetToken(tok string) bool {
	for _, a := range p.table.Assets {
		for _, k := range a.Keywords {
			if k == tok {
				return true
			}
		}
	}
	return false
}

// describe takes the words before the amount. When the amount leads the text
// it keeps every word that is not the amount, the income marker or an asset.
func (p *Parser) describe(text string, m amountMatch, category string) string {
	words := dropMarker(strings.Fields(text[:m.start]))
	if len(words) == 0 {
		for _, w := range dropMarker(strings.Fields(text[m.end:])) {
			if t := tokenize(w); len(t) == 1 && p.isAssetToken(t[0]) {
				continue
			}
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return category
	}
	desc := strings.TrimRight(strings.Join(words, " "), ",.:;- ")
	if desc == "" {
		return category
	}
	return titleCase(desc)
}

func dropMarker(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if strings.EqualFold(strings.Trim(w, ",.:;"), incomeMarker) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// canonicalCategory maps a user token onto the closed set when it matches one,
// else returns the token title-cased.
func canonicalCategory(s string) string {
	if s == "" {
		return ""
	}
	for _, c := range core.Categories() {
		if strings.EqualFold(c, s) {
			return c
		}
	}
	return titleCase(s)
}

func titleCase(s string) string {
	return cases.Title(language.Indonesian).String(strings.Join(strings.Fields(s), " "))
}

// tokenize lower-cases text and splits it on anything that is not a letter or
// a digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func haystack(tokens []string) string {
	return " " + strings.Join(tokens, " ") + " "
}
