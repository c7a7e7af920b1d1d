// Package aggregate derives summaries from a snapshot of stored transactions.
// Every function is a linear scan; nothing is cached between calls.
package aggregate

import (
	"sort"
	"strings"
	"time"

	"moneytracker/internal/core"
)

// CategoryTotal is the signed sum of one category: income adds, expense
// subtracts.
type CategoryTotal struct {
	Category string
	Total    int64
}

// Today returns the date prefix used by DailyTotal.
func Today(now time.Time) string {
	return now.Format("2006-01-02")
}

// ThisMonth returns the year-month prefix used by MonthlyTotal.
func ThisMonth(now time.Time) string {
	return now.Format("2006-01")
}

// DailyTotal sums expenses whose timestamp falls on date (YYYY-MM-DD).
func DailyTotal(records []core.Transaction, date string) core.Money {
	var total core.Money
	for _, r := range records {
		if r.Direction == core.Expense && r.Date() == date {
			total += r.Amount
		}
	}
	return total
}

// MonthlyTotal sums expenses whose timestamp falls in yearMonth (YYYY-MM).
func MonthlyTotal(records []core.Transaction, yearMonth string) core.Money {
	var total core.Money
	for _, r := range records {
		if r.Direction == core.Expense && r.YearMonth() == yearMonth {
			total += r.Amount
		}
	}
	return total
}

// CategoryBreakdown returns signed totals per category for yearMonth, largest
// magnitude first. Ties are ordered by category name.
func CategoryBreakdown(records []core.Transaction, yearMonth string) []CategoryTotal {
	sums := map[string]int64{}
	for _, r := range records {
		if r.YearMonth() != yearMonth {
			continue
		}
		cat := strings.TrimSpace(r.Category)
		if cat == "" {
			cat = core.CategoryOther
		}
		sums[cat] += r.Signed()
	}
	out := make([]CategoryTotal, 0, len(sums))
	for cat, total := range sums {
		out = append(out, CategoryTotal{Category: cat, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := abs(out[i].Total), abs(out[j].Total)
		if ai != aj {
			return ai > aj
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Balance is the signed running total over all records. A non-empty asset
// restricts it to that payment method, compared case-insensitively.
func Balance(records []core.Transaction, asset string) int64 {
	asset = strings.TrimSpace(asset)
	var total int64
	for _, r := range records {
		if asset != "" && !strings.EqualFold(strings.TrimSpace(r.Asset), asset) {
			continue
		}
		total += r.Signed()
	}
	return total
}

// AssetBalance is the running total of one payment method.
type AssetBalance struct {
	Asset string
	Total int64
}

// BalanceByAsset splits Balance per asset, ordered by asset name. Blank
// assets are reported as Lainnya.
func BalanceByAsset(records []core.Transaction) []AssetBalance {
	sums := map[string]int64{}
	for _, r := range records {
		asset := strings.TrimSpace(r.Asset)
		if asset == "" {
			asset = core.AssetOther
		}
		sums[asset] += r.Signed()
	}
	out := make([]AssetBalance, 0, len(sums))
	for asset, total := range sums {
		out = append(out, AssetBalance{Asset: asset, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
