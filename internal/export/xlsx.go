// Package export writes stored transactions to an Excel workbook.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"moneytracker/internal/aggregate"
	"moneytracker/internal/core"
	"moneytracker/internal/sheets"
)

const (
	SheetTransactions = "Transaksi"
	SheetSummary      = "Ringkasan"
)

var rupiahFormat = `"Rp"#,##0;-"Rp"#,##0`

// WriteXLSX saves records and their summary to path. now decides which day
// and month the summary covers.
func WriteXLSX(path string, records []core.Transaction, now time.Time) (err error) {
	f, err := Build(records, now)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// Build returns the workbook in memory. The caller closes it.
func Build(records []core.Transaction, now time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetAppProps(&excelize.AppProperties{Application: "Money Tracker"})
	f.SetDocProps(&excelize.DocProperties{
		Creator: "Money Tracker",
		Created: now.Format(time.RFC3339),
	})

	if err := f.SetSheetName("Sheet1", SheetTransactions); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetSummary); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create sheet %s: %w", SheetSummary, err)
	}

	st, err := newStyles(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeTransactions(f, st, records); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeSummary(f, st, records, now); err != nil {
		_ = f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

type styles struct {
	header int
	money  int
	bold   int
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error
	st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}
	st.money, err = f.NewStyle(&excelize.Style{CustomNumFmt: &rupiahFormat})
	if err != nil {
		return st, fmt.Errorf("money style: %w", err)
	}
	st.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return st, fmt.Errorf("bold style: %w", err)
	}
	return st, nil
}

func writeTransactions(f *excelize.File, st styles, records []core.Transaction) error {
	sheet := SheetTransactions
	header := append([]any(nil), sheets.Header...)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "F1", st.header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, t := range records {
		row := sheets.EncodeRow(t)
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if len(records) > 0 {
		last := len(records) + 1
		if err := f.SetCellStyle(sheet, "E2", fmt.Sprintf("E%d", last), st.money); err != nil {
			return fmt.Errorf("style amounts: %w", err)
		}
		if err := f.AutoFilter(sheet, fmt.Sprintf("A1:F%d", last), nil); err != nil {
			return fmt.Errorf("autofilter: %w", err)
		}
	}

	for col, width := range map[string]float64{"A": 20, "B": 40, "C": 16, "D": 14, "E": 16, "F": 12} {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("column width %s: %w", col, err)
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// summaryRow is one label/amount line; section rows have no amount.
type summaryRow struct {
	label   string
	amount  int64
	section bool
	blank   bool
}

func summaryRows(records []core.Transaction, now time.Time) []summaryRow {
	today := aggregate.Today(now)
	month := aggregate.ThisMonth(now)

	rows := []summaryRow{
		{label: "Pengeluaran hari ini (" + today + ")", amount: int64(aggregate.DailyTotal(records, today))},
		{label: "Pengeluaran bulan ini (" + month + ")", amount: int64(aggregate.MonthlyTotal(records, month))},
		{label: "Saldo total", amount: aggregate.Balance(records, "")},
		{blank: true},
		{label: "Per Kategori (" + month + ")", section: true},
	}
	for _, c := range aggregate.CategoryBreakdown(records, month) {
		rows = append(rows, summaryRow{label: c.Category, amount: c.Total})
	}
	rows = append(rows, summaryRow{blank: true}, summaryRow{label: "Saldo per Aset", section: true})
	for _, a := range aggregate.BalanceByAsset(records) {
		rows = append(rows, summaryRow{label: a.Asset, amount: a.Total})
	}
	return rows
}

func writeSummary(f *excelize.File, st styles, records []core.Transaction, now time.Time) error {
	sheet := SheetSummary
	if err := f.SetSheetRow(sheet, "A1", &[]any{"Keterangan", "Jumlah"}); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "B1", st.header); err != nil {
		return fmt.Errorf("style summary header: %w", err)
	}

	for i, r := range summaryRows(records, now) {
		n := i + 2
		if r.blank {
			continue
		}
		label := fmt.Sprintf("A%d", n)
		if err := f.SetCellValue(sheet, label, r.label); err != nil {
			return fmt.Errorf("write summary row %d: %w", n, err)
		}
		if r.section {
			if err := f.SetCellStyle(sheet, label, label, st.bold); err != nil {
				return fmt.Errorf("style summary row %d: %w", n, err)
			}
			continue
		}
		amount := fmt.Sprintf("B%d", n)
		if err := f.SetCellValue(sheet, amount, r.amount); err != nil {
			return fmt.Errorf("write summary row %d: %w", n, err)
		}
		if err := f.SetCellStyle(sheet, amount, amount, st.money); err != nil {
			return fmt.Errorf("style summary row %d: %w", n, err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 36); err != nil {
		return fmt.Errorf("column width: %w", err)
	}
	return f.SetColWidth(sheet, "B", "B", 18)
}
