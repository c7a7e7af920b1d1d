package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"moneytracker/internal/core"
)

var wib = time.FixedZone("WIB", 7*3600)

func fixture() []core.Transaction {
	at := func(day, hour int) time.Time { return time.Date(2025, 4, day, hour, 0, 0, 0, wib) }
	return []core.Transaction{
		{Timestamp: at(1, 9), Description: "Gaji", Category: core.CategoryIncome, Direction: core.Income, Amount: 8500000, Asset: "BCA"},
		{Timestamp: at(15, 8), Description: "Kopi", Category: core.CategoryDrinks, Direction: core.Expense, Amount: 23000, Asset: "QRIS"},
		{Timestamp: at(15, 12), Description: "Makan siang", Category: core.CategoryFood, Direction: core.Expense, Amount: 25000, Asset: "BCA"},
	}
}

func TestWriteXLSX(t *testing.T) {
	now := time.Date(2025, 4, 15, 20, 0, 0, 0, wib)
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteXLSX(path, fixture(), now))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetTransactions, SheetSummary}, f.GetSheetList())

	rows, err := f.GetRows(SheetTransactions, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Tanggal", "Deskripsi", "Kategori", "Tipe", "Jumlah", "Aset"}, rows[0])
	assert.Equal(t, []string{"2025-04-15 08:00:00", "Kopi", "Minuman", "Pengeluaran", "23000", "QRIS"}, rows[2])

	styleID, err := f.GetCellStyle(SheetTransactions, "E3")
	require.NoError(t, err)
	assert.NotZero(t, styleID)

	summary, err := f.GetRows(SheetSummary, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Keterangan", "Jumlah"}, summary[0])
	assert.Equal(t, []string{"Pengeluaran hari ini (2025-04-15)", "48000"}, summary[1])
	assert.Equal(t, []string{"Pengeluaran bulan ini (2025-04)", "48000"}, summary[2])
	assert.Equal(t, []string{"Saldo total", "8452000"}, summary[3])
	assert.Equal(t, []string{"Per Kategori (2025-04)"}, summary[5])
	assert.Equal(t, []string{"Pemasukan", "8500000"}, summary[6])
	assert.Equal(t, []string{"Makanan", "-25000"}, summary[7])
	assert.Equal(t, []string{"Minuman", "-23000"}, summary[8])
	assert.Equal(t, []string{"Saldo per Aset"}, summary[10])
	assert.Equal(t, []string{"BCA", "8475000"}, summary[11])
	assert.Equal(t, []string{"QRIS", "-23000"}, summary[12])
}

func TestBuildEmpty(t *testing.T) {
	f, err := Build(nil, time.Date(2025, 4, 15, 0, 0, 0, 0, wib))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetTransactions)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	summary, err := f.GetRows(SheetSummary, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Pengeluaran hari ini (2025-04-15)", "0"}, summary[1])
}
