package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/core"
	"moneytracker/internal/parser"
	mock_sheets "moneytracker/internal/sheets/mocks"
)

var wib = time.FixedZone("WIB", 7*3600)

// fixedNow is 2025-04-15 09:00 WIB, which is still 2025-04-15 02:00 UTC.
var fixedNow = time.Date(2025, 4, 15, 2, 0, 0, 0, time.UTC)

type fixture struct {
	writer  *mock_sheets.MockTransactionWriter
	reader  *mock_sheets.MockTransactionReader
	handler *Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	w := mock_sheets.NewMockTransactionWriter(ctrl)
	r := mock_sheets.NewMockTransactionReader(ctrl)
	h := NewHandler(w, r, parser.Default(), nil, wib).WithClock(func() time.Time { return fixedNow })
	return fixture{writer: w, reader: r, handler: h}
}

func rec(ts string, dir core.Direction, amount int64, category, asset string) core.Transaction {
	t, err := time.ParseInLocation(core.TimestampLayout, ts, wib)
	if err != nil {
		panic(err)
	}
	return core.Transaction{Timestamp: t, Description: "x", Category: category, Direction: dir, Amount: core.Money(amount), Asset: asset}
}

func snapshot() []core.Transaction {
	return []core.Transaction{
		rec("2025-03-30 10:00:00", core.Expense, 40_000, core.CategoryFood, "BCA"),
		rec("2025-04-01 08:00:00", core.Income, 500_000, core.CategoryIncome, "BCA"),
		rec("2025-04-15 07:00:00", core.Expense, 200_000, core.CategoryBills, "BCA"),
		rec("2025-04-15 08:30:00", core.Expense, 23_000, core.CategoryDrinks, "QRIS"),
		rec("2025-04-16 08:30:00", core.Income, 100_000, core.CategoryIncome, "GoPay"),
	}
}

func TestHandle_RecordsTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var saved core.Transaction
	f.writer.EXPECT().Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tx core.Transaction) (string, error) {
			saved = tx
			return "Sheet1!A10:F10", nil
		})

	reply := f.handler.Handle(ctx, "beli kopi 23 ribu QRIS")

	assert.Contains(t, reply.Text, "Data berhasil disimpan")
	assert.Contains(t, reply.Text, "Rp23.000")
	assert.Contains(t, reply.Text, "QRIS")
	assert.Equal(t, core.Expense, saved.Direction)
	assert.Equal(t, core.Money(23_000), saved.Amount)
	assert.Equal(t, core.CategoryDrinks, saved.Category)
	assert.Equal(t, "2025-04-15", saved.Date(), "timestamp must be taken in the configured zone")
}

func TestHandle_IncomeStructured(t *testing.T) {
	f := newFixture(t)
	f.writer.EXPECT().Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tx core.Transaction) (string, error) {
			assert.Equal(t, core.Income, tx.Direction)
			assert.Equal(t, "Gaji", tx.Description)
			assert.Equal(t, core.Money(5_000_000), tx.Amount)
			return "1", nil
		})

	reply := f.handler.Handle(context.Background(), "Gaji, Pemasukan, Pemasukan, 5000000")
	assert.Contains(t, reply.Text, "Pemasukan: Rp5.000.000")
}

func TestHandle_ParseFailuresNeverAppend(t *testing.T) {
	f := newFixture(t)
	// No EXPECT on writer: any Append call fails the test.

	reply := f.handler.Handle(context.Background(), "beli kopi QRIS")
	assert.Equal(t, msgAmountNotFound, reply.Text)

	reply = f.handler.Handle(context.Background(), "beli kopi 0 ribu")
	assert.Equal(t, msgAmountNotFound, reply.Text)

	reply = f.handler.Handle(context.Background(), "   ")
	assert.Equal(t, msgBadFormat, reply.Text)
}

func TestHandle_AppendFailure(t *testing.T) {
	f := newFixture(t)
	f.writer.EXPECT().Append(gomock.Any(), gomock.Any()).
		Return("", fmt.Errorf("%w: 503", core.ErrStoreUnavailable))

	reply := f.handler.Handle(context.Background(), "bensin 50 ribu")
	assert.Equal(t, msgSaveFailed, reply.Text)
}

func TestHandle_Summaries(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"daily button", "Summary Hari Ini", "📆 Pengeluaran hari ini: Rp223.000"},
		{"daily command with date", "/summary_hari 2025-03-30", "📆 Pengeluaran tanggal 2025-03-30: Rp40.000"},
		{"daily command with today's date", "/summary_hari 2025-04-15", "📆 Pengeluaran tanggal 2025-04-15: Rp223.000"},
		{"monthly button", "summary bulan ini", "🗓️ Pengeluaran bulan ini: Rp223.000"},
		{"monthly command", "/summary_bulan 2025-03", "📆 Total pengeluaran bulan *2025-03*: Rp40.000"},
		{"monthly command for bot", "/summary_bulan@MoneyBot 2025-04", "📆 Total pengeluaran bulan *2025-04*: Rp223.000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.reader.EXPECT().ListTransactions(gomock.Any()).Return(snapshot(), nil)
			reply := f.handler.Handle(context.Background(), tt.in)
			assert.Equal(t, tt.want, reply.Text)
		})
	}
}

func TestHandle_MonthlyIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.reader.EXPECT().ListTransactions(gomock.Any()).Return(snapshot(), nil).Times(2)

	first := f.handler.Handle(context.Background(), "summary bulan ini")
	second := f.handler.Handle(context.Background(), "summary bulan ini")
	assert.Equal(t, first, second)
}

func TestHandle_UsageErrorsSkipStore(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, msgUsageDaily, f.handler.Handle(context.Background(), "/summary_hari kemarin").Text)
	assert.Equal(t, msgUsageMonthly, f.handler.Handle(context.Background(), "/summary_bulan April").Text)
	assert.Equal(t, msgUsageCategory, f.handler.Handle(context.Background(), "/kategori 2025-13").Text)
}

func TestHandle_ReadFailure(t *testing.T) {
	f := newFixture(t)
	f.reader.EXPECT().ListTransactions(gomock.Any()).Return(nil, core.ErrStoreUnavailable).Times(3)

	assert.Equal(t, msgSummaryFailed, f.handler.Handle(context.Background(), "summary hari ini").Text)
	assert.Equal(t, msgSummaryFailed, f.handler.HandleCallback(context.Background(), CallbackCategory).Text)
	assert.Equal(t, msgSummaryFailed, f.handler.Handle(context.Background(), "/saldo").Text)
}

func TestHandle_CategoryBreakdown(t *testing.T) {
	f := newFixture(t)
	f.reader.EXPECT().ListTransactions(gomock.Any()).Return(snapshot(), nil)

	reply := f.handler.Handle(context.Background(), "Per Kategori")
	require.True(t, reply.Markdown)
	assert.Equal(t, "📊 *Ringkasan per Kategori (Bulan Ini)*\n\n"+
		"• *Pemasukan*: Rp600.000\n"+
		"• *Tagihan*: -Rp200.000\n"+
		"• *Minuman*: -Rp23.000", reply.Text)
}

func TestHandle_CategoryBreakdownExplicitMonth(t *testing.T) {
	f := newFixture(t)
	f.reader.EXPECT().ListTransactions(gomock.Any()).Return(snapshot(), nil)

	reply := f.handler.Handle(context.Background(), "/kategori 2025-04")
	require.True(t, reply.Markdown)
	assert.True(t, strings.HasPrefix(reply.Text, "📊 *Ringkasan per Kategori (2025-04)*\n\n"), reply.Text)
}

func TestHandle_CategoryBreakdownEmpty(t *testing.T) {
	f := newFixture(t)
	f.reader.EXPECT().ListTransactions(gomock.Any()).Return(nil, nil).Times(3)

	assert.Equal(t, msgNoMonthData, f.handler.Handle(context.Background(), "per kategori").Text)
	assert.Equal(t, "❌ Belum ada data bulan 2024-01.", f.handler.Handle(context.Background(), "/kategori 2024-01").Text)
	assert.Equal(t, "❌ Belum ada data bulan 2025-04.", f.handler.Handle(context.Background(), "/kategori 2025-04").Text)
}

func TestHandle_Balance(t *testing.T) {
	f := newFixture(t)
	f.reader.EXPECT().ListTransactions(gomock.Any()).Return(snapshot(), nil).Times(3)

	total := f.handler.Handle(context.Background(), "saldo")
	assert.Equal(t, "💰 Saldo total: Rp337.000\n• BCA: Rp260.000\n• GoPay: Rp100.000\n• QRIS: -Rp23.000", total.Text)

	bca := f.handler.Handle(context.Background(), "/saldo bca")
	assert.Equal(t, "💰 Saldo BCA: Rp260.000", bca.Text)

	other := f.handler.Handle(context.Background(), "/saldo Dompet")
	assert.Equal(t, "💰 Saldo Dompet: Rp0", other.Text)
}

func TestHandle_BalanceSequence(t *testing.T) {
	f := newFixture(t)
	f.reader.EXPECT().ListTransactions(gomock.Any()).Return([]core.Transaction{
		rec("2025-04-01 08:00:00", core.Income, 500_000, core.CategoryIncome, "BCA"),
		rec("2025-04-02 08:00:00", core.Expense, 200_000, core.CategoryBills, "BCA"),
		rec("2025-04-03 08:00:00", core.Income, 100_000, core.CategoryIncome, "BCA"),
	}, nil)

	assert.Equal(t, "💰 Saldo BCA: Rp400.000", f.handler.Handle(context.Background(), "/saldo BCA").Text)
}

func TestHandle_MenuAndStart(t *testing.T) {
	f := newFixture(t)

	start := f.handler.Handle(context.Background(), "/start")
	assert.True(t, start.Menu)
	assert.True(t, start.Keyboard)
	assert.True(t, start.Markdown)
	assert.Contains(t, start.Text, "Selamat datang")

	menu := f.handler.Handle(context.Background(), "Menu")
	assert.Equal(t, Reply{Text: MenuPrompt, Menu: true}, menu)

	add := f.handler.Handle(context.Background(), "+ Tambah Transaksi")
	assert.Equal(t, msgAddPrompt, add.Text)

	assert.Equal(t, msgUnknownCommand, f.handler.Handle(context.Background(), "/unknown").Text)
}

func TestHandleCallback(t *testing.T) {
	f := newFixture(t)
	f.reader.EXPECT().ListTransactions(gomock.Any()).Return(snapshot(), nil).Times(2)

	assert.Equal(t, msgAddPrompt, f.handler.HandleCallback(context.Background(), CallbackAdd).Text)
	assert.Equal(t, "📆 Pengeluaran hari ini: Rp223.000", f.handler.HandleCallback(context.Background(), CallbackDaily).Text)
	assert.Equal(t, "🗓️ Pengeluaran bulan ini: Rp223.000", f.handler.HandleCallback(context.Background(), CallbackMonthly).Text)
	assert.Equal(t, msgUnknownSelection, f.handler.HandleCallback(context.Background(), "bogus").Text)
}

func TestHandle_AppendThenDailyIncludesOnce(t *testing.T) {
	f := newFixture(t)
	var stored []core.Transaction
	f.writer.EXPECT().Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tx core.Transaction) (string, error) {
			stored = append(stored, tx)
			return "mem:1", nil
		})
	f.reader.EXPECT().ListTransactions(gomock.Any()).
		DoAndReturn(func(context.Context) ([]core.Transaction, error) { return stored, nil })

	f.handler.Handle(context.Background(), "makan siang 25 ribu")
	assert.Equal(t, "📆 Pengeluaran hari ini: Rp25.000", f.handler.Handle(context.Background(), "summary hari ini").Text)
}

func TestAllowList(t *testing.T) {
	open := NewAllowList(nil)
	assert.True(t, open.Allowed(1))

	list := NewAllowList([]int64{10, -20})
	assert.True(t, list.Allowed(-20))
	assert.False(t, list.Allowed(30))
	assert.Equal(t, msgNotAllowed, NotAllowed().Text)
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `Makan\_Siang \*x\*`, escapeMarkdown("Makan_Siang *x*"))
}
