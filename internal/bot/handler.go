// Package bot turns chat text into ledger operations and reply text. It knows
// nothing about Telegram; the transport maps updates onto Handle and
// HandleCallback and renders the returned Reply.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"moneytracker/internal/aggregate"
	"moneytracker/internal/core"
	applog "moneytracker/internal/log"
	"moneytracker/internal/parser"
	"moneytracker/internal/sheets"
)

// Reply is a transport-neutral answer.
type Reply struct {
	Text     string
	Markdown bool
	// Menu asks the transport to attach the inline menu (MenuButtons).
	Menu bool
	// Keyboard asks the transport to install the reply keyboard
	// (KeyboardLabels).
	Keyboard bool
}

type Handler struct {
	writer sheets.TransactionWriter
	reader sheets.TransactionReader
	parser *parser.Parser
	logger *applog.Logger
	loc    *time.Location
	now    func() time.Time
}

func NewHandler(w sheets.TransactionWriter, r sheets.TransactionReader, p *parser.Parser, logger *applog.Logger, loc *time.Location) *Handler {
	if p == nil {
		p = parser.Default()
	}
	if logger == nil {
		logger = applog.Wrap(nil, applog.ComponentBot)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Handler{writer: w, reader: r, parser: p, logger: logger, loc: loc, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) clock() time.Time {
	return h.now().In(h.loc)
}

// Handle answers one text message. Routing is by command, then by substring
// of the lower-cased text; anything unrecognized is treated as a transaction.
func (h *Handler) Handle(ctx context.Context, text string) Reply {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{Text: msgBadFormat}
	}
	if strings.HasPrefix(text, "/") {
		return h.command(ctx, text)
	}

	lower := strings.ToLower(text)
	switch {
	case lower == "menu":
		return Reply{Text: MenuPrompt, Menu: true}
	case strings.Contains(lower, "tambah transaksi"):
		return Reply{Text: msgAddPrompt, Markdown: true}
	case strings.Contains(lower, "summary hari ini"):
		return h.daily(ctx, "")
	case strings.Contains(lower, "summary bulan ini"):
		return h.monthly(ctx, "")
	case strings.Contains(lower, "per kategori"):
		return h.breakdown(ctx, "")
	case lower == "saldo" || lower == "cek saldo":
		return h.balance(ctx, "")
	}
	return h.record(ctx, text)
}

// HandleCallback answers an inline menu selection.
func (h *Handler) HandleCallback(ctx context.Context, data string) Reply {
	switch data {
	case CallbackAdd:
		return Reply{Text: msgAddPrompt, Markdown: true}
	case CallbackDaily:
		return h.daily(ctx, "")
	case CallbackMonthly:
		return h.monthly(ctx, "")
	case CallbackCategory:
		return h.breakdown(ctx, "")
	case CallbackBalance:
		return h.balance(ctx, "")
	}
	h.logger.WarnContext(ctx, "Unknown callback data", "data", data)
	return Reply{Text: msgUnknownSelection}
}

func (h *Handler) command(ctx context.Context, text string) Reply {
	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])
	// Group chats address commands as /cmd@botname.
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	arg := strings.TrimSpace(strings.TrimPrefix(text, fields[0]))

	switch cmd {
	case "/start":
		return Reply{Text: msgWelcome, Markdown: true, Menu: true, Keyboard: true}
	case "/menu":
		return Reply{Text: MenuPrompt, Menu: true}
	case "/help", "/tambah":
		return Reply{Text: msgAddPrompt, Markdown: true}
	case "/summary_hari":
		return h.daily(ctx, arg)
	case "/summary_bulan":
		return h.monthly(ctx, arg)
	case "/kategori":
		return h.breakdown(ctx, arg)
	case "/saldo":
		return h.balance(ctx, arg)
	}
	return Reply{Text: msgUnknownCommand}
}

func (h *Handler) record(ctx context.Context, text string) Reply {
	t, err := h.parser.Parse(text, h.clock())
	if err != nil {
		h.logger.InfoContext(ctx, "Rejected transaction text",
			applog.NewFields().WithOperation(applog.OpParse).WithError(err).ToSlice()...)
		if errors.Is(err, core.ErrAmountNotRecognized) {
			return Reply{Text: msgAmountNotFound}
		}
		return Reply{Text: msgBadFormat}
	}

	ref, err := h.writer.Append(ctx, t)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to append transaction",
			applog.NewFields().WithOperation(applog.OpAppend).WithTransaction(t).WithError(err).ToSlice()...)
		return Reply{Text: msgSaveFailed}
	}

	h.logger.InfoContext(ctx, "Transaction recorded",
		append(applog.NewFields().WithOperation(applog.OpAppend).WithTransaction(t).ToSlice(),
			applog.FieldSheetsRef, ref)...)

	return Reply{Text: fmt.Sprintf("%s\n\n📝 %s\n🏷️ %s\n%s %s: %s\n💳 %s",
		msgSaved, t.Description, t.Category, directionIcon(t.Direction), t.Direction.Label(), t.Amount, t.Asset)}
}

func (h *Handler) daily(ctx context.Context, arg string) Reply {
	now := h.clock()
	date := aggregate.Today(now)
	if arg != "" {
		d, err := time.ParseInLocation("2006-01-02", arg, h.loc)
		if err != nil {
			return Reply{Text: msgUsageDaily}
		}
		date = d.Format("2006-01-02")
	}
	records, ok := h.load(ctx, applog.OpSummary)
	if !ok {
		return Reply{Text: msgSummaryFailed}
	}
	total := aggregate.DailyTotal(records, date)
	if arg == "" {
		return Reply{Text: fmt.Sprintf("📆 Pengeluaran hari ini: %s", total)}
	}
	return Reply{Text: fmt.Sprintf("📆 Pengeluaran tanggal %s: %s", date, total)}
}

func (h *Handler) monthly(ctx context.Context, arg string) Reply {
	now := h.clock()
	ym, ok := h.yearMonth(arg, now)
	if !ok {
		return Reply{Text: msgUsageMonthly}
	}
	records, ok := h.load(ctx, applog.OpSummary)
	if !ok {
		return Reply{Text: msgSummaryFailed}
	}
	total := aggregate.MonthlyTotal(records, ym)
	if arg == "" {
		return Reply{Text: fmt.Sprintf("🗓️ Pengeluaran bulan ini: %s", total)}
	}
	return Reply{Text: fmt.Sprintf("📆 Total pengeluaran bulan *%s*: %s", ym, total), Markdown: true}
}

func (h *Handler) breakdown(ctx context.Context, arg string) Reply {
	now := h.clock()
	ym, ok := h.yearMonth(arg, now)
	if !ok {
		return Reply{Text: msgUsageCategory}
	}
	records, ok := h.load(ctx, applog.OpBreakdown)
	if !ok {
		return Reply{Text: msgSummaryFailed}
	}
	totals := aggregate.CategoryBreakdown(records, ym)
	if len(totals) == 0 {
		if arg == "" {
			return Reply{Text: msgNoMonthData}
		}
		return Reply{Text: fmt.Sprintf("❌ Belum ada data bulan %s.", ym)}
	}

	var b strings.Builder
	if arg == "" {
		b.WriteString("📊 *Ringkasan per Kategori (Bulan Ini)*\n\n")
	} else {
		fmt.Fprintf(&b, "📊 *Ringkasan per Kategori (%s)*\n\n", ym)
	}
	for _, c := range totals {
		fmt.Fprintf(&b, "• *%s*: %s\n", escapeMarkdown(c.Category), core.FormatRupiah(c.Total))
	}
	return Reply{Text: strings.TrimRight(b.String(), "\n"), Markdown: true}
}

func (h *Handler) balance(ctx context.Context, arg string) Reply {
	records, ok := h.load(ctx, applog.OpBalance)
	if !ok {
		return Reply{Text: msgSummaryFailed}
	}

	if arg != "" {
		asset := h.parser.ExtractAsset(arg)
		if asset == core.AssetOther && !strings.EqualFold(arg, core.AssetOther) {
			asset = arg
		}
		return Reply{Text: fmt.Sprintf("💰 Saldo %s: %s", asset, core.FormatRupiah(aggregate.Balance(records, asset)))}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "💰 Saldo total: %s", core.FormatRupiah(aggregate.Balance(records, "")))
	for _, a := range aggregate.BalanceByAsset(records) {
		fmt.Fprintf(&b, "\n• %s: %s", a.Asset, core.FormatRupiah(a.Total))
	}
	return Reply{Text: b.String()}
}

// load reads the full snapshot; failures are logged and reported as !ok.
func (h *Handler) load(ctx context.Context, op string) ([]core.Transaction, bool) {
	records, err := h.reader.ListTransactions(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to read transactions",
			applog.NewFields().WithOperation(op).WithError(err).ToSlice()...)
		return nil, false
	}
	return records, true
}

func (h *Handler) yearMonth(arg string, now time.Time) (string, bool) {
	if arg == "" {
		return aggregate.ThisMonth(now), true
	}
	m, err := time.ParseInLocation("2006-01", arg, h.loc)
	if err != nil {
		return "", false
	}
	return m.Format("2006-01"), true
}

func directionIcon(d core.Direction) string {
	if d == core.Income {
		return "📈"
	}
	return "📉"
}
