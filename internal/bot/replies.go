package bot

import "strings"

// Callback data carried by the inline menu buttons.
const (
	CallbackAdd      = "tambah"
	CallbackDaily    = "summary_hari"
	CallbackMonthly  = "summary_bulan"
	CallbackCategory = "kategori"
	CallbackBalance  = "saldo"
)

// MenuPrompt is the text sent together with the inline menu.
const MenuPrompt = "Silakan pilih menu:"

// Button is one inline menu entry.
type Button struct {
	Label string
	Data  string
}

// MenuButtons is the inline menu sent with /start and /menu, one per row.
var MenuButtons = []Button{
	{Label: "➕ Tambah Transaksi", Data: CallbackAdd},
	{Label: "📆 Summary Hari Ini", Data: CallbackDaily},
	{Label: "🗓️ Summary Bulan Ini", Data: CallbackMonthly},
	{Label: "📊 Per Kategori", Data: CallbackCategory},
	{Label: "💰 Saldo", Data: CallbackBalance},
}

// KeyboardLabels are the persistent reply-keyboard buttons. Sending one is
// the same as typing its text, so each must route in Handle.
var KeyboardLabels = [][]string{
	{"+ Tambah Transaksi", "Summary Hari Ini"},
	{"Summary Bulan Ini", "Per Kategori"},
}

const (
	msgWelcome = "Selamat datang di Money Tracker!\n\n" +
		"Catat transaksi dengan kalimat biasa:\n" +
		"`beli kopi 23 ribu QRIS`\n" +
		"`gaji 8,5 juta masuk BCA`\n\n" +
		"Atau dengan format:\n" +
		"`Deskripsi, Kategori, Tipe, Jumlah`\n\n" +
		"Contoh:\n" +
		"`Makan siang, Makanan, Pengeluaran, 25000`"
	msgAddPrompt = "📥 Kirim transaksi, contoh:\n`beli kopi 23 ribu QRIS`\natau format:\n`Deskripsi, Kategori, Tipe, Jumlah`"

	msgSaved            = "✅ Data berhasil disimpan!"
	msgAmountNotFound   = "❌ Jumlah tidak dikenali. Contoh: beli kopi 23 ribu QRIS"
	msgBadFormat        = "❌ Format salah. Gunakan:\nDeskripsi, Kategori, Tipe, Jumlah\natau: beli kopi 23 ribu QRIS"
	msgSaveFailed       = "❌ Gagal menyimpan transaksi. Coba lagi nanti."
	msgSummaryFailed    = "❌ Gagal mengambil summary."
	msgNoMonthData      = "❌ Belum ada data bulan ini."
	msgUsageDaily       = "❌ Format salah. Gunakan: /summary_hari 2025-04-01"
	msgUsageMonthly     = "❌ Format salah. Gunakan: /summary_bulan 2025-04"
	msgUsageCategory    = "❌ Format salah. Gunakan: /kategori 2025-04"
	msgUnknownCommand   = "❓ Perintah tidak dikenal. Ketik /menu untuk melihat pilihan."
	msgUnknownSelection = "❓ Pilihan tidak dikenal."
	msgNotAllowed       = "⛔ Maaf, chat ini tidak diizinkan memakai bot ini."
)

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMarkdown protects user-provided text inside legacy Markdown replies.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
