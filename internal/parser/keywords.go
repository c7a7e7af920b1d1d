package parser

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"moneytracker/internal/core"
)

type (
	// Bucket maps a category to the keywords that select it.
	Bucket struct {
		Name     string   `yaml:"name"`
		Keywords []string `yaml:"keywords"`
	}

	// Asset maps a payment method label to the tokens that name it.
	Asset struct {
		Label    string   `yaml:"label"`
		Keywords []string `yaml:"keywords"`
	}

	// Table drives categorization and asset detection. Bucket order is
	// significant: the first bucket with a hit wins.
	Table struct {
		Buckets []Bucket `yaml:"categories"`
		Assets  []Asset  `yaml:"assets"`
	}
)

// DefaultTable returns the built-in keyword table.
func DefaultTable() Table {
	return Table{
		Buckets: []Bucket{
			{Name: core.CategoryIncome, Keywords: []string{
				"gaji", "bonus", "thr", "masuk", "pemasukan", "income", "dividen", "refund", "cashback", "komisi", "honor",
			}},
			{Name: core.CategoryClothing, Keywords: []string{
				"baju", "celana", "kaos", "kemeja", "sepatu", "sandal", "jaket", "rok", "topi", "pakaian", "hijab", "kerudung", "kaus",
			}},
			{Name: core.CategoryDrinks, Keywords: []string{
				"kopi", "teh", "jus", "susu", "minum", "minuman", "boba", "es", "soda", "kopi susu",
			}},
			{Name: core.CategoryFood, Keywords: []string{
				"makan", "ayam", "nasi", "bakso", "mie", "mi", "sate", "roti", "soto", "gorengan", "martabak", "pizza", "burger", "snack", "jajan", "sarapan", "makanan",
			}},
			{Name: core.CategoryBills, Keywords: []string{
				"listrik", "token", "pln", "pdam", "internet", "wifi", "pulsa", "kuota", "bpjs", "cicilan", "tagihan", "sewa", "kos", "kost", "langganan",
			}},
			{Name: core.CategoryTransport, Keywords: []string{
				"bensin", "ojek", "gojek", "grab", "ojol", "taxi", "taksi", "parkir", "tol", "kereta", "krl", "mrt", "bus", "angkot", "pertalite", "pertamax", "transport", "transportasi",
			}},
		},
		Assets: []Asset{
			{Label: "BCA", Keywords: []string{"bca"}},
			{Label: "BNI", Keywords: []string{"bni"}},
			{Label: "BRI", Keywords: []string{"bri"}},
			{Label: "Mandiri", Keywords: []string{"mandiri"}},
			{Label: "BSI", Keywords: []string{"bsi"}},
			{Label: "CIMB", Keywords: []string{"cimb"}},
			{Label: "Jago", Keywords: []string{"jago"}},
			{Label: "SeaBank", Keywords: []string{"seabank"}},
			{Label: "Blu", Keywords: []string{"blu"}},
			{Label: "GoPay", Keywords: []string{"gopay"}},
			{Label: "OVO", Keywords: []string{"ovo"}},
			{Label: "DANA", Keywords: []string{"dana"}},
			{Label: "ShopeePay", Keywords: []string{"shopeepay", "spay"}},
			{Label: "LinkAja", Keywords: []string{"linkaja"}},
			{Label: "QRIS", Keywords: []string{"qris"}},
			{Label: "Tunai", Keywords: []string{"tunai", "cash"}},
		},
	}
}

// LoadTable reads a YAML keyword table. Sections left empty fall back to the
// built-in ones.
func LoadTable(path string) (Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read keyword table: %w", err)
	}
	var t Table
	if err := yaml.Unmarshal(b, &t); err != nil {
		return Table{}, fmt.Errorf("decode keyword table %s: %w", path, err)
	}
	def := DefaultTable()
	if len(t.Buckets) == 0 {
		t.Buckets = def.Buckets
	}
	if len(t.Assets) == 0 {
		t.Assets = def.Assets
	}
	if err := t.Validate(); err != nil {
		return Table{}, fmt.Errorf("keyword table %s: %w", path, err)
	}
	return t.normalized(), nil
}

func (t Table) Validate() error {
	for i, b := range t.Buckets {
		if strings.TrimSpace(b.Name) == "" {
			return fmt.Errorf("category %d has no name", i+1)
		}
		if len(b.Keywords) == 0 {
			return fmt.Errorf("category %q has no keywords", b.Name)
		}
	}
	for i, a := range t.Assets {
		if strings.TrimSpace(a.Label) == "" {
			return fmt.Errorf("asset %d has no label", i+1)
		}
	}
	return nil
}

// normalized lower-cases keywords and collapses inner whitespace so they can be
// matched against the token stream.
func (t Table) normalized() Table {
	out := Table{
		Buckets: make([]Bucket, len(t.Buckets)),
		Assets:  make([]Asset, len(t.Assets)),
	}
	for i, b := range t.Buckets {
		out.Buckets[i] = Bucket{Name: strings.TrimSpace(b.Name), Keywords: normalizeKeywords(b.Keywords)}
	}
	for i, a := range t.Assets {
		out.Assets[i] = Asset{Label: strings.TrimSpace(a.Label), Keywords: normalizeKeywords(a.Keywords)}
	}
	return out
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.Join(tokenize(k), " ")
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
