package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseRarity(t *testing.T) {
	tests := []struct {
		in   string
		want Rarity
	}{
		{"Normal", RarityNormal},
		{"Magic", RarityMagic},
		{"Rare", RarityRare},
		{"Unique", RarityUnique},
		// Unknown rarities fall back to Normal.
		{"Currency", RarityNormal},
		{"rare", RarityNormal},
		{"", RarityNormal},
	}

	for _, tt := range tests {
		if got := ParseRarity(tt.in); got != tt.want {
			t.Errorf("ParseRarity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		in     string
		want   Currency
		wantOK bool
	}{
		{"div", CurrencyDivine, true},
		{"Divine", CurrencyDivine, true},
		{"ex", CurrencyExalted, true},
		{"exalt", CurrencyExalted, true},
		{"exalted", CurrencyExalted, true},
		{"c", CurrencyChaos, true},
		{"chaos", CurrencyChaos, true},
		{"", "", false},
		{"mirror", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseCurrency(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseCurrency(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRatesConvert(t *testing.T) {
	rates := DefaultRates()

	p := NewPrice(2, CurrencyDivine)
	if got := rates.Convert(&p); !got.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected 400, got %s", got)
	}
	if got := rates.Convert(nil); !got.IsZero() {
		t.Errorf("expected 0 for nil price, got %s", got)
	}

	custom := Rates{CurrencyDivine: decimal.NewFromInt(180)}
	if got := custom.Convert(&p); !got.Equal(decimal.NewFromInt(360)) {
		t.Errorf("expected 360 with custom rate, got %s", got)
	}
	c := NewPrice(7, CurrencyChaos)
	if got := custom.Convert(&c); !got.Equal(decimal.NewFromInt(7)) {
		t.Errorf("expected missing rate to convert at 1, got %s", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	price := NewPrice(5, CurrencyChaos)
	sold := time.Now()
	item := Item{
		Name:         "Tempest Weaver",
		Requirements: &Requirements{Level: 10},
		Properties:   []string{"+10 to Intelligence"},
		Price:        &price,
		PriceHistory: []PriceHistoryEntry{{ID: 1, Price: price}},
		DateSold:     &sold,
	}

	c := item.Clone()
	c.Properties[0] = "changed"
	c.Requirements.Level = 99
	c.Price.Currency = CurrencyDivine
	c.PriceHistory[0].ID = 7

	if item.Properties[0] != "+10 to Intelligence" {
		t.Error("clone shares properties with original")
	}
	if item.Requirements.Level != 10 {
		t.Error("clone shares requirements with original")
	}
	if item.Price.Currency != CurrencyChaos {
		t.Error("clone shares price with original")
	}
	if item.PriceHistory[0].ID != 1 {
		t.Error("clone shares price history with original")
	}
}

func TestLatestHistoryEntry(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	item := Item{PriceHistory: []PriceHistoryEntry{
		{ID: 1, Price: NewPrice(1, CurrencyChaos), Date: base},
		{ID: 2, Price: NewPrice(2, CurrencyChaos), Date: base.Add(2 * time.Hour)},
		{ID: 3, Price: NewPrice(3, CurrencyChaos), Date: base.Add(time.Hour)},
	}}

	latest := item.LatestHistoryEntry()
	if latest == nil || latest.ID != 2 {
		t.Fatalf("expected entry 2 (latest date), got %+v", latest)
	}
	if next := item.NextHistoryID(); next != 4 {
		t.Errorf("expected next history id 4, got %d", next)
	}

	empty := Item{}
	if empty.LatestHistoryEntry() != nil {
		t.Error("expected nil latest entry for empty history")
	}
	if next := empty.NextHistoryID(); next != 1 {
		t.Errorf("expected next history id 1, got %d", next)
	}
}
