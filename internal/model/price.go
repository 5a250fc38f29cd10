package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an in-game currency used for pricing.
type Currency string

// Currencies.
const (
	CurrencyChaos   Currency = "chaos"
	CurrencyDivine  Currency = "divine"
	CurrencyExalted Currency = "exalted"
)

// Currencies lists the recognized currencies.
var Currencies = []Currency{CurrencyChaos, CurrencyDivine, CurrencyExalted}

// Valid reports whether c is a recognized currency.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyChaos, CurrencyDivine, CurrencyExalted:
		return true
	}
	return false
}

// ParseCurrency maps shorthand like "div", "ex" or "c" to a currency.
func ParseCurrency(s string) (Currency, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return "", false
	case strings.HasPrefix(s, "div"):
		return CurrencyDivine, true
	case strings.HasPrefix(s, "ex"):
		return CurrencyExalted, true
	case s == "c" || strings.HasPrefix(s, "chaos"):
		return CurrencyChaos, true
	}
	return "", false
}

// Price is an amount of a single currency.
type Price struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

// NewPrice builds a price from a float amount.
func NewPrice(amount float64, currency Currency) Price {
	return Price{Amount: decimal.NewFromFloat(amount), Currency: currency}
}

// Equal reports whether both amount and currency match.
func (p Price) Equal(other Price) bool {
	return p.Currency == other.Currency && p.Amount.Equal(other.Amount)
}

func (p Price) String() string {
	return fmt.Sprintf("%s %s", p.Amount.String(), p.Currency)
}

// Clone returns a copy of p, or nil.
func (p *Price) Clone() *Price {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Rates converts currencies into a common unit (chaos).
type Rates map[Currency]decimal.Decimal

// DefaultRates returns the reference exchange rates.
func DefaultRates() Rates {
	return Rates{
		CurrencyChaos:   decimal.NewFromInt(1),
		CurrencyDivine:  decimal.NewFromInt(200),
		CurrencyExalted: decimal.NewFromInt(150),
	}
}

// Convert returns the value of p in the common unit. Unknown currencies
// convert at 1, a nil price is worth zero.
func (r Rates) Convert(p *Price) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	rate, ok := r[p.Currency]
	if !ok {
		rate = decimal.NewFromInt(1)
	}
	return p.Amount.Mul(rate)
}
