package parser

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/erazemk/poetrack/internal/model"
)

// priceMatcher pairs a pattern with the currency it yields. The amount is
// always the first capture group.
type priceMatcher struct {
	re       *regexp.Regexp
	currency model.Currency
}

const (
	notePrefix = `(?i)~?\s*(?:b/o|buyout|price)\s+`
	noteAmount = `(\d+(?:\.\d+)?)`
	bareStart  = `(?i)(?:^|[\s~])`

	divineToken  = `\s*div(?:ine)?s?\b`
	chaosToken   = `\s*(?:c|chaos)\b`
	exaltedToken = `\s*ex(?:alt(?:ed)?)?s?\b`
)

// priceMatchers is tried in order and the first match wins, so ambiguous
// notes resolve by currency priority rather than by position in the text.
var priceMatchers = []priceMatcher{
	{regexp.MustCompile(notePrefix + noteAmount + divineToken), model.CurrencyDivine},
	{regexp.MustCompile(notePrefix + noteAmount + chaosToken), model.CurrencyChaos},
	{regexp.MustCompile(notePrefix + noteAmount + exaltedToken), model.CurrencyExalted},
	{regexp.MustCompile(bareStart + noteAmount + divineToken), model.CurrencyDivine},
	{regexp.MustCompile(bareStart + noteAmount + chaosToken), model.CurrencyChaos},
	{regexp.MustCompile(bareStart + noteAmount + exaltedToken), model.CurrencyExalted},
}

// ParsePriceNote extracts a price from a buyout note such as "~b/o 23 divine",
// "price 50 c" or "10 div". Returns nil when no pattern matches or the amount
// is not positive.
func ParsePriceNote(note string) *model.Price {
	for _, m := range priceMatchers {
		sub := m.re.FindStringSubmatch(note)
		if sub == nil {
			continue
		}
		amount, err := decimal.NewFromString(sub[1])
		if err != nil || !amount.IsPositive() {
			continue
		}
		return &model.Price{Amount: amount, Currency: m.currency}
	}
	return nil
}
