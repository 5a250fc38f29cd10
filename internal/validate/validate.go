// Package validate checks parsed items and prices against the tracker's
// limits and reports every violation as a user-facing message.
package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/erazemk/poetrack/internal/model"
)

// Limits.
const (
	MaxNameLength   = 100
	MaxProperties   = 50
	MaxItemLevel    = 100
	MaxLevelReq     = 100
	MaxAttributeReq = 1000
	PriceMinValue   = "0.01"
	PriceMaxValue   = "999999"
)

var (
	v = validator.New()

	priceMin = decimal.RequireFromString(PriceMinValue)
	priceMax = decimal.RequireFromString(PriceMaxValue)

	rarityTag   = "oneof=" + joinValues(model.Rarities)
	currencyTag = "oneof=" + joinValues(model.Currencies)
)

// Item returns all violations for item in a fixed order. An empty result
// means the item is valid.
func Item(item *model.Item) []string {
	if item == nil {
		return []string{"Invalid item data"}
	}

	var errs []string
	add := func(msg string) { errs = append(errs, msg) }

	name := strings.TrimSpace(item.Name)
	if name == "" {
		add("Item name is required")
	} else if failed(name, fmt.Sprintf("max=%d", MaxNameLength)) {
		add(fmt.Sprintf("Item name must be %d characters or less", MaxNameLength))
	}

	if strings.TrimSpace(item.ItemClass) == "" {
		add("Item class is required")
	}

	if failed(string(item.Rarity), "required,"+rarityTag) {
		add("Valid rarity is required")
	}

	if strings.TrimSpace(item.BaseType) == "" {
		add("Base type is required")
	}

	if item.ItemLevel != 0 && failed(item.ItemLevel, rangeTag(MaxItemLevel)) {
		add(fmt.Sprintf("Item level must be between 1 and %d", MaxItemLevel))
	}

	if r := item.Requirements; r != nil {
		if r.Level != 0 && failed(r.Level, rangeTag(MaxLevelReq)) {
			add(fmt.Sprintf("Level requirement must be between 1 and %d", MaxLevelReq))
		}
		attrs := []struct {
			name  string
			value int
		}{
			{"Intelligence", r.Intelligence},
			{"Strength", r.Strength},
			{"Dexterity", r.Dexterity},
		}
		for _, a := range attrs {
			if a.value != 0 && failed(a.value, rangeTag(MaxAttributeReq)) {
				add(fmt.Sprintf("%s requirement must be between 1 and %d", a.name, MaxAttributeReq))
			}
		}
	}

	if failed(item.Properties, fmt.Sprintf("max=%d", MaxProperties)) {
		add(fmt.Sprintf("Item cannot have more than %d properties", MaxProperties))
	}

	return errs
}

// Price returns all violations for price in a fixed order. An empty result
// means the price is valid.
func Price(price *model.Price) []string {
	if price == nil {
		return []string{"Price is required"}
	}

	var errs []string
	if price.Amount.LessThan(priceMin) {
		errs = append(errs, "Price must be at least "+PriceMinValue)
	}
	if price.Amount.GreaterThan(priceMax) {
		errs = append(errs, "Price cannot exceed "+PriceMaxValue)
	}
	if price.Currency == "" {
		errs = append(errs, "Currency is required")
	} else if failed(string(price.Currency), currencyTag) {
		errs = append(errs, fmt.Sprintf("Unknown currency %q", price.Currency))
	}
	return errs
}

func failed(field any, tag string) bool {
	return v.Var(field, tag) != nil
}

func rangeTag(max int) string {
	return fmt.Sprintf("min=1,max=%d", max)
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, s := range values {
		parts[i] = string(s)
	}
	return strings.Join(parts, " ")
}
