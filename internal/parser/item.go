// Package parser turns item text copied from the game client into items.
package parser

import (
	"strconv"
	"strings"

	"github.com/erazemk/poetrack/internal/model"
)

// MaxProperties caps the number of property lines kept per item.
const MaxProperties = 50

// Separator splits sections of the copied item text.
const Separator = "--------"

// Line prefixes recognized in copied item text.
const (
	prefixItemClass = "Item Class:"
	prefixRarity    = "Rarity:"
	prefixRequires  = "Requires:"
	prefixSockets   = "Sockets:"
	prefixItemLevel = "Item Level:"
	prefixNote      = "Note:"

	markerRune       = "(rune)"
	markerDesecrated = "(desecrated)"
)

// ParseItem parses copied item text. Returns nil for blank input. Missing
// header lines are tolerated; rejecting incomplete items is left to the
// validator. The returned item has no id, status or dates.
func ParseItem(raw string) *model.Item {
	lines := splitLines(raw)
	if len(lines) == 0 {
		return nil
	}

	item := &model.Item{
		RawText:    strings.TrimSpace(raw),
		Rarity:     model.RarityNormal,
		Properties: []string{},
	}

	i := 0
	if strings.HasPrefix(lines[i], prefixItemClass) {
		item.ItemClass = value(lines[i], prefixItemClass)
		if c, ok := LookupItemClass(item.ItemClass); ok {
			id := c.ID
			item.ItemClassID = &id
		}
		i++
	}

	if i < len(lines) && strings.HasPrefix(lines[i], prefixRarity) {
		item.Rarity = model.ParseRarity(value(lines[i], prefixRarity))
		i++
	}

	for i < len(lines) && lines[i] == Separator {
		i++
	}
	if i < len(lines) {
		item.Name = lines[i]
		i++
	}
	if i < len(lines) && lines[i] != Separator {
		item.BaseType = lines[i]
		i++
	}
	if item.BaseType == "" {
		item.BaseType = item.Name
	}

	var runes []string
	for ; i < len(lines); i++ {
		line := lines[i]
		switch {
		case line == Separator:
		case strings.HasPrefix(line, prefixRequires):
			req := ParseRequirements(value(line, prefixRequires))
			if !req.IsZero() {
				item.Requirements = &req
			}
		case strings.HasPrefix(line, prefixSockets):
			item.Sockets = value(line, prefixSockets)
		case strings.HasPrefix(line, prefixItemLevel):
			if n, err := strconv.Atoi(value(line, prefixItemLevel)); err == nil && n > 0 {
				item.ItemLevel = n
			}
		case strings.HasPrefix(line, prefixNote):
			if p := ParsePriceNote(value(line, prefixNote)); p != nil {
				item.Price = p
			}
		case strings.Contains(line, markerRune):
			runes = append(runes, line)
		default:
			// Desecrated modifiers are visible properties, not runes.
			if len(item.Properties) < MaxProperties {
				item.Properties = append(item.Properties, line)
			}
		}
	}

	if len(runes) > 0 {
		item.SocketedRunes, item.Sockets = buildRunes(runes)
	}

	return item
}

// buildRunes numbers the buffered rune lines and renders a socket summary.
func buildRunes(lines []string) ([]model.SocketedRune, string) {
	runes := make([]model.SocketedRune, 0, len(lines))
	summary := make([]string, 0, len(lines))
	for i, line := range lines {
		kind := model.ModifierRune
		if strings.Contains(line, markerDesecrated) {
			kind = model.ModifierDesecrated
		}
		text := strings.ReplaceAll(line, markerRune, "")
		text = strings.ReplaceAll(text, markerDesecrated, "")
		text = strings.Join(strings.Fields(text), " ")

		runes = append(runes, model.SocketedRune{ID: i + 1, Property: text, Type: kind})
		summary = append(summary, text+" ("+kind+")")
	}
	return runes, strings.Join(summary, ", ")
}

func splitLines(raw string) []string {
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func value(line, prefix string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, prefix))
}
