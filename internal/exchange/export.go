// Package exchange reads and writes item export files and merges imported
// items into an existing list.
package exchange

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/erazemk/poetrack/internal/model"
)

// FormatVersion is written to every export file.
const FormatVersion = "1.0"

// File is the export file document.
type File struct {
	Version     string       `json:"version"`
	ExportDate  time.Time    `json:"exportDate"`
	TotalItems  int          `json:"totalItems"`
	ActiveItems int          `json:"activeItems"`
	SoldItems   int          `json:"soldItems"`
	Items       []model.Item `json:"items"`
}

// Export builds an export document for items.
func Export(items []model.Item, now time.Time) File {
	if items == nil {
		items = []model.Item{}
	}
	active := lo.CountBy(items, func(it model.Item) bool { return it.Status == model.StatusActive })
	sold := lo.CountBy(items, func(it model.Item) bool { return it.Status == model.StatusSold })
	return File{
		Version:     FormatVersion,
		ExportDate:  now,
		TotalItems:  len(items),
		ActiveItems: active,
		SoldItems:   sold,
		Items:       items,
	}
}

// Encode writes f as indented JSON.
func (f File) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}

// Filename returns the default export file name for the given day.
func Filename(now time.Time) string {
	return "poe-sales-tracker-" + now.UTC().Format("2006-01-02") + ".json"
}
