package exchange

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/erazemk/poetrack/internal/model"
)

// DefaultMaxImportBytes is the default import size ceiling.
const DefaultMaxImportBytes = 10 << 20

// Import rejection thresholds.
const (
	maxInvalidRatio   = 0.1
	maxReportedErrors = 5
)

var (
	// ErrFileTooLarge is returned when the import exceeds the size ceiling.
	ErrFileTooLarge = errors.New("file is too large")

	// ErrInvalidJSON is returned when the import is not valid JSON.
	ErrInvalidJSON = errors.New("invalid JSON file format")
)

var requiredFields = []string{"name", "baseType", "rarity", "status"}

// ImportError rejects an import file as a whole. Messages are user-facing.
type ImportError struct {
	Messages []string
}

func (e *ImportError) Error() string {
	return strings.Join(e.Messages, ", ")
}

// Import is a parsed import file.
type Import struct {
	Version    string
	ExportDate string
	TotalItems int
	Items      []model.Item

	// Warnings describe items that were skipped.
	Warnings []string
}

// ParseImport validates and decodes an export file. Files larger than
// maxBytes are rejected when maxBytes is positive. Items missing a required
// field are skipped, unless more than a tenth of them are, in which case the
// whole file is rejected with an *ImportError.
func ParseImport(data []byte, maxBytes int64) (*Import, error) {
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: maximum size is %s", ErrFileTooLarge, formatBytes(maxBytes))
	}
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, &ImportError{Messages: []string{"Invalid data format"}}
	}
	items := root.Get("items")
	if !items.IsArray() {
		return nil, &ImportError{Messages: []string{"Items array is missing or invalid"}}
	}

	elems := items.Array()
	var invalid []string
	valid := make([]gjson.Result, 0, len(elems))
	for i, elem := range elems {
		var missing []string
		for _, field := range requiredFields {
			if !truthy(elem.Get(field)) {
				missing = append(missing, field)
			}
		}
		if len(missing) > 0 {
			invalid = append(invalid, fmt.Sprintf("Item %d: missing %s", i+1, strings.Join(missing, ", ")))
			continue
		}
		valid = append(valid, elem)
	}

	if len(invalid) > 0 && float64(len(invalid)) > float64(len(elems))*maxInvalidRatio {
		msgs := []string{"Too many invalid items found"}
		msgs = append(msgs, invalid[:min(len(invalid), maxReportedErrors)]...)
		if len(invalid) > maxReportedErrors {
			msgs = append(msgs, fmt.Sprintf("... and %d more errors", len(invalid)-maxReportedErrors))
		}
		return nil, &ImportError{Messages: msgs}
	}

	imp := &Import{
		Version:    root.Get("version").String(),
		ExportDate: root.Get("exportDate").String(),
		TotalItems: int(root.Get("totalItems").Int()),
		Items:      make([]model.Item, 0, len(valid)),
	}
	if imp.Version == "" {
		imp.Version = "unknown"
	}
	if imp.TotalItems == 0 {
		imp.TotalItems = len(elems)
	}
	if len(invalid) > 0 {
		imp.Warnings = append(imp.Warnings, fmt.Sprintf("%d items have missing data and will be skipped", len(invalid)))
	}

	for _, elem := range valid {
		item, err := model.DecodeItem([]byte(elem.Raw))
		if err != nil {
			imp.Warnings = append(imp.Warnings, fmt.Sprintf("Item %q skipped: %v", elem.Get("name").String(), err))
			continue
		}
		imp.Items = append(imp.Items, item)
	}
	return imp, nil
}

// truthy reports whether a JSON value counts as present.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	case gjson.True, gjson.JSON:
		return true
	}
	return false
}

func formatBytes(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}
