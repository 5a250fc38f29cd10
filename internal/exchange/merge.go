package exchange

import (
	"time"

	"github.com/samber/lo"

	"github.com/erazemk/poetrack/internal/model"
)

// MergeOptions controls how imported items are combined with existing ones.
type MergeOptions struct {
	// SkipDuplicates enables duplicate detection by name, base type and rarity.
	SkipDuplicates bool

	// OverwriteExisting replaces a duplicate in place, keeping its id,
	// instead of skipping the imported item.
	OverwriteExisting bool

	// PreserveIDs keeps an imported item's id when it is free.
	PreserveIDs bool
}

// DefaultMergeOptions skips duplicates without overwriting.
var DefaultMergeOptions = MergeOptions{SkipDuplicates: true}

// MergeStats counts the outcome of a merge. Total is the size of the merged list.
type MergeStats struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// MergeResult is the merged item list and its stats.
type MergeResult struct {
	Items []model.Item
	Stats MergeStats
}

// Merge combines imported items into existing ones without modifying either.
// Duplicates are looked up in the existing list only, so the same item can
// appear more than once in a single import.
func Merge(existing, imported []model.Item, opts MergeOptions, now time.Time) MergeResult {
	merged := lo.Map(existing, func(it model.Item, _ int) model.Item { return it.Clone() })
	used := lo.SliceToMap(merged, func(it model.Item) (int64, bool) { return it.ID, true })
	next := lo.Max(lo.Keys(used)) + 1

	var stats MergeStats
	for _, in := range imported {
		item := prepare(in, now)

		if opts.SkipDuplicates {
			_, idx, found := lo.FindIndexOf(merged[:len(existing)], func(it model.Item) bool {
				return it.SameIdentity(&item)
			})
			if found {
				if opts.OverwriteExisting {
					item.ID = merged[idx].ID
					merged[idx] = item
					stats.Updated++
				} else {
					stats.Skipped++
				}
				continue
			}
		}

		if !opts.PreserveIDs || item.ID <= 0 || used[item.ID] {
			item.ID = next
		}
		used[item.ID] = true
		if item.ID >= next {
			next = item.ID + 1
		}
		merged = append(merged, item)
		stats.Added++
	}

	stats.Total = len(merged)
	return MergeResult{Items: merged, Stats: stats}
}

func prepare(in model.Item, now time.Time) model.Item {
	item := in.Clone()
	if item.DateAdded.IsZero() {
		item.DateAdded = now
	}
	if item.Status == "" {
		item.Status = model.StatusActive
	}
	if item.Properties == nil {
		item.Properties = []string{}
	}
	if len(item.PriceHistory) == 0 && item.Price != nil {
		item.PriceHistory = []model.PriceHistoryEntry{{
			ID:     1,
			Price:  *item.Price,
			Date:   item.DateAdded,
			Reason: model.ReasonImport,
		}}
	}
	model.NormalizeHistory(&item)
	return item
}
