package store

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/erazemk/poetrack/internal/model"
)

// AddItem stores a parsed item as a new active listing and returns its id.
// When the item carries a price, the history is seeded with it.
func (s *Store) AddItem(ctx context.Context, candidate model.Item) (int64, error) {
	var id int64
	err := s.mutate(ctx, func() (*Event, error) {
		now := s.now()
		item := candidate.Clone()
		s.maxID = max(s.maxID+1, nextID(s.items))
		item.ID = s.maxID
		item.Status = model.StatusActive
		item.DateAdded = now
		item.DateSold = nil
		item.LastPriceUpdate = nil
		item.ListedPrice = nil
		item.SalePrice = nil
		if item.Properties == nil {
			item.Properties = []string{}
		}
		item.PriceHistory = []model.PriceHistoryEntry{}
		if item.Price != nil {
			item.PriceHistory = append(item.PriceHistory, model.PriceHistoryEntry{
				ID:     1,
				Price:  *item.Price,
				Date:   now,
				Reason: model.ReasonInitialListing,
			})
		}

		s.items = append(s.items, item)
		id = item.ID
		slog.Info("item added", "item_id", id, "name", item.Name)
		return &Event{Kind: EventAdded, ItemID: id}, nil
	})
	return id, err
}

// UpdateItemPrice records a new current price for the item. Repeating the
// current price returns ErrPriceUnchanged.
func (s *Store) UpdateItemPrice(ctx context.Context, id int64, price model.Price) error {
	return s.mutate(ctx, func() (*Event, error) {
		i := s.index(id)
		if i < 0 {
			return nil, nil
		}
		item := &s.items[i]
		if item.Price != nil && item.Price.Equal(price) {
			return nil, ErrPriceUnchanged
		}

		now := entryDate(item, s.now())
		item.PriceHistory = append(item.PriceHistory, model.PriceHistoryEntry{
			ID:     item.NextHistoryID(),
			Price:  price,
			Date:   now,
			Reason: model.ReasonManualUpdate,
		})
		item.Price = &price
		item.LastPriceUpdate = &now

		slog.Info("item price updated", "item_id", id, "price", price.String())
		return &Event{Kind: EventPriceUpdated, ItemID: id}, nil
	})
}

// RemovePriceHistoryEntry deletes a single history entry. The current price
// falls back to the latest remaining entry, or nil when none remain.
func (s *Store) RemovePriceHistoryEntry(ctx context.Context, itemID int64, historyID int) error {
	return s.mutate(ctx, func() (*Event, error) {
		i := s.index(itemID)
		if i < 0 {
			return nil, nil
		}
		item := &s.items[i]
		j := slices.IndexFunc(item.PriceHistory, func(e model.PriceHistoryEntry) bool { return e.ID == historyID })
		if j < 0 {
			return nil, nil
		}
		if item.Status == model.StatusSold && len(item.PriceHistory) == 1 {
			return nil, ErrLastSoldPrice
		}

		item.PriceHistory = slices.Delete(item.PriceHistory, j, j+1)
		if latest := item.LatestHistoryEntry(); latest != nil {
			p := latest.Price
			item.Price = &p
		} else {
			item.Price = nil
		}

		slog.Info("price history entry removed", "item_id", itemID, "history_id", historyID)
		return &Event{Kind: EventHistoryRemoved, ItemID: itemID}, nil
	})
}

// DeleteItem removes the item from the list.
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	return s.mutate(ctx, func() (*Event, error) {
		i := s.index(id)
		if i < 0 {
			return nil, nil
		}
		s.items = slices.Delete(s.items, i, i+1)

		slog.Info("item deleted", "item_id", id)
		return &Event{Kind: EventDeleted, ItemID: id}, nil
	})
}

// MarkAsSold moves an active item to sold. A nil actual price sells at the
// current price. An actual price without a currency uses the current one.
func (s *Store) MarkAsSold(ctx context.Context, id int64, actual *model.Price) error {
	return s.mutate(ctx, func() (*Event, error) {
		i := s.index(id)
		if i < 0 {
			return nil, nil
		}
		item := &s.items[i]
		if item.Status == model.StatusSold {
			return nil, ErrAlreadySold
		}
		if actual == nil && item.Price == nil {
			return nil, ErrPriceRequired
		}

		now := s.now()
		listed := item.Price.Clone()
		sale := listed.Clone()
		if actual != nil {
			sale = actual.Clone()
			if sale.Currency == "" {
				sale.Currency = model.CurrencyDivine
				if listed != nil {
					sale.Currency = listed.Currency
				}
			}
		}

		if listed == nil || !listed.Equal(*sale) {
			date := entryDate(item, now)
			item.PriceHistory = append(item.PriceHistory, model.PriceHistoryEntry{
				ID:     item.NextHistoryID(),
				Price:  *sale,
				Date:   date,
				Reason: model.ReasonFinalSalePrice,
			})
			item.Price = sale.Clone()
			item.LastPriceUpdate = &date
		}

		item.Status = model.StatusSold
		item.DateSold = &now
		item.ListedPrice = listed
		item.SalePrice = sale

		slog.Info("item sold", "item_id", id, "price", sale.String())
		return &Event{Kind: EventSold, ItemID: id}, nil
	})
}

// ReplaceAll adopts items as the whole list, such as a restored backup.
func (s *Store) ReplaceAll(ctx context.Context, items []model.Item) error {
	return s.mutate(ctx, func() (*Event, error) {
		s.replace(items)
		return &Event{Kind: EventReplaced}, nil
	})
}

// ReplaceWith computes the new list from a copy of the current one and adopts
// it, holding the lock throughout so no concurrent mutation is lost in
// between. Use it for read-merge-write updates such as imports.
func (s *Store) ReplaceWith(ctx context.Context, fn func(items []model.Item) []model.Item) error {
	return s.mutate(ctx, func() (*Event, error) {
		s.replace(fn(cloneAll(s.items)))
		return &Event{Kind: EventReplaced}, nil
	})
}

func (s *Store) replace(items []model.Item) {
	s.items = normalize(items, s.now())
	s.raiseMaxID()
	slog.Info("items replaced", "count", len(s.items))
}

// entryDate keeps appended history entries from predating the current
// latest entry, so the newest entry always determines the price.
func entryDate(item *model.Item, now time.Time) time.Time {
	if latest := item.LatestHistoryEntry(); latest != nil && latest.Date.After(now) {
		return latest.Date
	}
	return now
}
