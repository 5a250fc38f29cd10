package store

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/erazemk/poetrack/internal/model"
)

// Items returns a copy of every item in insertion order.
func (s *Store) Items() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.items)
}

// Item returns a copy of the item with the given id.
func (s *Store) Item(id int64) (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return model.Item{}, false
	}
	return s.items[i].Clone(), true
}

// ActiveItems returns copies of the items still listed for sale.
func (s *Store) ActiveItems() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(lo.Filter(s.items, func(it model.Item, _ int) bool {
		return it.Status == model.StatusActive
	}))
}

// SoldItems returns copies of the sold items, most recently sold first.
func (s *Store) SoldItems() []model.Item {
	s.mu.Lock()
	sold := cloneAll(lo.Filter(s.items, func(it model.Item, _ int) bool {
		return it.Status == model.StatusSold
	}))
	s.mu.Unlock()

	sort.SliceStable(sold, func(i, j int) bool {
		return soldAt(sold[i]).After(soldAt(sold[j]))
	})
	return sold
}

func soldAt(it model.Item) time.Time {
	if it.DateSold == nil {
		return time.Time{}
	}
	return *it.DateSold
}

func cloneAll(items []model.Item) []model.Item {
	return lo.Map(items, func(it model.Item, _ int) model.Item { return it.Clone() })
}
