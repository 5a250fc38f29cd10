package store

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/erazemk/poetrack/internal/model"
)

// RecentWindow is how far back a sale counts as recent.
const RecentWindow = 7 * 24 * time.Hour

// Stats summarizes the tracked items. Amounts are in the common unit of the
// rates used to compute them.
type Stats struct {
	TotalItems       int             `json:"totalItems"`
	ActiveCount      int             `json:"activeCount"`
	SoldCount        int             `json:"soldCount"`
	RecentSales      int             `json:"recentSales"`
	TotalProfit      decimal.Decimal `json:"totalProfit"`
	TotalRevenue     decimal.Decimal `json:"totalRevenue"`
	AverageProfit    decimal.Decimal `json:"averageProfit"`
	TotalActiveValue decimal.Decimal `json:"totalActiveValue"`
}

// Stats computes summary statistics at the given time. Profit is the sale
// price minus the listed price of each sold item.
func (s *Store) Stats(rates model.Rates, now time.Time) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return computeStats(s.items, rates, now)
}

func computeStats(items []model.Item, rates model.Rates, now time.Time) Stats {
	sold := lo.Filter(items, func(it model.Item, _ int) bool { return it.Status == model.StatusSold })
	active := lo.Filter(items, func(it model.Item, _ int) bool { return it.Status != model.StatusSold })

	st := Stats{
		TotalItems:       len(items),
		ActiveCount:      len(active),
		SoldCount:        len(sold),
		TotalProfit:      decimal.Zero,
		TotalRevenue:     decimal.Zero,
		AverageProfit:    decimal.Zero,
		TotalActiveValue: decimal.Zero,
	}

	for _, it := range active {
		st.TotalActiveValue = st.TotalActiveValue.Add(rates.Convert(it.Price))
	}

	cutoff := now.Add(-RecentWindow)
	for _, it := range sold {
		sale := it.SalePrice
		if sale == nil {
			sale = it.Price
		}
		listed := it.ListedPrice
		if listed == nil {
			listed = sale
		}
		revenue := rates.Convert(sale)
		st.TotalRevenue = st.TotalRevenue.Add(revenue)
		st.TotalProfit = st.TotalProfit.Add(revenue.Sub(rates.Convert(listed)))

		if it.DateSold != nil && !it.DateSold.Before(cutoff) {
			st.RecentSales++
		}
	}

	if len(sold) > 0 {
		st.AverageProfit = st.TotalProfit.Div(decimal.NewFromInt(int64(len(sold))))
	}
	return st
}
