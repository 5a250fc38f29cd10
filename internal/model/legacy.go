package model

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// storedItem accepts both the current item shape and the older flat shape
// with expectedPrice/actualPrice fields, float ids and numeric history prices.
type storedItem struct {
	ID            json.RawMessage `json:"id"`
	RawText       string          `json:"rawText"`
	Description   string          `json:"description"`
	Name          string          `json:"name"`
	BaseType      string          `json:"baseType"`
	ItemClass     string          `json:"itemClass"`
	ItemClassID   *int            `json:"itemClassId"`
	Rarity        string          `json:"rarity"`
	Requirements  *Requirements   `json:"requirements"`
	Properties    []string        `json:"properties"`
	Sockets       string          `json:"sockets"`
	SocketedRunes []SocketedRune  `json:"socketedRunes"`
	ItemLevel     json.RawMessage `json:"itemLevel"`

	Price          json.RawMessage `json:"price"`
	PriceHistory   []storedEntry   `json:"priceHistory"`
	ListedPrice    json.RawMessage `json:"listedPrice"`
	SalePrice      json.RawMessage `json:"salePrice"`
	Currency       string          `json:"currency"`
	ExpectedPrice  json.RawMessage `json:"expectedPrice"`
	ActualPrice    json.RawMessage `json:"actualPrice"`
	ActualCurrency string          `json:"actualCurrency"`

	Status          string     `json:"status"`
	DateAdded       *time.Time `json:"dateAdded"`
	CreatedAt       *time.Time `json:"createdAt"`
	DateSold        *time.Time `json:"dateSold"`
	SoldAt          *time.Time `json:"soldAt"`
	LastPriceUpdate *time.Time `json:"lastPriceUpdate"`
}

type storedEntry struct {
	ID        int             `json:"id"`
	Price     json.RawMessage `json:"price"`
	Date      *time.Time      `json:"date"`
	ChangedAt *time.Time      `json:"changedAt"`
	Reason    string          `json:"reason"`
}

// DecodeItems decodes a JSON array of items, upgrading older record shapes.
// Items whose id is missing or not a positive integer get ID 0 and must be
// assigned one by the caller.
func DecodeItems(data []byte) ([]Item, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decoding item list: %w", err)
	}
	items := make([]Item, 0, len(raws))
	for i, raw := range raws {
		item, err := DecodeItem(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding item %d: %w", i+1, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// DecodeItem decodes a single item record, upgrading older record shapes.
func DecodeItem(data []byte) (Item, error) {
	var s storedItem
	if err := json.Unmarshal(data, &s); err != nil {
		return Item{}, err
	}

	item := Item{
		ID:            parseID(s.ID),
		RawText:       s.RawText,
		Name:          s.Name,
		BaseType:      s.BaseType,
		ItemClass:     s.ItemClass,
		ItemClassID:   s.ItemClassID,
		Rarity:        Rarity(s.Rarity),
		Properties:    s.Properties,
		Sockets:       s.Sockets,
		SocketedRunes: s.SocketedRunes,
		ItemLevel:     parseInt(s.ItemLevel),
		Status:        Status(strings.ToLower(s.Status)),
		DateSold:      firstTime(s.DateSold, s.SoldAt),
	}
	if item.RawText == "" {
		item.RawText = s.Description
	}
	if item.Properties == nil {
		item.Properties = []string{}
	}
	if s.Requirements != nil && !s.Requirements.IsZero() {
		item.Requirements = s.Requirements
	}
	if item.Status == "" {
		item.Status = StatusActive
	}
	if t := firstTime(s.DateAdded, s.CreatedAt); t != nil {
		item.DateAdded = *t
	}
	item.LastPriceUpdate = s.LastPriceUpdate

	fallback := CurrencyDivine
	if c, ok := ParseCurrency(s.Currency); ok {
		fallback = c
	}

	var err error
	if item.Price, err = decodePrice(s.Price, fallback); err != nil {
		return Item{}, fmt.Errorf("decoding price: %w", err)
	}
	if item.Price == nil {
		if item.Price, err = decodePrice(s.ExpectedPrice, fallback); err != nil {
			return Item{}, fmt.Errorf("decoding expected price: %w", err)
		}
	}
	if item.ListedPrice, err = decodePrice(s.ListedPrice, fallback); err != nil {
		return Item{}, fmt.Errorf("decoding listed price: %w", err)
	}
	if item.SalePrice, err = decodePrice(s.SalePrice, fallback); err != nil {
		return Item{}, fmt.Errorf("decoding sale price: %w", err)
	}

	if item.SalePrice == nil && item.Status == StatusSold {
		saleCurrency := fallback
		if c, ok := ParseCurrency(s.ActualCurrency); ok {
			saleCurrency = c
		}
		if item.SalePrice, err = decodePrice(s.ActualPrice, saleCurrency); err != nil {
			return Item{}, fmt.Errorf("decoding actual price: %w", err)
		}
		if item.SalePrice != nil && item.ListedPrice == nil {
			item.ListedPrice = item.Price.Clone()
		}
	}

	if item.PriceHistory, err = decodeHistory(s.PriceHistory, fallback, item.DateAdded); err != nil {
		return Item{}, err
	}
	NormalizeHistory(&item)

	return item, nil
}

// NormalizeHistory makes the current price agree with the history: an empty
// history is seeded from the current price, otherwise the current price is
// taken from the latest entry.
func NormalizeHistory(item *Item) {
	if len(item.PriceHistory) == 0 {
		if item.Price != nil {
			item.PriceHistory = []PriceHistoryEntry{{
				ID:     1,
				Price:  *item.Price,
				Date:   item.DateAdded,
				Reason: ReasonInitialListing,
			}}
		} else {
			item.PriceHistory = []PriceHistoryEntry{}
		}
		return
	}
	latest := item.LatestHistoryEntry()
	p := latest.Price
	item.Price = &p
}

func decodeHistory(entries []storedEntry, fallback Currency, added time.Time) ([]PriceHistoryEntry, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	history := make([]PriceHistoryEntry, 0, len(entries))
	missingIDs := false
	for i, e := range entries {
		p, err := decodePrice(e.Price, fallback)
		if err != nil {
			return nil, fmt.Errorf("decoding price history entry %d: %w", i+1, err)
		}
		if p == nil {
			continue
		}
		date := added
		if t := firstTime(e.Date, e.ChangedAt); t != nil {
			date = *t
		}
		if e.ID <= 0 {
			missingIDs = true
		}
		history = append(history, PriceHistoryEntry{ID: e.ID, Price: *p, Date: date, Reason: e.Reason})
	}

	// Older records were stored newest first without ids.
	if missingIDs {
		sort.SliceStable(history, func(i, j int) bool {
			return history[i].Date.Before(history[j].Date)
		})
		for i := range history {
			history[i].ID = i + 1
		}
	}
	return history, nil
}

func decodePrice(raw json.RawMessage, fallback Currency) (*Price, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] != '{' {
		var amount decimal.Decimal
		if err := amount.UnmarshalJSON(raw); err != nil {
			return nil, err
		}
		return &Price{Amount: amount, Currency: fallback}, nil
	}

	var obj struct {
		Amount   json.RawMessage `json:"amount"`
		Currency string          `json:"currency"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(obj.Amount)) == 0 || bytes.Equal(bytes.TrimSpace(obj.Amount), []byte("null")) {
		return nil, nil
	}
	var amount decimal.Decimal
	if err := amount.UnmarshalJSON(obj.Amount); err != nil {
		return nil, err
	}
	currency := Currency(obj.Currency)
	if c, ok := ParseCurrency(obj.Currency); ok {
		currency = c
	} else if obj.Currency == "" {
		currency = fallback
	}
	return &Price{Amount: amount, Currency: currency}, nil
}

func parseID(raw json.RawMessage) int64 {
	s := strings.Trim(string(bytes.TrimSpace(raw)), `"`)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

func parseInt(raw json.RawMessage) int {
	s := strings.Trim(string(bytes.TrimSpace(raw)), `"`)
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func firstTime(ts ...*time.Time) *time.Time {
	for _, t := range ts {
		if t != nil && !t.IsZero() {
			v := *t
			return &v
		}
	}
	return nil
}
