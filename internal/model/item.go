package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Exported files from earlier versions store amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Rarity is the item rarity as shown in the game client.
type Rarity string

// Item rarities.
const (
	RarityNormal Rarity = "Normal"
	RarityMagic  Rarity = "Magic"
	RarityRare   Rarity = "Rare"
	RarityUnique Rarity = "Unique"
)

// Rarities lists the known rarities in display order.
var Rarities = []Rarity{RarityNormal, RarityMagic, RarityRare, RarityUnique}

// ParseRarity maps free text to a known rarity. Unknown values become Normal.
func ParseRarity(s string) Rarity {
	for _, r := range Rarities {
		if string(r) == s {
			return r
		}
	}
	return RarityNormal
}

// Status is the lifecycle state of a tracked item.
type Status string

// Item statuses.
const (
	StatusActive Status = "active"
	StatusSold   Status = "sold"
)

// Requirements holds the attribute requirements of an item. Zero means absent.
type Requirements struct {
	Level        int `json:"level,omitempty"`
	Intelligence int `json:"intelligence,omitempty"`
	Strength     int `json:"strength,omitempty"`
	Dexterity    int `json:"dexterity,omitempty"`
}

// IsZero reports whether no requirement is set.
func (r Requirements) IsZero() bool {
	return r == Requirements{}
}

// Socketed modifier types.
const (
	ModifierRune       = "rune"
	ModifierDesecrated = "desecrated"
)

// SocketedRune is a property line granted by a socketed rune.
type SocketedRune struct {
	ID       int    `json:"id"`
	Property string `json:"property"`
	Type     string `json:"type"`
}

// Price history reasons.
const (
	ReasonInitialListing = "initial_listing"
	ReasonManualUpdate   = "manual_update"
	ReasonFinalSalePrice = "final_sale_price"
	ReasonImport         = "import"
)

// PriceHistoryEntry records a price that was current at some point.
type PriceHistoryEntry struct {
	ID     int       `json:"id"`
	Price  Price     `json:"price"`
	Date   time.Time `json:"date"`
	Reason string    `json:"reason,omitempty"`
}

// Item is a tracked item parsed from game text.
type Item struct {
	ID            int64          `json:"id"`
	RawText       string         `json:"rawText,omitempty"`
	Name          string         `json:"name"`
	BaseType      string         `json:"baseType"`
	ItemClass     string         `json:"itemClass"`
	ItemClassID   *int           `json:"itemClassId,omitempty"`
	Rarity        Rarity         `json:"rarity"`
	Requirements  *Requirements  `json:"requirements,omitempty"`
	Properties    []string       `json:"properties"`
	Sockets       string         `json:"sockets,omitempty"`
	SocketedRunes []SocketedRune `json:"socketedRunes,omitempty"`
	ItemLevel     int            `json:"itemLevel,omitempty"`

	Price        *Price              `json:"price"`
	PriceHistory []PriceHistoryEntry `json:"priceHistory"`
	ListedPrice  *Price              `json:"listedPrice,omitempty"`
	SalePrice    *Price              `json:"salePrice,omitempty"`

	Status          Status     `json:"status"`
	DateAdded       time.Time  `json:"dateAdded"`
	DateSold        *time.Time `json:"dateSold,omitempty"`
	LastPriceUpdate *time.Time `json:"lastPriceUpdate,omitempty"`
}

// Clone returns a deep copy of the item.
func (it Item) Clone() Item {
	c := it
	if it.ItemClassID != nil {
		v := *it.ItemClassID
		c.ItemClassID = &v
	}
	if it.Requirements != nil {
		v := *it.Requirements
		c.Requirements = &v
	}
	if it.Properties != nil {
		c.Properties = append([]string(nil), it.Properties...)
	}
	if it.SocketedRunes != nil {
		c.SocketedRunes = append([]SocketedRune(nil), it.SocketedRunes...)
	}
	if it.PriceHistory != nil {
		c.PriceHistory = append([]PriceHistoryEntry(nil), it.PriceHistory...)
	}
	c.Price = it.Price.Clone()
	c.ListedPrice = it.ListedPrice.Clone()
	c.SalePrice = it.SalePrice.Clone()
	c.DateSold = cloneTime(it.DateSold)
	c.LastPriceUpdate = cloneTime(it.LastPriceUpdate)
	return c
}

// NextHistoryID returns the id for the next price history entry.
func (it *Item) NextHistoryID() int {
	max := 0
	for _, e := range it.PriceHistory {
		if e.ID > max {
			max = e.ID
		}
	}
	return max + 1
}

// LatestHistoryEntry returns the entry with the latest date. Ties go to the
// higher id. Returns nil for an empty history.
func (it *Item) LatestHistoryEntry() *PriceHistoryEntry {
	var latest *PriceHistoryEntry
	for i := range it.PriceHistory {
		e := &it.PriceHistory[i]
		if latest == nil || e.Date.After(latest.Date) || (e.Date.Equal(latest.Date) && e.ID > latest.ID) {
			latest = e
		}
	}
	return latest
}

// SameIdentity reports whether two items describe the same thing for
// duplicate detection: exact name, base type and rarity.
func (it *Item) SameIdentity(other *Item) bool {
	return it.Name == other.Name && it.BaseType == other.BaseType && it.Rarity == other.Rarity
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
