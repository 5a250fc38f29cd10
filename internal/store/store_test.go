package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/poetrack/internal/db"
	"github.com/erazemk/poetrack/internal/model"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func newTestStore(t *testing.T, backend Backend, c *clock) *Store {
	t.Helper()
	s, err := Open(context.Background(), backend, DefaultKey, WithClock(c.now))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func divine(amount int64) *model.Price {
	return &model.Price{Amount: decimal.NewFromInt(amount), Currency: model.CurrencyDivine}
}

func wand(price *model.Price) model.Item {
	return model.Item{
		Name:       "Tempest Weaver",
		BaseType:   "Withered Wand",
		ItemClass:  "Wands",
		Rarity:     model.RarityRare,
		Properties: []string{"77% increased Spell Damage"},
		Price:      price,
	}
}

func mustGet(t *testing.T, s *Store, id int64) model.Item {
	t.Helper()
	item, ok := s.Item(id)
	if !ok {
		t.Fatalf("item %d not found", id)
	}
	return item
}

func TestAddItem(t *testing.T) {
	c := newClock()
	s := newTestStore(t, NewMemoryBackend(), c)
	ctx := context.Background()

	id, err := s.AddItem(ctx, wand(divine(23)))
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if id != 1 {
		t.Errorf("expected id 1, got %d", id)
	}

	item := mustGet(t, s, id)
	if item.Status != model.StatusActive {
		t.Errorf("expected status active, got %q", item.Status)
	}
	if !item.DateAdded.Equal(c.t) {
		t.Errorf("expected dateAdded %v, got %v", c.t, item.DateAdded)
	}
	if len(item.PriceHistory) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(item.PriceHistory))
	}
	e := item.PriceHistory[0]
	if e.ID != 1 || e.Reason != model.ReasonInitialListing || !e.Price.Equal(*divine(23)) {
		t.Errorf("unexpected initial entry: %+v", e)
	}
}

func TestAddItemWithoutPrice(t *testing.T) {
	s := newTestStore(t, NewMemoryBackend(), newClock())

	id, _ := s.AddItem(context.Background(), wand(nil))
	item := mustGet(t, s, id)
	if item.Price != nil {
		t.Errorf("expected no price, got %s", item.Price)
	}
	if item.PriceHistory == nil || len(item.PriceHistory) != 0 {
		t.Errorf("expected empty history, got %+v", item.PriceHistory)
	}
}

func TestIDsAreNeverReused(t *testing.T) {
	s := newTestStore(t, NewMemoryBackend(), newClock())
	ctx := context.Background()

	first, _ := s.AddItem(ctx, wand(divine(1)))
	second, _ := s.AddItem(ctx, wand(divine(2)))
	if first != 1 || second != 2 {
		t.Fatalf("expected ids 1 and 2, got %d and %d", first, second)
	}

	if err := s.DeleteItem(ctx, first); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	third, _ := s.AddItem(ctx, wand(divine(3)))
	if third != 3 {
		t.Errorf("expected id 3, got %d", third)
	}
	if len(s.Items()) != 2 {
		t.Errorf("expected 2 items, got %d", len(s.Items()))
	}
}

func TestDeletedMaxIDIsNotReused(t *testing.T) {
	s := newTestStore(t, NewMemoryBackend(), newClock())
	ctx := context.Background()

	s.AddItem(ctx, wand(divine(1)))
	last, _ := s.AddItem(ctx, wand(divine(2)))
	if err := s.DeleteItem(ctx, last); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	next, _ := s.AddItem(ctx, wand(divine(3)))
	if next != 3 {
		t.Errorf("expected id 3 after deleting id %d, got %d", last, next)
	}

	// Replacing the list does not lower the mark either.
	if err := s.ReplaceAll(ctx, s.Items()[:1]); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if id, _ := s.AddItem(ctx, wand(divine(4))); id != 4 {
		t.Errorf("expected id 4 after replace, got %d", id)
	}
}

func TestReplaceWithKeepsConcurrentAdds(t *testing.T) {
	s := newTestStore(t, NewMemoryBackend(), newClock())
	ctx := context.Background()

	const rounds = 50
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := s.AddItem(ctx, wand(divine(1))); err != nil {
				t.Errorf("AddItem: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			err := s.ReplaceWith(ctx, func(items []model.Item) []model.Item {
				return append(items, wand(divine(2)))
			})
			if err != nil {
				t.Errorf("ReplaceWith: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := len(s.Items()); n != 2*rounds {
		t.Errorf("expected %d items, got %d", 2*rounds, n)
	}
}

func TestReplaceWithPassesCopy(t *testing.T) {
	s := newTestStore(t, NewMemoryBackend(), newClock())
	ctx := context.Background()
	id, _ := s.AddItem(ctx, wand(divine(1)))

	var events []Event
	s.Subscribe(func(e Event) { events = append(events, e) })

	err := s.ReplaceWith(ctx, func(items []model.Item) []model.Item {
		items[0].Name = "Renamed"
		return items
	})
	if err != nil {
		t.Fatalf("ReplaceWith: %v", err)
	}
	if got := mustGet(t, s, id).Name; got != "Renamed" {
		t.Errorf("expected returned list to be adopted, got name %q", got)
	}
	if len(events) != 1 || events[0].Kind != EventReplaced {
		t.Errorf("expected one replaced event, got %+v", events)
	}
}

func TestUpdateItemPrice(t *testing.T) {
	c := newClock()
	s := newTestStore(t, NewMemoryBackend(), c)
	ctx := context.Background()

	id, _ := s.AddItem(ctx, wand(divine(23)))
	c.advance(time.Hour)

	if err := s.UpdateItemPrice(ctx, id, *divine(20)); err != nil {
		t.Fatalf("UpdateItemPrice: %v", err)
	}
	item := mustGet(t, s, id)
	if !item.Price.Equal(*divine(20)) {
		t.Errorf("expected price 20 divine, got %s", item.Price)
	}
	if len(item.PriceHistory) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(item.PriceHistory))
	}
	last := item.PriceHistory[1]
	if last.ID != 2 || last.Reason != model.ReasonManualUpdate || !last.Date.Equal(c.t) {
		t.Errorf("unexpected appended entry: %+v", last)
	}
	if item.LastPriceUpdate == nil || !item.LastPriceUpdate.Equal(c.t) {
		t.Errorf("expected lastPriceUpdate %v, got %v", c.t, item.LastPriceUpdate)
	}
}

func TestUpdateItemPriceUnchanged(t *testing.T) {
	s := newTestStore(t, NewMemoryBackend(), newClock())
	ctx := context.Background()

	id, _ := s.AddItem(ctx, wand(divine(23)))
	same := model.Price{Amount: decimal.RequireFromString("23.0"), Currency: model.CurrencyDivine}

	if err := s.UpdateItemPrice(ctx, id, same); !errors.Is(err, ErrPriceUnchanged) {
		t.Fatalf("expected ErrPriceUnchanged, got %v", err)
	}
	if n := len(mustGet(t, s, id).PriceHistory); n != 1 {
		t.Errorf("expected history to stay at 1 entry, got %d", n)
	}

	// Same amount in another currency is a change.
	chaos := model.Price{Amount: decimal.NewFromInt(23), Currency: model.CurrencyChaos}
	if err := s.UpdateItemPrice(ctx, id, chaos); err != nil {
		t.Errorf("expected currency change to be accepted, got %v", err)
	}
}

func TestPriceFollowsLatestHistoryEntry(t *testing.T) {
	c := newClock()
	s := newTestStore(t, NewMemoryBackend(), c)
	ctx := context.Background()

	id, _ := s.AddItem(ctx, wand(divine(10)))
	c.advance(time.Minute)
	s.UpdateItemPrice(ctx, id, *divine(12))
	c.advance(time.Minute)
	s.UpdateItemPrice(ctx, id, *divine(15))

	if err := s.RemovePriceHistoryEntry(ctx, id, 3); err != nil {
		t.Fatalf("RemovePriceHistoryEntry: %v", err)
	}
	if item := mustGet(t, s, id); !item.Price.Equal(*divine(12)) {
		t.Errorf("expected price 12 divine after removing latest, got %s", item.Price)
	}

	s.RemovePriceHistoryEntry(ctx, id, 1)
	if item := mustGet(t, s, id); !item.Price.Equal(*divine(12)) {
		t.Errorf("expected price 12 divine after removing oldest, got %s", item.Price)
	}

	s.RemovePriceHistoryEntry(ctx, id, 2)
	item := mustGet(t, s, id)
	if item.Price != nil || len(item.PriceHistory) != 0 {
		t.Errorf("expected priced-unset item, got price %s with %d entries", item.Price, len(item.PriceHistory))
	}

	// A new price after emptying continues the entry ids.
	s.UpdateItemPrice(ctx, id, *divine(9))
	item = mustGet(t, s, id)
	if item.PriceHistory[0].ID != 1 || !item.Price.Equal(*divine(9)) {
		t.Errorf("unexpected history after repricing: %+v", item.PriceHistory)
	}
}

func TestClockSkewKeepsNewestPrice(t *testing.T) {
	c := newClock()
	s := newTestStore(t, NewMemoryBackend(), c)
	ctx := context.Background()

	id, _ := s.AddItem(ctx, wand(divine(10)))
	c.advance(-time.Hour)
	s.UpdateItemPrice(ctx, id, *divine(11))

	item := mustGet(t, s, id)
	latest := item.LatestHistoryEntry()
	if latest.ID != 2 || !item.Price.Equal(latest.Price) {
		t.Errorf("expected entry 2 to stay latest, got %+v", latest)
	}
}

func TestMarkAsSoldAtDifferentPrice(t *testing.T) {
	c := newClock()
	s := newTestStore(t, NewMemoryBackend(), c)
	ctx := context.Background()

	id, _ := s.AddItem(ctx, wand(divine(23)))
	c.advance(24 * time.Hour)

	if err := s.MarkAsSold(ctx, id, divine(30)); err != nil {
		t.Fatalf("MarkAsSold: %v", err)
	}
	item := mustGet(t, s, id)
	if item.Status != model.StatusSold {
		t.Errorf("expected status sold, got %q", item.Status)
	}
	if item.DateSold == nil || !item.DateSold.Equal(c.t) {
		t.Errorf("expected dateSold %v, got %v", c.t, item.DateSold)
	}
	if !item.Price.Equal(*divine(30)) {
		t.Errorf("expected price 30 divine, got %s", item.Price)
	}
	if len(item.PriceHistory) != 2 || item.PriceHistory[1].Reason != model.ReasonFinalSalePrice {
		t.Errorf("expected final sale entry, got %+v", item.PriceHistory)
	}
	if !item.ListedPrice.Equal(*divine(23)) || !item.SalePrice.Equal(*divine(30)) {
		t.Errorf("expected listed 23 and sale 30, got %s and %s", item.ListedPrice, item.SalePrice)
	}

	if err := s.MarkAsSold(ctx, id, nil); !errors.Is(err, ErrAlreadySold) {
		t.Errorf("expected ErrAlreadySold, got %v", err)
	}
}

func TestMarkAsSoldAtCurrentPrice(t *testing.T) {
	s := newTestStore(t, NewMemoryBackend(), newClock())
	ctx := context.Background()

	id, _ := s.AddItem(ctx, wand(divine(23)))
	if err := s.MarkAsSold(ctx, id, nil); err != nil {
		t.Fatalf("MarkAsSold: %v", err)
	}
	item := mustGet(t, s, id)
	if len(item.PriceHistory) != 1 {
		t.Errorf("expected no extra history entry, got %d entries", len(item.PriceHistory))
	}
	if !item.SalePrice.Equal(*divine(23)) {
		t.Errorf("expected sale price 23 divine, got %s", item.SalePrice)
	}

	stored := &s.items[s.index(id)]
	if stored.ListedPrice == stored.SalePrice {
		t.Error("expected listed and sale price not to share a pointer")
	}
}

func TestMarkAsSoldDefaultsCurrency(t *testing.T) {
	s := newTestStore(t, NewMemoryBackend(), newClock())
	ctx := context.Background()

	chaos := &model.Price{Amount: decimal.NewFromInt(90), Currency: model.CurrencyChaos}
	id, _ := s.AddItem(ctx, wand(chaos))
	s.MarkAsSold(ctx, id, &model.Price{Amount: decimal.NewFromInt(100)})

	if item := mustGet(t, s, id); item.SalePrice.Currency != model.CurrencyChaos {
		t.Errorf("expected sale currency chaos, got %q", item.SalePrice.Currency)
	}
}

func TestMarkAsSoldRequiresPrice(t *testing.T) {
	s := newTestStore(t, NewMemoryBackend(), newClock())
	ctx := context.Background()

	id, _ := s.AddItem(ctx, wand(nil))
	if err := s.MarkAsSold(ctx, id, nil); !errors.Is(err, ErrPriceRequired) {
		t.Fatalf("expected ErrPriceRequired, got %v", err)
	}
	if item := mustGet(t, s, id); item.Status != model.StatusActive {
		t.Errorf("expected item to stay active, got %q", item.Status)
	}

	if err := s.MarkAsSold(ctx, id, divine(5)); err != nil {
		t.Fatalf("MarkAsSold with price: %v", err)
	}
	item := mustGet(t, s, id)
	if item.ListedPrice != nil || !item.Price.Equal(*divine(5)) {
		t.Errorf("expected no listed price and current price 5, got %s and %s", item.ListedPrice, item.Price)
	}
}

func TestRemoveLastPriceOfSoldItem(t *testing.T) {
	s := newTestStore(t, NewMemoryBackend(), newClock())
	ctx := context.Background()

	id, _ := s.AddItem(ctx, wand(divine(23)))
	s.MarkAsSold(ctx, id, nil)

	if err := s.RemovePriceHistoryEntry(ctx, id, 1); !errors.Is(err, ErrLastSoldPrice) {
		t.Errorf("expected ErrLastSoldPrice, got %v", err)
	}
}

func TestUnknownIDsAreNoOps(t *testing.T) {
	backend := NewMemoryBackend()
	s := newTestStore(t, backend, newClock())
	ctx := context.Background()

	events := 0
	s.Subscribe(func(Event) { events++ })

	if err := s.UpdateItemPrice(ctx, 99, *divine(1)); err != nil {
		t.Errorf("UpdateItemPrice: expected nil, got %v", err)
	}
	if err := s.RemovePriceHistoryEntry(ctx, 99, 1); err != nil {
		t.Errorf("RemovePriceHistoryEntry: expected nil, got %v", err)
	}
	if err := s.DeleteItem(ctx, 99); err != nil {
		t.Errorf("DeleteItem: expected nil, got %v", err)
	}
	if err := s.MarkAsSold(ctx, 99, nil); err != nil {
		t.Errorf("MarkAsSold: expected nil, got %v", err)
	}

	if events != 0 {
		t.Errorf("expected no events, got %d", events)
	}
	if data, _ := backend.Load(ctx, DefaultKey); data != nil {
		t.Errorf("expected nothing persisted, got %s", data)
	}
}

func TestQuotaErrorKeepsState(t *testing.T) {
	backend := &MemoryBackend{Quota: 32}
	s := newTestStore(t, backend, newClock())
	ctx := context.Background()

	id, err := s.AddItem(ctx, wand(divine(23)))
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if _, ok := s.Item(id); !ok {
		t.Error("expected item to stay in memory after failed save")
	}
}

func TestSubscribe(t *testing.T) {
	s := newTestStore(t, NewMemoryBackend(), newClock())
	ctx := context.Background()

	var got []Event
	cancel := s.Subscribe(func(e Event) { got = append(got, e) })

	id, _ := s.AddItem(ctx, wand(divine(1)))
	s.UpdateItemPrice(ctx, id, *divine(2))
	s.UpdateItemPrice(ctx, id, *divine(2))
	cancel()
	s.DeleteItem(ctx, id)

	want := []Event{{Kind: EventAdded, ItemID: id}, {Kind: EventPriceUpdated, ItemID: id}}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestQueriesReturnCopies(t *testing.T) {
	c := newClock()
	s := newTestStore(t, NewMemoryBackend(), c)
	ctx := context.Background()

	a, _ := s.AddItem(ctx, wand(divine(1)))
	b, _ := s.AddItem(ctx, wand(divine(2)))
	d, _ := s.AddItem(ctx, wand(divine(3)))
	s.MarkAsSold(ctx, a, nil)
	c.advance(time.Hour)
	s.MarkAsSold(ctx, d, nil)

	active := s.ActiveItems()
	if len(active) != 1 || active[0].ID != b {
		t.Errorf("expected only item %d active, got %+v", b, active)
	}
	sold := s.SoldItems()
	if len(sold) != 2 || sold[0].ID != d || sold[1].ID != a {
		t.Errorf("expected sold items newest first, got %+v", sold)
	}

	items := s.Items()
	items[0].Name = "changed"
	items[0].Price.Amount = decimal.NewFromInt(999)
	if item := mustGet(t, s, items[0].ID); item.Name == "changed" || !item.Price.Equal(*divine(1)) {
		t.Error("expected Items to return deep copies")
	}
}

func TestSQLiteBackendRoundTrip(t *testing.T) {
	database := db.NewTestDB(t)
	backend := &SQLiteBackend{DB: database}
	c := newClock()
	ctx := context.Background()

	s := newTestStore(t, backend, c)
	id, _ := s.AddItem(ctx, wand(divine(23)))
	s.UpdateItemPrice(ctx, id, model.Price{Amount: decimal.RequireFromString("2.5"), Currency: model.CurrencyExalted})

	reopened := newTestStore(t, backend, c)
	item := mustGet(t, reopened, id)
	if item.Price.Currency != model.CurrencyExalted || !item.Price.Amount.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("expected 2.5 exalted after reopen, got %s", item.Price)
	}
	if len(item.PriceHistory) != 2 {
		t.Errorf("expected 2 history entries after reopen, got %d", len(item.PriceHistory))
	}
	if next, _ := reopened.AddItem(ctx, wand(nil)); next != id+1 {
		t.Errorf("expected next id %d, got %d", id+1, next)
	}
}

func TestOpenUpgradesLegacyRecords(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()
	legacy := `[
		{"id": 1712000000000.5, "name": "Old Ring", "baseType": "Gold Ring", "rarity": "Rare",
		 "expectedPrice": 4, "currency": "exalted", "status": "active",
		 "createdAt": "2024-04-01T10:00:00Z"},
		{"id": 7, "name": "Sold Boots", "baseType": "Leather Boots", "rarity": "Magic",
		 "expectedPrice": 50, "currency": "chaos", "actualPrice": 60, "status": "sold",
		 "createdAt": "2024-04-01T10:00:00Z", "soldAt": "2024-04-02T10:00:00Z"},
		{"id": 7, "name": "Duplicate Id", "baseType": "Sash", "rarity": "Normal"}
	]`
	backend.Save(ctx, DefaultKey, []byte(legacy))

	s := newTestStore(t, backend, newClock())
	items := s.Items()
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	ids := map[int64]bool{}
	for _, it := range items {
		if it.ID <= 0 || ids[it.ID] {
			t.Errorf("expected unique positive ids, got %d", it.ID)
		}
		ids[it.ID] = true
	}

	ring := items[0]
	if ring.Price == nil || ring.Price.Currency != model.CurrencyExalted || len(ring.PriceHistory) != 1 {
		t.Errorf("expected upgraded ring priced in exalted with history, got %+v", ring)
	}

	boots := items[1]
	if boots.ID != 7 {
		t.Errorf("expected boots to keep id 7, got %d", boots.ID)
	}
	if boots.SalePrice == nil || !boots.SalePrice.Amount.Equal(decimal.NewFromInt(60)) {
		t.Errorf("expected sale price 60, got %s", boots.SalePrice)
	}
	if boots.DateSold == nil {
		t.Error("expected dateSold from soldAt")
	}
}
