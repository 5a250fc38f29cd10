// Package store owns the canonical list of tracked items. Every successful
// mutation is written through to a Backend under a single key.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/erazemk/poetrack/internal/model"
)

// DefaultKey is the storage key of the item list.
const DefaultKey = "poe2_tracker_items"

var (
	// ErrPriceUnchanged is returned when a price update repeats the current price.
	ErrPriceUnchanged = errors.New("price unchanged")

	// ErrAlreadySold is returned when marking a sold item as sold again.
	ErrAlreadySold = errors.New("item already sold")

	// ErrPriceRequired is returned when selling an item that has no price.
	ErrPriceRequired = errors.New("price required")

	// ErrLastSoldPrice is returned when removing the only price of a sold item.
	ErrLastSoldPrice = errors.New("cannot remove the only price of a sold item")
)

// EventKind describes a store mutation.
type EventKind string

// Event kinds.
const (
	EventAdded          EventKind = "added"
	EventPriceUpdated   EventKind = "price_updated"
	EventHistoryRemoved EventKind = "history_removed"
	EventDeleted        EventKind = "deleted"
	EventSold           EventKind = "sold"
	EventReplaced       EventKind = "replaced"
)

// Event is delivered to subscribers after a mutation. ItemID is zero for
// EventReplaced.
type Event struct {
	Kind   EventKind
	ItemID int64
}

// Store is the item state engine. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	backend Backend
	key     string
	items   []model.Item
	now     func() time.Time

	// maxID is the highest id handed out this session. It never decreases,
	// so deleted ids are not reused.
	maxID int64

	subs    map[int]func(Event)
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open loads the item list stored under key. A missing key yields an empty
// store. Records in older shapes are upgraded and items without a usable id
// get a fresh one.
func Open(ctx context.Context, backend Backend, key string, opts ...Option) (*Store, error) {
	s := &Store{
		backend: backend,
		key:     key,
		now:     func() time.Time { return time.Now().UTC() },
		subs:    map[int]func(Event){},
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := backend.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	if data == nil {
		return s, nil
	}

	items, err := model.DecodeItems(data)
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	s.items = normalize(items, s.now())
	s.raiseMaxID()

	slog.Debug("items loaded", "key", key, "count", len(s.items))
	return s, nil
}

// Key returns the storage key of the item list.
func (s *Store) Key() string {
	return s.key
}

// Subscribe registers fn to be called after every mutation. The returned
// function cancels the subscription.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// mutate runs fn under the lock. A nil event means nothing changed; otherwise
// the list is persisted and subscribers are notified. Persistence errors are
// returned but the in-memory change is kept.
func (s *Store) mutate(ctx context.Context, fn func() (*Event, error)) error {
	s.mu.Lock()
	ev, err := fn()
	if err != nil || ev == nil {
		s.mu.Unlock()
		return err
	}
	err = s.persist(ctx)
	subs := lo.Values(s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub(*ev)
	}
	return err
}

func (s *Store) persist(ctx context.Context) error {
	data, err := json.Marshal(s.snapshot())
	if err != nil {
		return fmt.Errorf("encoding items: %w", err)
	}
	if err := s.backend.Save(ctx, s.key, data); err != nil {
		slog.Warn("items not saved", "key", s.key, "error", err)
		return fmt.Errorf("saving items: %w", err)
	}
	return nil
}

func (s *Store) snapshot() []model.Item {
	if s.items == nil {
		return []model.Item{}
	}
	return s.items
}

func (s *Store) index(id int64) int {
	_, i, ok := lo.FindIndexOf(s.items, func(it model.Item) bool { return it.ID == id })
	if !ok {
		return -1
	}
	return i
}

// raiseMaxID lifts the high-water mark to the largest id in the list.
func (s *Store) raiseMaxID() {
	s.maxID = max(s.maxID, nextID(s.items)-1)
}

func nextID(items []model.Item) int64 {
	return lo.Max(lo.Map(items, func(it model.Item, _ int) int64 { return it.ID })) + 1
}

// normalize assigns fresh ids to items whose id is missing or already taken
// and defaults missing fields.
func normalize(items []model.Item, now time.Time) []model.Item {
	out := make([]model.Item, 0, len(items))
	seen := map[int64]bool{}
	next := nextID(items)
	for _, it := range items {
		it = it.Clone()
		if it.ID <= 0 || seen[it.ID] {
			it.ID = next
			next++
		}
		seen[it.ID] = true
		if it.DateAdded.IsZero() {
			it.DateAdded = now
		}
		if it.Status == "" {
			it.Status = model.StatusActive
		}
		if it.Properties == nil {
			it.Properties = []string{}
		}
		if it.PriceHistory == nil {
			it.PriceHistory = []model.PriceHistoryEntry{}
		}
		out = append(out, it)
	}
	return out
}
