package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrQuotaExceeded is returned when a write would exceed the storage quota.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Backend stores JSON documents under string keys. Load returns nil data
// for a missing key.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// SQLiteBackend keeps documents in the kv table of a SQLite database.
type SQLiteBackend struct {
	DB *sql.DB

	// Quota limits the total stored bytes. Zero means unlimited.
	Quota int64
}

func (b *SQLiteBackend) Load(ctx context.Context, key string) ([]byte, error) {
	return GetValue(ctx, b.DB, key)
}

func (b *SQLiteBackend) Save(ctx context.Context, key string, data []byte) error {
	return PutValue(ctx, b.DB, key, data, b.Quota)
}

func (b *SQLiteBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	return ListKeys(ctx, b.DB, prefix)
}

func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	return DeleteValue(ctx, b.DB, key)
}

// MemoryBackend is an in-process Backend, used in tests.
type MemoryBackend struct {
	// Quota limits the total stored bytes. Zero means unlimited.
	Quota int64

	mu   sync.Mutex
	docs map[string][]byte
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: map[string][]byte{}}
}

func (b *MemoryBackend) Load(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.docs[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (b *MemoryBackend) Save(_ context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Quota > 0 {
		var total int64
		for k, v := range b.docs {
			if k != key {
				total += int64(len(v))
			}
		}
		if total+int64(len(data)) > b.Quota {
			return fmt.Errorf("storing %s (%d bytes): %w", key, len(data), ErrQuotaExceeded)
		}
	}

	if b.docs == nil {
		b.docs = map[string][]byte{}
	}
	b.docs[key] = append([]byte(nil), data...)
	return nil
}

func (b *MemoryBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []string
	for k := range b.docs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.docs, key)
	return nil
}
