package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/erazemk/poetrack/internal/model"
)

type backupDoc struct {
	Timestamp   time.Time    `json:"timestamp"`
	Items       []model.Item `json:"items"`
	OriginalKey string       `json:"originalKey"`
}

func (s *Store) backupPrefix() string {
	return s.key + "_backup_"
}

// Backup writes a snapshot of the current list under a new key and keeps
// only the newest keep backups. It returns the backup key.
func (s *Store) Backup(ctx context.Context, keep int) (string, error) {
	s.mu.Lock()
	now := s.now()
	doc := backupDoc{Timestamp: now, Items: s.snapshot(), OriginalKey: s.key}
	data, err := json.Marshal(doc)
	s.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("encoding backup: %w", err)
	}

	key := s.backupPrefix() + strconv.FormatInt(now.UnixNano(), 10)
	if err := s.backend.Save(ctx, key, data); err != nil {
		return "", fmt.Errorf("saving backup: %w", err)
	}
	slog.Info("backup created", "key", key, "count", len(doc.Items))

	if err := s.pruneBackups(ctx, keep); err != nil {
		return key, err
	}
	return key, nil
}

// Backups lists backup keys, newest first.
func (s *Store) Backups(ctx context.Context) ([]string, error) {
	keys, err := s.backend.Keys(ctx, s.backupPrefix())
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	prefix := s.backupPrefix()
	sort.SliceStable(keys, func(i, j int) bool {
		return backupStamp(keys[i], prefix) > backupStamp(keys[j], prefix)
	})
	return keys, nil
}

// Restore replaces the list with the contents of a backup.
func (s *Store) Restore(ctx context.Context, key string) error {
	if !strings.HasPrefix(key, s.backupPrefix()) {
		return fmt.Errorf("restoring %s: not a backup of %s", key, s.key)
	}
	data, err := s.backend.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("loading backup: %w", err)
	}
	if data == nil {
		return fmt.Errorf("restoring %s: backup not found", key)
	}

	var doc struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding backup: %w", err)
	}
	items, err := model.DecodeItems(doc.Items)
	if err != nil {
		return fmt.Errorf("decoding backup: %w", err)
	}
	return s.ReplaceAll(ctx, items)
}

func (s *Store) pruneBackups(ctx context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}
	keys, err := s.Backups(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys[min(keep, len(keys)):] {
		if err := s.backend.Delete(ctx, key); err != nil {
			return fmt.Errorf("deleting backup %s: %w", key, err)
		}
		slog.Debug("backup pruned", "key", key)
	}
	return nil
}

func backupStamp(key, prefix string) int64 {
	n, _ := strconv.ParseInt(strings.TrimPrefix(key, prefix), 10, 64)
	return n
}
