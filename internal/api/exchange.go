package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/poetrack/internal/exchange"
	"github.com/erazemk/poetrack/internal/model"
	"github.com/erazemk/poetrack/internal/store"
)

// ExchangeHandler handles export, import and backup endpoints.
type ExchangeHandler struct {
	Store          *store.Store
	MaxImportBytes int64
	BackupsKept    int
}

type importResponse struct {
	Version  string              `json:"version"`
	Stats    exchange.MergeStats `json:"stats"`
	Warnings []string            `json:"warnings"`
	Backup   string              `json:"backup"`
}

// Export handles GET /api/export.
func (h *ExchangeHandler) Export(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	f := exchange.Export(h.Store.Items(), now)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exchange.Filename(now)))
	if err := f.Encode(w); err != nil {
		slog.Error("error encoding export", "error", err)
	}
}

// Import handles POST /api/import. The body is an export file. Query
// parameters skipDuplicates (default true), overwrite and preserveIds
// control the merge.
func (h *ExchangeHandler) Import(w http.ResponseWriter, r *http.Request) {
	opts, err := mergeOptions(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	// One extra byte lets ParseImport see the body is over the limit.
	data, err := io.ReadAll(io.LimitReader(r.Body, h.MaxImportBytes+1))
	r.Body.Close()
	if err != nil {
		jsonError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	imp, err := exchange.ParseImport(data, h.MaxImportBytes)
	var importErr *exchange.ImportError
	switch {
	case errors.Is(err, exchange.ErrFileTooLarge):
		jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case errors.As(err, &importErr):
		jsonErrors(w, http.StatusBadRequest, importErr.Messages)
		return
	case err != nil:
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	backup, err := h.Store.Backup(r.Context(), h.BackupsKept)
	if err != nil {
		slog.Error("backup before import failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to back up items before import")
		return
	}

	var res exchange.MergeResult
	err = h.Store.ReplaceWith(r.Context(), func(items []model.Item) []model.Item {
		res = exchange.Merge(items, imp.Items, opts, time.Now().UTC())
		return res.Items
	})
	if err != nil {
		storeError(w, err)
		return
	}

	warnings := imp.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	jsonResponse(w, http.StatusOK, importResponse{
		Version:  imp.Version,
		Stats:    res.Stats,
		Warnings: warnings,
		Backup:   backup,
	})
}

// ListBackups handles GET /api/backups.
func (h *ExchangeHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	keys, err := h.Store.Backups(r.Context())
	if err != nil {
		slog.Error("listing backups failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	if keys == nil {
		keys = []string{}
	}
	jsonResponse(w, http.StatusOK, keys)
}

// Restore handles POST /api/backups/{key}/restore.
func (h *ExchangeHandler) Restore(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	known, err := h.Store.Backups(r.Context())
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	found := false
	for _, k := range known {
		found = found || k == key
	}
	if !found {
		jsonError(w, http.StatusNotFound, "backup not found")
		return
	}

	if err := h.Store.Restore(r.Context(), key); err != nil {
		storeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"message": "backup restored", "total": len(h.Store.Items())})
}

func mergeOptions(r *http.Request) (exchange.MergeOptions, error) {
	opts := exchange.DefaultMergeOptions
	q := r.URL.Query()
	for name, target := range map[string]*bool{
		"skipDuplicates": &opts.SkipDuplicates,
		"overwrite":      &opts.OverwriteExisting,
		"preserveIds":    &opts.PreserveIDs,
	} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid %s value %q", name, v)
		}
		*target = b
	}
	return opts, nil
}
