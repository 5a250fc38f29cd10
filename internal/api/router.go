// Package api exposes the item store as a local JSON API.
package api

import (
	"net/http"

	"github.com/erazemk/poetrack/internal/exchange"
	"github.com/erazemk/poetrack/internal/model"
	"github.com/erazemk/poetrack/internal/store"
)

// Config tunes the API handlers.
type Config struct {
	// Rates convert prices for statistics. Defaults to model.DefaultRates.
	Rates model.Rates

	// MaxImportBytes caps import request bodies. Defaults to exchange.DefaultMaxImportBytes.
	MaxImportBytes int64

	// BackupsKept is how many backups an import keeps. Zero disables pruning.
	BackupsKept int
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(s *store.Store, cfg Config) http.Handler {
	if cfg.Rates == nil {
		cfg.Rates = model.DefaultRates()
	}
	if cfg.MaxImportBytes <= 0 {
		cfg.MaxImportBytes = exchange.DefaultMaxImportBytes
	}

	mux := http.NewServeMux()

	itemsHandler := &ItemsHandler{Store: s}
	exchangeHandler := &ExchangeHandler{Store: s, MaxImportBytes: cfg.MaxImportBytes, BackupsKept: cfg.BackupsKept}
	statsHandler := &StatsHandler{Store: s, Rates: cfg.Rates}

	// Parsing preview, nothing is stored.
	mux.HandleFunc("POST /api/parse", itemsHandler.Parse)

	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("POST /api/items", itemsHandler.Create)
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.HandleFunc("DELETE /api/items/{id}", itemsHandler.Delete)
	mux.HandleFunc("PUT /api/items/{id}/price", itemsHandler.UpdatePrice)
	mux.HandleFunc("DELETE /api/items/{id}/history/{entry}", itemsHandler.RemoveHistoryEntry)
	mux.HandleFunc("POST /api/items/{id}/sell", itemsHandler.Sell)

	mux.HandleFunc("GET /api/stats", statsHandler.Get)

	mux.HandleFunc("GET /api/export", exchangeHandler.Export)
	mux.HandleFunc("POST /api/import", exchangeHandler.Import)
	mux.HandleFunc("GET /api/backups", exchangeHandler.ListBackups)
	mux.HandleFunc("POST /api/backups/{key}/restore", exchangeHandler.Restore)

	return mux
}
