package api

import (
	"net/http"
	"time"

	"github.com/erazemk/poetrack/internal/model"
	"github.com/erazemk/poetrack/internal/store"
)

// StatsHandler serves sales statistics.
type StatsHandler struct {
	Store *store.Store
	Rates model.Rates
}

// Get handles GET /api/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.Store.Stats(h.Rates, time.Now().UTC()))
}
