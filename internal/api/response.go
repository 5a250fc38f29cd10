package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/erazemk/poetrack/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// jsonErrors writes a JSON error response listing validation messages.
func jsonErrors(w http.ResponseWriter, status int, messages []string) {
	jsonResponse(w, status, map[string]any{"error": messages[0], "errors": messages})
}

// storeError maps a store error to a response. Save failures still leave
// the change applied in memory.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrPriceUnchanged):
		jsonError(w, http.StatusConflict, "price unchanged")
	case errors.Is(err, store.ErrAlreadySold):
		jsonError(w, http.StatusConflict, "item already sold")
	case errors.Is(err, store.ErrLastSoldPrice):
		jsonError(w, http.StatusConflict, "cannot remove the only price of a sold item")
	case errors.Is(err, store.ErrPriceRequired):
		jsonError(w, http.StatusBadRequest, "price required")
	case errors.Is(err, store.ErrQuotaExceeded):
		jsonError(w, http.StatusInsufficientStorage, "storage quota exceeded, changes were not saved")
	default:
		slog.Error("store operation failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save items")
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}
