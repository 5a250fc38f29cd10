package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/erazemk/poetrack/internal/model"
	"github.com/erazemk/poetrack/internal/parser"
	"github.com/erazemk/poetrack/internal/store"
	"github.com/erazemk/poetrack/internal/validate"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	Store *store.Store
}

type itemTextRequest struct {
	Text string `json:"text"`

	// Note overrides the price note found in the text.
	Note string `json:"note"`
}

type priceRequest struct {
	Amount   *decimal.Decimal `json:"amount"`
	Currency string           `json:"currency"`
}

type parseResponse struct {
	Item   *model.Item `json:"item"`
	Errors []string    `json:"errors"`
}

// parseText turns a request into a candidate item and its validation errors.
func parseText(req itemTextRequest) (*model.Item, []string) {
	item := parser.ParseItem(req.Text)
	if item == nil {
		return nil, []string{"No item text found"}
	}
	if req.Note != "" {
		if item.Price = parser.ParsePriceNote(req.Note); item.Price == nil {
			return item, []string{"Unrecognized price note"}
		}
	}
	errs := validate.Item(item)
	if item.Price != nil {
		errs = append(errs, validate.Price(item.Price)...)
	}
	return item, errs
}

// Parse handles POST /api/parse.
func (h *ItemsHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req itemTextRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, errs := parseText(req)
	if errs == nil {
		errs = []string{}
	}
	jsonResponse(w, http.StatusOK, parseResponse{Item: item, Errors: errs})
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	var items []model.Item
	switch model.Status(r.URL.Query().Get("status")) {
	case "":
		items = h.Store.Items()
	case model.StatusActive:
		items = h.Store.ActiveItems()
	case model.StatusSold:
		items = h.Store.SoldItems()
	default:
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemTextRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, errs := parseText(req)
	if len(errs) > 0 {
		jsonErrors(w, http.StatusBadRequest, errs)
		return
	}

	id, err := h.Store.AddItem(r.Context(), *item)
	if err != nil {
		storeError(w, err)
		return
	}

	created, _ := h.Store.Item(id)
	jsonResponse(w, http.StatusCreated, created)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, ok := h.lookup(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := h.Store.DeleteItem(r.Context(), item.ID); err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UpdatePrice handles PUT /api/items/{id}/price.
func (h *ItemsHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	item, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req priceRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	price, errs := req.price("")
	if len(errs) > 0 {
		jsonErrors(w, http.StatusBadRequest, errs)
		return
	}

	if err := h.Store.UpdateItemPrice(r.Context(), item.ID, *price); err != nil {
		storeError(w, err)
		return
	}

	updated, _ := h.Store.Item(item.ID)
	jsonResponse(w, http.StatusOK, updated)
}

// RemoveHistoryEntry handles DELETE /api/items/{id}/history/{entry}.
func (h *ItemsHandler) RemoveHistoryEntry(w http.ResponseWriter, r *http.Request) {
	item, ok := h.lookup(w, r)
	if !ok {
		return
	}
	entryID, err := strconv.Atoi(r.PathValue("entry"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid history entry id")
		return
	}

	found := false
	for _, e := range item.PriceHistory {
		found = found || e.ID == entryID
	}
	if !found {
		jsonError(w, http.StatusNotFound, "history entry not found")
		return
	}

	if err := h.Store.RemovePriceHistoryEntry(r.Context(), item.ID, entryID); err != nil {
		storeError(w, err)
		return
	}

	updated, _ := h.Store.Item(item.ID)
	jsonResponse(w, http.StatusOK, updated)
}

// Sell handles POST /api/items/{id}/sell. An empty body sells at the
// current price.
func (h *ItemsHandler) Sell(w http.ResponseWriter, r *http.Request) {
	item, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req priceRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var actual *model.Price
	if req.Amount != nil {
		fallback := model.CurrencyDivine
		if item.Price != nil {
			fallback = item.Price.Currency
		}
		var errs []string
		if actual, errs = req.price(fallback); len(errs) > 0 {
			jsonErrors(w, http.StatusBadRequest, errs)
			return
		}
	}

	if err := h.Store.MarkAsSold(r.Context(), item.ID, actual); err != nil {
		storeError(w, err)
		return
	}

	sold, _ := h.Store.Item(item.ID)
	jsonResponse(w, http.StatusOK, sold)
}

// lookup resolves the {id} path value, writing an error response on failure.
func (h *ItemsHandler) lookup(w http.ResponseWriter, r *http.Request) (model.Item, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return model.Item{}, false
	}
	item, ok := h.Store.Item(id)
	if !ok {
		jsonError(w, http.StatusNotFound, "item not found")
		return model.Item{}, false
	}
	return item, true
}

// price validates the request, using fallback when no currency is given.
func (req priceRequest) price(fallback model.Currency) (*model.Price, []string) {
	if req.Amount == nil {
		return nil, validate.Price(nil)
	}
	currency := fallback
	if req.Currency != "" {
		if c, ok := model.ParseCurrency(req.Currency); ok {
			currency = c
		} else {
			currency = model.Currency(req.Currency)
		}
	}
	p := &model.Price{Amount: *req.Amount, Currency: currency}
	if errs := validate.Price(p); len(errs) > 0 {
		return nil, errs
	}
	return p, nil
}
