package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmfalke/stash/internal/item"
	"github.com/dmfalke/stash/internal/model"
	"github.com/dmfalke/stash/internal/store"
	ws "github.com/dmfalke/stash/internal/websocket"
)

type ItemHandler struct {
	items     *store.ItemStore
	engine    *store.LifecycleEngine
	states    *store.StateStore
	locations *store.LocationStore
	borrows   *store.BorrowStore
	hub       *ws.Hub
}

func NewItemHandler(items *store.ItemStore, engine *store.LifecycleEngine, states *store.StateStore, locations *store.LocationStore, borrows *store.BorrowStore, hub *ws.Hub) *ItemHandler {
	return &ItemHandler{items: items, engine: engine, states: states, locations: locations, borrows: borrows, hub: hub}
}

type itemFields struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Brand        string   `json:"brand"`
	Rating       int      `json:"rating"`
	Capacity     string   `json:"capacity"`
	SerialNumber string   `json:"serial_number"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Note         string   `json:"note"`
}

type locationRequest struct {
	Area        string `json:"area"`
	Container   string `json:"container"`
	SubLocation string `json:"sub_location"`
}

type inventoryDetailRequest struct {
	Quantity       int              `json:"quantity"`
	Unit           string           `json:"unit"`
	Location       *locationRequest `json:"location"`
	ExpiresAt      *time.Time       `json:"expires_at"`
	StockThreshold int              `json:"stock_threshold"`
	Opened         bool             `json:"opened"`
}

type shoppingDetailRequest struct {
	Quantity       int      `json:"quantity"`
	Unit           string   `json:"unit"`
	EstimatedPrice float64  `json:"estimated_price"`
	ActualPrice    *float64 `json:"actual_price"`
}

type createItemRequest struct {
	itemFields
	Inventory *inventoryDetailRequest `json:"inventory"`
	Shopping  *shoppingDetailRequest  `json:"shopping"`
	ContextID *int64                  `json:"context_id"`
}

// buildDetail turns the request's detail payload into the tagged detail
// variant, resolving the location triple for inventory details.
func (h *ItemHandler) buildDetail(r *http.Request, inv *inventoryDetailRequest, shop *shoppingDetailRequest) (model.Detail, error) {
	switch {
	case inv != nil:
		d := &model.InventoryDetail{
			Quantity:       inv.Quantity,
			Unit:           inv.Unit,
			ExpiresAt:      inv.ExpiresAt,
			StockThreshold: inv.StockThreshold,
			Opened:         inv.Opened,
			Status:         item.StockStatus(inv.Quantity, inv.StockThreshold),
		}
		if inv.Location != nil && inv.Location.Area != "" {
			loc, err := h.locations.FindOrCreate(r.Context(), inv.Location.Area, inv.Location.Container, inv.Location.SubLocation)
			if err != nil {
				return nil, err
			}
			d.LocationID = &loc.ID
		}
		return d, nil
	case shop != nil:
		return &model.ShoppingDetail{
			Quantity:       shop.Quantity,
			Unit:           shop.Unit,
			EstimatedPrice: shop.EstimatedPrice,
			ActualPrice:    shop.ActualPrice,
		}, nil
	default:
		return nil, nil
	}
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if (req.Inventory == nil) == (req.Shopping == nil) {
		writeError(w, http.StatusBadRequest, "exactly one of inventory or shopping detail is required")
		return
	}

	detail, err := h.buildDetail(r, req.Inventory, req.Shopping)
	if err != nil {
		slog.Error("resolve location", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve location")
		return
	}

	it := &model.Item{
		Name:         req.Name,
		Category:     req.Category,
		Brand:        req.Brand,
		Rating:       req.Rating,
		Capacity:     req.Capacity,
		SerialNumber: req.SerialNumber,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Note:         req.Note,
	}

	id, err := h.engine.CreateInPhase(r.Context(), it, detail, req.ContextID)
	if err != nil {
		slog.Error("create item", "error", err)
		writeStoreError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewPhaseMessage("item", "created", id, detail.DetailPhase()))

	created, err := h.items.GetByID(r.Context(), id)
	if err != nil || created == nil {
		writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// inventoryListEntry wraps an inventory entry with the display status the
// overlay resolver derived from the borrow ledger.
type inventoryListEntry struct {
	model.InventoryEntry
	DisplayStatus string `json:"display_status"`
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	switch phase := model.Phase(r.URL.Query().Get("phase")); phase {
	case model.PhaseInventory:
		entries, err := h.items.ListInventory(r.Context())
		if err != nil {
			slog.Error("list inventory", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list items")
			return
		}

		out := make([]inventoryListEntry, 0, len(entries))
		for _, e := range entries {
			active, err := h.borrows.FindActiveBorrow(r.Context(), e.Item.ID)
			if err != nil {
				slog.Error("find active borrow", "item_id", e.Item.ID, "error", err)
				writeError(w, http.StatusInternalServerError, "failed to resolve status")
				return
			}
			out = append(out, inventoryListEntry{InventoryEntry: e, DisplayStatus: item.ResolveEntry(e, active)})
		}
		writeJSON(w, http.StatusOK, out)

	case model.PhaseShopping:
		entries, err := h.items.ListShopping(r.Context())
		if err != nil {
			slog.Error("list shopping", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list items")
			return
		}
		if entries == nil {
			entries = []model.ShoppingEntry{}
		}
		writeJSON(w, http.StatusOK, entries)

	default:
		writeError(w, http.StatusBadRequest, "phase must be INVENTORY or SHOPPING")
	}
}

type itemResponse struct {
	Item      model.Item             `json:"item"`
	Phases    []model.Phase          `json:"phases"`
	Inventory *model.InventoryDetail `json:"inventory,omitempty"`
	Shopping  *model.ShoppingDetail  `json:"shopping,omitempty"`
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	it, err := h.items.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if it == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	phases, err := h.states.ActivePhases(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item state")
		return
	}

	resp := itemResponse{Item: *it, Phases: phases}
	if resp.Inventory, err = h.items.GetInventoryDetail(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get detail")
		return
	}
	if resp.Shopping, err = h.items.GetShoppingDetail(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get detail")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ItemHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	history, err := h.states.History(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get history")
		return
	}
	if history == nil {
		history = []model.ItemState{}
	}
	writeJSON(w, http.StatusOK, history)
}

type updateItemRequest struct {
	itemFields
	Inventory *inventoryDetailRequest `json:"inventory"`
	Shopping  *shoppingDetailRequest  `json:"shopping"`
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.items.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	existing.Name = req.Name
	existing.Category = req.Category
	existing.Brand = req.Brand
	existing.Rating = req.Rating
	existing.Capacity = req.Capacity
	existing.SerialNumber = req.SerialNumber
	existing.Latitude = req.Latitude
	existing.Longitude = req.Longitude
	existing.Note = req.Note

	if err := h.items.Update(r.Context(), existing); err != nil {
		slog.Error("update item", "error", err)
		writeStoreError(w, err)
		return
	}

	if req.Inventory != nil {
		if err := h.updateInventoryDetail(r, id, req.Inventory); err != nil {
			slog.Error("update inventory detail", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update detail")
			return
		}
	}
	if req.Shopping != nil {
		d := &model.ShoppingDetail{
			ItemID:         id,
			Quantity:       req.Shopping.Quantity,
			Unit:           req.Shopping.Unit,
			EstimatedPrice: req.Shopping.EstimatedPrice,
			ActualPrice:    req.Shopping.ActualPrice,
		}
		if err := h.items.UpdateShoppingDetail(r.Context(), d); err != nil {
			slog.Error("update shopping detail", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update detail")
			return
		}
	}

	h.hub.Broadcast(ws.NewMessage("item", "updated", id))
	writeJSON(w, http.StatusOK, existing)
}

func (h *ItemHandler) updateInventoryDetail(r *http.Request, id int64, req *inventoryDetailRequest) error {
	d := &model.InventoryDetail{
		ItemID:         id,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		ExpiresAt:      req.ExpiresAt,
		StockThreshold: req.StockThreshold,
		Opened:         req.Opened,
		Status:         item.StockStatus(req.Quantity, req.StockThreshold),
	}
	if req.Location != nil && req.Location.Area != "" {
		loc, err := h.locations.FindOrCreate(r.Context(), req.Location.Area, req.Location.Container, req.Location.SubLocation)
		if err != nil {
			return err
		}
		d.LocationID = &loc.ID
	}
	return h.items.UpdateInventoryDetail(r.Context(), d)
}

type transferRequest struct {
	From      model.Phase             `json:"from"`
	Inventory *inventoryDetailRequest `json:"inventory"`
	Shopping  *shoppingDetailRequest  `json:"shopping"`
	ContextID *int64                  `json:"context_id"`
}

func (h *ItemHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !req.From.Valid() {
		writeError(w, http.StatusBadRequest, "from phase is required")
		return
	}
	if (req.Inventory == nil) == (req.Shopping == nil) {
		writeError(w, http.StatusBadRequest, "exactly one of inventory or shopping detail is required")
		return
	}

	detail, err := h.buildDetail(r, req.Inventory, req.Shopping)
	if err != nil {
		slog.Error("resolve location", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve location")
		return
	}

	if err := h.engine.TransferPhase(r.Context(), id, req.From, detail, req.ContextID); err != nil {
		slog.Error("transfer item", "item_id", id, "error", err)
		writeStoreError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewPhaseMessage("item", "transferred", id, detail.DetailPhase()))
	writeJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}

type deleteRequest struct {
	Reason string `json:"reason"`
}

// Delete moves an item to the recycle bin. Permanent removal goes through
// the bin endpoints.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req deleteRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.engine.SoftDelete(r.Context(), id, req.Reason); err != nil {
		slog.Error("soft delete item", "item_id", id, "error", err)
		writeStoreError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("bin", "binned", id))
	writeJSON(w, http.StatusOK, map[string]string{"status": "binned"})
}
