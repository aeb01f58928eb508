package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmfalke/stash/internal/model"
	"github.com/dmfalke/stash/internal/store"
)

type WarrantyHandler struct {
	warranties *store.WarrantyStore
	items      *store.ItemStore
}

func NewWarrantyHandler(warranties *store.WarrantyStore, items *store.ItemStore) *WarrantyHandler {
	return &WarrantyHandler{warranties: warranties, items: items}
}

type warrantyRequest struct {
	Provider  string    `json:"provider"`
	StartsAt  time.Time `json:"starts_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Notes     string    `json:"notes"`
}

func (h *WarrantyHandler) Create(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	it, err := h.items.GetByID(r.Context(), itemID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if it == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	var req warrantyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Provider = strings.TrimSpace(req.Provider)
	if req.Provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}
	if !req.ExpiresAt.After(req.StartsAt) {
		writeError(w, http.StatusBadRequest, "expires_at must be after starts_at")
		return
	}

	warranty, err := h.warranties.Create(r.Context(), itemID, req.Provider, req.StartsAt, req.ExpiresAt, req.Notes)
	if err != nil {
		slog.Error("create warranty", "item_id", itemID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create warranty")
		return
	}
	writeJSON(w, http.StatusCreated, warranty)
}

func (h *WarrantyHandler) ListByItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	warranties, err := h.warranties.ListByItem(r.Context(), itemID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list warranties")
		return
	}
	if warranties == nil {
		warranties = []model.Warranty{}
	}
	writeJSON(w, http.StatusOK, warranties)
}

// Expiring lists warranties expiring within the next N days (default 30).
func (h *WarrantyHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	days := 30
	if d := r.URL.Query().Get("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid days")
			return
		}
		days = parsed
	}

	warranties, err := h.warranties.ExpiringWithin(r.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list warranties")
		return
	}
	if warranties == nil {
		warranties = []model.Warranty{}
	}
	writeJSON(w, http.StatusOK, warranties)
}
