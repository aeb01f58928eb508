package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmfalke/stash/internal/model"
	"github.com/dmfalke/stash/internal/store"
	ws "github.com/dmfalke/stash/internal/websocket"
)

type BorrowHandler struct {
	borrows *store.BorrowStore
	items   *store.ItemStore
	hub     *ws.Hub
}

func NewBorrowHandler(borrows *store.BorrowStore, items *store.ItemStore, hub *ws.Hub) *BorrowHandler {
	return &BorrowHandler{borrows: borrows, items: items, hub: hub}
}

type borrowRequest struct {
	Borrower string     `json:"borrower"`
	Contact  string     `json:"contact"`
	Notes    string     `json:"notes"`
	DueAt    *time.Time `json:"due_at"`
}

func (h *BorrowHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req borrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Borrower = strings.TrimSpace(req.Borrower)
	if req.Borrower == "" {
		writeError(w, http.StatusBadRequest, "borrower is required")
		return
	}

	record, err := h.borrows.Create(r.Context(), itemID, req.Borrower, req.Contact, req.Notes, req.DueAt)
	if err != nil {
		slog.Error("create borrow", "item_id", itemID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create borrow record")
		return
	}

	h.hub.Broadcast(ws.NewMessage("borrow", "created", record.ID))
	writeJSON(w, http.StatusCreated, record)
}

func (h *BorrowHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	record, err := h.borrows.MarkReturned(r.Context(), id)
	if err != nil {
		slog.Error("return borrow", "borrow_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to mark returned")
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "borrow record not found")
		return
	}

	h.hub.Broadcast(ws.NewMessage("borrow", "returned", record.ID))
	writeJSON(w, http.StatusOK, record)
}

func (h *BorrowHandler) ListByItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	records, err := h.borrows.ListByItem(r.Context(), itemID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list borrows")
		return
	}
	if records == nil {
		records = []model.BorrowRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}
