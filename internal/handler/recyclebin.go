package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dmfalke/stash/internal/bin"
	"github.com/dmfalke/stash/internal/model"
	"github.com/dmfalke/stash/internal/store"
	ws "github.com/dmfalke/stash/internal/websocket"
)

type RecycleBinHandler struct {
	bin     *store.RecycleBinStore
	cleaner *bin.Cleaner
	hub     *ws.Hub
}

func NewRecycleBinHandler(binStore *store.RecycleBinStore, cleaner *bin.Cleaner, hub *ws.Hub) *RecycleBinHandler {
	return &RecycleBinHandler{bin: binStore, cleaner: cleaner, hub: hub}
}

func (h *RecycleBinHandler) List(w http.ResponseWriter, r *http.Request) {
	binned, err := h.bin.ListBinned(r.Context())
	if err != nil {
		slog.Error("list bin", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list bin")
		return
	}
	if binned == nil {
		binned = []model.BinnedItem{}
	}
	writeJSON(w, http.StatusOK, binned)
}

type batchBinRequest struct {
	ItemIDs []int64 `json:"item_ids"`
	Reason  string  `json:"reason"`
}

// MoveMany bins each listed item independently and reports a per-item
// outcome list.
func (h *RecycleBinHandler) MoveMany(w http.ResponseWriter, r *http.Request) {
	var req batchBinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.ItemIDs) == 0 {
		writeError(w, http.StatusBadRequest, "item_ids is required")
		return
	}

	outcomes := h.bin.MoveManyToBin(r.Context(), req.ItemIDs, req.Reason)
	for _, o := range outcomes {
		if o.OK() {
			h.hub.Broadcast(ws.NewMessage("bin", "binned", o.ItemID))
		}
	}
	writeJSON(w, http.StatusOK, outcomes)
}

type restoreRequest struct {
	Phase model.Phase `json:"phase"`
}

func (h *RecycleBinHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req restoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.bin.Restore(r.Context(), id, req.Phase); err != nil {
		slog.Error("restore item", "item_id", id, "error", err)
		writeStoreError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewPhaseMessage("bin", "restored", id, req.Phase))
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

func (h *RecycleBinHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.bin.Delete(r.Context(), id); err != nil {
		slog.Error("purge item", "item_id", id, "error", err)
		writeStoreError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("bin", "purged", id))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *RecycleBinHandler) Clear(w http.ResponseWriter, r *http.Request) {
	count, err := h.bin.ClearBin(r.Context())
	if err != nil {
		slog.Error("clear bin", "error", err)
		writeStoreError(w, err)
		return
	}

	if count > 0 {
		h.hub.Broadcast(ws.NewMessage("bin", "cleared", 0))
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": count})
}

// Clean triggers an auto-clean pass with the configured retention.
func (h *RecycleBinHandler) Clean(w http.ResponseWriter, r *http.Request) {
	removed := h.cleaner.RunOnce(r.Context())
	if removed > 0 {
		h.hub.Broadcast(ws.NewMessage("bin", "cleaned", 0))
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
