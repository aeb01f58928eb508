package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmfalke/stash/internal/model"
	"github.com/dmfalke/stash/internal/store"
)

type LocationHandler struct {
	locations *store.LocationStore
}

func NewLocationHandler(locations *store.LocationStore) *LocationHandler {
	return &LocationHandler{locations: locations}
}

func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	locations, err := h.locations.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list locations")
		return
	}
	if locations == nil {
		locations = []model.Location{}
	}
	writeJSON(w, http.StatusOK, locations)
}

// Create find-or-creates the location for a triple; posting the same
// triple twice returns the same row.
func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Area = strings.TrimSpace(req.Area)
	if req.Area == "" {
		writeError(w, http.StatusBadRequest, "area is required")
		return
	}

	location, err := h.locations.FindOrCreate(r.Context(), req.Area, req.Container, req.SubLocation)
	if err != nil {
		slog.Error("find or create location", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create location")
		return
	}
	writeJSON(w, http.StatusCreated, location)
}
