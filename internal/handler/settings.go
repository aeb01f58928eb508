package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmfalke/stash/internal/store"
)

type SettingsHandler struct {
	settings *store.SettingsStore
}

func NewSettingsHandler(settings *store.SettingsStore) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.GetAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}

	// Never expose the PIN hash; report only whether a PIN is set.
	_, pinSet := settings[store.SettingAccessPINHash]
	delete(settings, store.SettingAccessPINHash)

	writeJSON(w, http.StatusOK, map[string]any{
		"settings": settings,
		"pin_set":  pinSet,
	})
}

type settingsRequest struct {
	BinRetentionDays *int `json:"bin_retention_days"`
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.BinRetentionDays != nil {
		if *req.BinRetentionDays <= 0 {
			writeError(w, http.StatusBadRequest, "bin_retention_days must be positive")
			return
		}
		if err := h.settings.Set(r.Context(), store.SettingBinRetentionDays, strconv.Itoa(*req.BinRetentionDays)); err != nil {
			slog.Error("update settings", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update settings")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type pinRequest struct {
	PIN string `json:"pin"`
}

// SetPIN sets or clears the access PIN. An empty PIN clears it.
func (h *SettingsHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.PIN == "" {
		if err := h.settings.Delete(r.Context(), store.SettingAccessPINHash); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to clear PIN")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
		return
	}

	if len(req.PIN) < 4 {
		writeError(w, http.StatusBadRequest, "PIN must be at least 4 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("hash PIN", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set PIN")
		return
	}
	if err := h.settings.Set(r.Context(), store.SettingAccessPINHash, string(hash)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to set PIN")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "set"})
}

// VerifyPIN checks a PIN against the stored hash without granting
// anything; clients use it to validate input before storing the PIN.
func (h *SettingsHandler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	hash, err := h.settings.Get(r.Context(), store.SettingAccessPINHash)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get PIN")
		return
	}
	if hash == "" {
		writeError(w, http.StatusNotFound, "no PIN set")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.PIN)) != nil {
		writeError(w, http.StatusUnauthorized, "incorrect PIN")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}
