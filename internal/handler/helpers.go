package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dmfalke/stash/internal/store"
)

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps the store's error kinds onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, store.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrConstraintViolation):
		writeError(w, http.StatusConflict, "conflicting concurrent change")
	case errors.Is(err, store.ErrTransactionFailed):
		writeError(w, http.StatusConflict, "storage conflict, retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
