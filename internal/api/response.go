package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"storewatch/internal/model"
	"storewatch/internal/reconcile"
)

// Envelope provides a consistent JSON response structure.
type Envelope struct {
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(Envelope{Success: status < 400, Data: data}); err != nil {
		logger.Error("encode json response", "error", err)
	}
}

func success(w http.ResponseWriter, data any, logger *slog.Logger) {
	writeJSON(w, http.StatusOK, data, logger)
}

func created(w http.ResponseWriter, data any, logger *slog.Logger) {
	writeJSON(w, http.StatusCreated, data, logger)
}

func writeError(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(Envelope{Error: message}); err != nil {
		logger.Error("encode error response", "error", err)
	}
}

func badRequest(w http.ResponseWriter, message string, logger *slog.Logger) {
	writeError(w, http.StatusBadRequest, message, logger)
}

// handleError maps domain errors to HTTP status codes. Unknown errors become 500
// and are logged; their text is not exposed.
func handleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var afe *model.AlreadyFollowedError
	switch {
	case errors.As(err, &afe),
		errors.Is(err, model.ErrDuplicate),
		errors.Is(err, model.ErrNotFollowed):
		writeError(w, http.StatusBadRequest, err.Error(), logger)
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), logger)
	case errors.Is(err, reconcile.ErrRunInProgress):
		writeError(w, http.StatusConflict, err.Error(), logger)
	default:
		logger.Error("unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", logger)
	}
}
