package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/CrowderSoup/kanban-board/kanban"
	"github.com/CrowderSoup/kanban-board/services"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"status":  "error",
		"message": message,
	})
}

// writeServiceError maps service and domain errors to status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalid), errors.Is(err, kanban.ErrInvalidPriority):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}

// decodeJSON reads a single JSON object from the body, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		msg := "Invalid request format"
		if errors.Is(err, kanban.ErrInvalidPriority) {
			msg = err.Error()
		} else if errors.Is(err, io.EOF) {
			msg = "Request body is empty"
		}
		writeError(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}
