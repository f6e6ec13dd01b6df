// Package api provides HTTP response utilities for ganalytics.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Moqi/ganalytics/internal/models"
)

// rawErrorBody is written when the response envelope itself cannot be
// marshaled. Kept as a literal so the failure path has no failure of its own.
const rawErrorBody = `{"status":"error","message":"Internal server error"}`

// writeJSON writes an APIResponse envelope with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, response models.APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSON: failed to marshal response", "error", err)
		statusCode = http.StatusInternalServerError
		data = []byte(rawErrorBody)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(data); err != nil {
		slog.Error("Server.writeJSON: failed to write response", "error", err)
	}
}
