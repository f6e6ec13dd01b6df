// Package api provides HTTP handlers for ganalytics endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Moqi/ganalytics/internal/models"
)

func (s *Server) trackViewHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.trackViewHandler: processing track request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.trackViewHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.TrackViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.trackViewHandler: failed to decode JSON", "error", err)
		writeJSON(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Page == "" {
		writeJSON(w, http.StatusBadRequest, models.Error("page is required"))
		return
	}

	s.svc.RegisterView(req.Page)
	slog.Debug("Server.trackViewHandler: view accepted", "page", req.Page)
	writeJSON(w, http.StatusOK, models.Recorded())
}

func (s *Server) trackEventHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.trackEventHandler: processing track request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.trackEventHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.TrackEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.trackEventHandler: failed to decode JSON", "error", err)
		writeJSON(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.trackEventHandler: validation failed", "error", err)
		writeJSON(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	s.svc.RegisterEvent(req.Page, req.Category, req.Action, req.Label, req.Value)
	slog.Debug("Server.trackEventHandler: event accepted", "category", req.Category, "action", req.Action)
	writeJSON(w, http.StatusOK, models.Recorded())
}

func (s *Server) purgeHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.purgeHandler: processing purge request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.purgeHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.svc.PurgeLoggedEvents(); err != nil {
		slog.Error("Server.purgeHandler: purge failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.Error("Failed to purge logged events"))
		return
	}
	writeJSON(w, http.StatusOK, models.SuccessWithMessage("Logged events purged", nil))
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.statusHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, models.Success(s.svc.Status()))
}
