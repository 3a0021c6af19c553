// Package api provides HTTP handlers for the Lanwatch monitor REST API.
// It includes handlers for scan operations, device status, and overall
// service status.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"lanwatch-monitor/internal/monitor"
	"lanwatch-monitor/internal/store"
)

// ScanHandler handles scan-related API endpoints
type ScanHandler struct {
	service *monitor.MonitorService
	db      *store.DB
}

// NewScanHandler creates a new scan handler
func NewScanHandler(service *monitor.MonitorService, db *store.DB) *ScanHandler {
	return &ScanHandler{
		service: service,
		db:      db,
	}
}

// RegisterRoutes registers the scan routes
func (h *ScanHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/scans", h.getScans).Methods("GET")
	r.HandleFunc("/api/scans", h.startScan).Methods("POST")
	r.HandleFunc("/api/scans/latest", h.getLatestScan).Methods("GET")
	r.HandleFunc("/api/scans/status", h.getScanStatus).Methods("GET")
	r.HandleFunc("/api/scans/{id:[0-9]+}", h.getScan).Methods("GET")
}

// getScans returns a list of recent scan summaries
func (h *ScanHandler) getScans(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getScans").Logger()

	limit := 10 // Default limit
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsedLimit, err := strconv.Atoi(limitParam)
		if err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	scans, err := h.db.GetRecentScans(limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to retrieve scans")
		http.Error(w, "Failed to retrieve scans", http.StatusInternalServerError)
		return
	}

	writeJSON(w, logger, scans)
}

// getScan returns a persisted scan with full device results
func (h *ScanHandler) getScan(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getScan").Logger()

	vars := mux.Vars(r)
	idStr := vars["id"]

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		logger.Error().Err(err).Str("id", idStr).Msg("Invalid scan ID")
		http.Error(w, "Invalid scan ID", http.StatusBadRequest)
		return
	}

	details, err := h.db.GetScanDetails(id)
	if err != nil {
		logger.Error().Err(err).Int64("id", id).Msg("Failed to retrieve scan")
		http.Error(w, "Scan not found", http.StatusNotFound)
		return
	}

	writeJSON(w, logger, details)
}

// getLatestScan returns the most recent persisted scan with full results
func (h *ScanHandler) getLatestScan(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getLatestScan").Logger()

	details, err := h.db.GetLatestScanDetails()
	if err != nil {
		logger.Warn().Err(err).Msg("No scan available")
		http.Error(w, "No scan recorded yet", http.StatusNotFound)
		return
	}

	writeJSON(w, logger, details)
}

// startScan triggers an immediate scan cycle
func (h *ScanHandler) startScan(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "startScan").Logger()

	result, err := h.service.RunOnce(context.Background())
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to start scan")
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.Error().Err(err).Msg("Failed to encode scan result")
	}
}

// getScanStatus returns the current monitor status
func (h *ScanHandler) getScanStatus(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getScanStatus").Logger()

	status := h.service.GetStatus()

	response := map[string]interface{}{
		"status":    status.Status,
		"startTime": status.StartTime,
		"endTime":   status.EndTime,
		"summary":   status.Summary,
	}
	if status.Error != nil {
		response["error"] = status.Error.Error()
	}

	writeJSON(w, logger, response)
}
