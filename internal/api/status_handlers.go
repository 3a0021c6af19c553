// internal/api/status_handlers.go
package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lanwatch-monitor/internal/config"
	"lanwatch-monitor/internal/monitor"
	"lanwatch-monitor/internal/store"
)

// StatusHandler handles service status API endpoints
type StatusHandler struct {
	db        *store.DB
	service   *monitor.MonitorService
	cfg       *config.Config
	startTime time.Time
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *store.DB, service *monitor.MonitorService, cfg *config.Config) *StatusHandler {
	return &StatusHandler{
		db:        db,
		service:   service,
		cfg:       cfg,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers the status routes
func (h *StatusHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/status", h.getSystemStatus).Methods("GET")
	r.HandleFunc("/api/status/health", h.getHealthCheck).Methods("GET")
}

// getSystemStatus returns the overall service status
func (h *StatusHandler) getSystemStatus(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getSystemStatus").Logger()

	dbStats, err := h.db.GetStats()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to retrieve store stats")
	}

	scanStatus := h.service.GetStatus()

	response := map[string]interface{}{
		"status":    "healthy",
		"uptime":    time.Since(h.startTime).String(),
		"startTime": h.startTime,
		"system": map[string]interface{}{
			"goVersion":    runtime.Version(),
			"goOS":         runtime.GOOS,
			"numGoroutine": runtime.NumGoroutine(),
		},
		"config": map[string]interface{}{
			"serverPort":       h.cfg.Server.Port,
			"scanInterval":     h.cfg.Scanner.Interval,
			"deviceCount":      len(h.cfg.Scanner.Devices),
			"pinger":           h.cfg.Scanner.Pinger,
			"concurrency":      h.cfg.Scanner.Concurrency,
			"schedulerEnabled": h.cfg.Scanner.EnableScheduler,
		},
		"monitor": map[string]interface{}{
			"status":  scanStatus.Status,
			"summary": scanStatus.Summary,
		},
		"database": map[string]interface{}{
			"path":         h.cfg.Database.Path,
			"scanCount":    dbStats["scanCount"],
			"lastScanTime": dbStats["lastScanTime"],
			"sizeBytes":    dbStats["sizeBytes"],
		},
		"timestamp": time.Now(),
	}

	writeJSON(w, logger, response)
}

// getHealthCheck returns a simple health check response
func (h *StatusHandler) getHealthCheck(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getHealthCheck").Logger()

	status := "healthy"
	if err := h.db.Ping(); err != nil {
		status = "unhealthy"
		logger.Error().Err(err).Msg("Database ping failed")
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now(),
		"uptime":    time.Since(h.startTime).String(),
	}

	writeJSON(w, logger, response)
}

// writeJSON encodes v as the JSON response body.
func writeJSON(w http.ResponseWriter, logger zerolog.Logger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
