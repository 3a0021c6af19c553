// internal/api/device_handlers.go
package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"lanwatch-monitor/internal/config"
	"lanwatch-monitor/internal/models"
	"lanwatch-monitor/internal/store"
)

// DeviceHandler handles device-related API endpoints
type DeviceHandler struct {
	cfg *config.Config
	db  *store.DB
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(cfg *config.Config, db *store.DB) *DeviceHandler {
	return &DeviceHandler{
		cfg: cfg,
		db:  db,
	}
}

// RegisterRoutes registers the device routes
func (h *DeviceHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/devices", h.getDevices).Methods("GET")
	r.HandleFunc("/api/devices/{host}", h.getDevice).Methods("GET")
}

// deviceView joins a configured device with its last known state.
type deviceView struct {
	models.Device
	LastStatus *models.DeviceStatus `json:"lastStatus,omitempty"`
}

// getDevices returns every configured device together with its last recorded
// status, in configuration order. Devices never scanned have no lastStatus.
func (h *DeviceHandler) getDevices(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getDevices").Logger()

	statuses, err := h.db.DeviceStatuses()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to retrieve device statuses")
		http.Error(w, "Failed to retrieve devices", http.StatusInternalServerError)
		return
	}

	byHost := make(map[string]*models.DeviceStatus, len(statuses))
	for i := range statuses {
		byHost[statuses[i].Host] = &statuses[i]
	}

	views := make([]deviceView, 0, len(h.cfg.Scanner.Devices))
	for _, device := range h.cfg.Scanner.Devices {
		views = append(views, deviceView{
			Device:     device,
			LastStatus: byHost[device.Host],
		})
	}

	writeJSON(w, logger, views)
}

// getDevice returns a single configured device by host
func (h *DeviceHandler) getDevice(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getDevice").Logger()

	vars := mux.Vars(r)
	host := vars["host"]

	for _, device := range h.cfg.Scanner.Devices {
		if !strings.EqualFold(device.Host, host) {
			continue
		}

		view := deviceView{Device: device}

		statuses, err := h.db.DeviceStatuses()
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to retrieve device statuses")
		} else {
			for i := range statuses {
				if statuses[i].Host == device.Host {
					view.LastStatus = &statuses[i]
					break
				}
			}
		}

		writeJSON(w, logger, view)
		return
	}

	logger.Warn().Str("host", host).Msg("Device not found")
	http.Error(w, "Device not found", http.StatusNotFound)
}
