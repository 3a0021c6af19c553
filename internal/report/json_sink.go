// internal/report/json_sink.go
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lanwatch-monitor/internal/models"
)

// jsonReport is the on-disk shape of one scan cycle.
type jsonReport struct {
	GeneratedAt time.Time       `json:"generatedAt"`
	Timestamp   time.Time       `json:"timestamp"`
	TotalHosts  int             `json:"totalHosts"`
	Online      int             `json:"online"`
	Degraded    int             `json:"degraded"`
	Offline     int             `json:"offline"`
	Results     []jsonDeviceRow `json:"results"`
}

type jsonDeviceRow struct {
	Host        string   `json:"host"`
	Label       string   `json:"label"`
	Status      string   `json:"status"`
	Reachable   bool     `json:"reachable"`
	LatencyMs   *float64 `json:"latencyMs"`
	OpenPorts   []int    `json:"openPorts"`
	ClosedPorts []int    `json:"closedPorts"`
}

// JSONSink writes one timestamped JSON log file per scan cycle.
type JSONSink struct {
	dir    string
	logger zerolog.Logger
}

// NewJSONSink creates a JSON report sink writing into dir.
func NewJSONSink(dir string) *JSONSink {
	return &JSONSink{
		dir:    dir,
		logger: reportLogger("json"),
	}
}

// Write renders the scan result to report_<timestamp>_<id>.json. The short
// random suffix keeps files distinct when two scans finish within a second.
func (s *JSONSink) Write(result *models.ScanResult) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	summary := result.Summary()
	payload := jsonReport{
		GeneratedAt: time.Now(),
		Timestamp:   result.Timestamp,
		TotalHosts:  summary.Total,
		Online:      summary.Online,
		Degraded:    summary.Degraded,
		Offline:     summary.Offline,
		Results:     make([]jsonDeviceRow, 0, len(result.DeviceResults)),
	}

	for i := range result.DeviceResults {
		dr := &result.DeviceResults[i]
		payload.Results = append(payload.Results, jsonDeviceRow{
			Host:        dr.Device.Host,
			Label:       dr.Device.Label,
			Status:      string(dr.Status),
			Reachable:   dr.Reachable,
			LatencyMs:   dr.LatencyMs,
			OpenPorts:   dr.OpenPorts(),
			ClosedPorts: dr.ClosedPorts(),
		})
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	name := fmt.Sprintf("report_%s_%s.json",
		result.Timestamp.Format("20060102_150405"),
		uuid.New().String()[:8],
	)
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	s.logger.Info().Str("file", path).Msg("JSON report saved")
	return nil
}
