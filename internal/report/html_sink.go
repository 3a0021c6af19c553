// internal/report/html_sink.go
package report

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lanwatch-monitor/internal/models"
)

var statusColors = map[models.Status]string{
	models.StatusOnline:   "#2ecc71",
	models.StatusDegraded: "#f39c12",
	models.StatusOffline:  "#e74c3c",
}

const htmlReportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Lanwatch Status Report</title>
  <style>
    body { font-family: 'Segoe UI', sans-serif; background: #1a1a2e; color: #eee; margin: 0; padding: 20px; }
    h1 { color: #00d4ff; border-bottom: 2px solid #00d4ff; padding-bottom: 8px; }
    .summary { display: flex; gap: 20px; margin: 20px 0; }
    .card { background: #16213e; border-radius: 8px; padding: 16px 24px; text-align: center; min-width: 100px; }
    .card .num { font-size: 2em; font-weight: bold; }
    .card .label { font-size: 0.85em; color: #aaa; }
    table { width: 100%; border-collapse: collapse; background: #16213e; border-radius: 8px; overflow: hidden; }
    th { background: #0f3460; padding: 12px; text-align: left; }
    td { padding: 10px 12px; border-bottom: 1px solid #2a2a4a; }
    tr:hover td { background: #1e3a5f; }
    .ts { color: #888; font-size: 0.85em; margin-top: 20px; }
  </style>
</head>
<body>
  <h1>Lanwatch &mdash; Status Report</h1>
  <div class="summary">
    <div class="card"><div class="num" style="color:#2ecc71">{{.Online}}</div><div class="label">ONLINE</div></div>
    <div class="card"><div class="num" style="color:#f39c12">{{.Degraded}}</div><div class="label">DEGRADED</div></div>
    <div class="card"><div class="num" style="color:#e74c3c">{{.Offline}}</div><div class="label">OFFLINE</div></div>
    <div class="card"><div class="num" style="color:#00d4ff">{{.Total}}</div><div class="label">TOTAL</div></div>
  </div>
  <table>
    <thead>
      <tr><th>Device</th><th>Host</th><th>Status</th><th>Latency</th><th>Open Ports</th><th>Closed Ports</th><th>Time</th></tr>
    </thead>
    <tbody>
      {{range .Rows}}
      <tr>
        <td>{{.Label}}</td>
        <td>{{.Host}}</td>
        <td style="color:{{.Color}};font-weight:bold">{{.Status}}</td>
        <td>{{.Latency}}</td>
        <td>{{.OpenPorts}}</td>
        <td style="color:#e74c3c">{{.ClosedPorts}}</td>
        <td>{{.Time}}</td>
      </tr>
      {{end}}
    </tbody>
  </table>
  <p class="ts">Generated: {{.GeneratedAt}}</p>
</body>
</html>`

type htmlReportData struct {
	Online      int
	Degraded    int
	Offline     int
	Total       int
	Rows        []htmlDeviceRow
	GeneratedAt string
}

type htmlDeviceRow struct {
	Label       string
	Host        string
	Status      string
	Color       template.CSS
	Latency     string
	OpenPorts   string
	ClosedPorts string
	Time        string
}

// HTMLSink renders one scan cycle to a standalone HTML status page.
type HTMLSink struct {
	dir      string
	template *template.Template
	logger   zerolog.Logger
}

// NewHTMLSink creates an HTML report sink writing into dir.
func NewHTMLSink(dir string) *HTMLSink {
	return &HTMLSink{
		dir:      dir,
		template: template.Must(template.New("report").Parse(htmlReportTemplate)),
		logger:   reportLogger("html"),
	}
}

// Write renders the scan result to report_<timestamp>_<id>.html.
func (s *HTMLSink) Write(result *models.ScanResult) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	summary := result.Summary()
	data := htmlReportData{
		Online:      summary.Online,
		Degraded:    summary.Degraded,
		Offline:     summary.Offline,
		Total:       summary.Total,
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
		Rows:        make([]htmlDeviceRow, 0, len(result.DeviceResults)),
	}

	for i := range result.DeviceResults {
		dr := &result.DeviceResults[i]

		latency := "—"
		if dr.LatencyMs != nil {
			latency = fmt.Sprintf("%.2f ms", *dr.LatencyMs)
		}

		color, ok := statusColors[dr.Status]
		if !ok {
			color = "#bdc3c7"
		}

		data.Rows = append(data.Rows, htmlDeviceRow{
			Label:       dr.Device.Label,
			Host:        dr.Device.Host,
			Status:      string(dr.Status),
			Color:       template.CSS(color),
			Latency:     latency,
			OpenPorts:   joinPorts(dr.OpenPorts()),
			ClosedPorts: joinPorts(dr.ClosedPorts()),
			Time:        result.Timestamp.Format("15:04:05"),
		})
	}

	name := fmt.Sprintf("report_%s_%s.html",
		result.Timestamp.Format("20060102_150405"),
		uuid.New().String()[:8],
	)
	path := filepath.Join(s.dir, name)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	if err := s.template.Execute(file, data); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	s.logger.Info().Str("file", path).Msg("HTML report saved")
	return nil
}

func joinPorts(ports []int) string {
	if len(ports) == 0 {
		return "—"
	}
	parts := make([]string, len(ports))
	for i, port := range ports {
		parts[i] = strconv.Itoa(port)
	}
	return strings.Join(parts, ", ")
}
