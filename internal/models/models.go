// Package models defines the data structures used throughout the Lanwatch monitor.
// It contains the configured device description, the per-scan result types, and
// the records persisted in the scan history store.
package models

import "time"

// Status is the derived health state of a device for one scan cycle.
type Status string

const (
	// StatusOnline means the device answered the reachability probe and
	// every configured port accepted a connection.
	StatusOnline Status = "ONLINE"
	// StatusDegraded means the device is reachable but at least one
	// configured port refused or timed out.
	StatusDegraded Status = "DEGRADED"
	// StatusOffline means the reachability probe failed. Port results are
	// not collected for offline devices.
	StatusOffline Status = "OFFLINE"
)

// Device describes one monitored endpoint as supplied by configuration.
// It is immutable for the lifetime of a run.
type Device struct {
	Host  string `json:"host" yaml:"host"`
	Label string `json:"label" yaml:"label"`
	Ports []int  `json:"ports" yaml:"ports"`
}

// PortCheckResult records the outcome of a single TCP port probe.
type PortCheckResult struct {
	Port int  `json:"port"`
	Open bool `json:"open"`
}

// DeviceResult is the outcome of probing one device during one scan cycle.
// It is rebuilt from scratch every cycle and never mutated in place.
// LatencyMs is only set when the device was reachable.
type DeviceResult struct {
	Device      Device            `json:"device"`
	Reachable   bool              `json:"reachable"`
	LatencyMs   *float64          `json:"latencyMs,omitempty"`
	PortResults []PortCheckResult `json:"portResults"`
	Status      Status            `json:"status"`
}

// OpenPorts returns the ports that accepted a connection, in probe order.
func (r *DeviceResult) OpenPorts() []int {
	ports := make([]int, 0, len(r.PortResults))
	for _, pr := range r.PortResults {
		if pr.Open {
			ports = append(ports, pr.Port)
		}
	}
	return ports
}

// ClosedPorts returns the ports that refused or timed out, in probe order.
func (r *DeviceResult) ClosedPorts() []int {
	ports := make([]int, 0, len(r.PortResults))
	for _, pr := range r.PortResults {
		if !pr.Open {
			ports = append(ports, pr.Port)
		}
	}
	return ports
}

// ScanResult is the outcome of one full scan cycle. DeviceResults holds
// exactly one entry per configured device, in configuration order.
type ScanResult struct {
	Timestamp     time.Time      `json:"timestamp"`
	DeviceResults []DeviceResult `json:"deviceResults"`
}

// ScanSummary aggregates per-status device counts for one scan cycle.
type ScanSummary struct {
	Total    int `json:"total"`
	Online   int `json:"online"`
	Degraded int `json:"degraded"`
	Offline  int `json:"offline"`
}

// Summary counts the devices in each health state.
func (s *ScanResult) Summary() ScanSummary {
	summary := ScanSummary{Total: len(s.DeviceResults)}
	for _, r := range s.DeviceResults {
		switch r.Status {
		case StatusOnline:
			summary.Online++
		case StatusDegraded:
			summary.Degraded++
		case StatusOffline:
			summary.Offline++
		}
	}
	return summary
}

// Scan is a persisted scan cycle summary row.
type Scan struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	DurationMs  int64     `json:"durationMs"`
	DeviceCount int       `json:"deviceCount"`
	Online      int       `json:"online"`
	Degraded    int       `json:"degraded"`
	Offline     int       `json:"offline"`
}

// ScanDetails is a persisted scan together with its reconstructed device results.
type ScanDetails struct {
	Scan
	DeviceResults []DeviceResult `json:"deviceResults"`
}

// DeviceStatus is the last known state of a configured device, as read back
// from the scan history store.
type DeviceStatus struct {
	Host        string    `json:"host"`
	Label       string    `json:"label"`
	Status      Status    `json:"status"`
	Reachable   bool      `json:"reachable"`
	LatencyMs   *float64  `json:"latencyMs,omitempty"`
	LastChecked time.Time `json:"lastChecked"`
}
