// tests/integration/integration_test.go
package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"lanwatch-monitor/internal/api"
	"lanwatch-monitor/internal/config"
	"lanwatch-monitor/internal/models"
	"lanwatch-monitor/internal/monitor"
	"lanwatch-monitor/internal/report"
	"lanwatch-monitor/internal/store"
)

// stubProber answers from fixed tables so no network traffic is generated.
type stubProber struct {
	reachable map[string]bool
	openPorts map[string]map[int]bool
}

func (p *stubProber) Reachability(ctx context.Context, host string) (bool, *float64) {
	if p.reachable[host] {
		latency := 2.31
		return true, &latency
	}
	return false, nil
}

func (p *stubProber) Port(ctx context.Context, host string, port int) bool {
	return p.openPorts[host][port]
}

// setupTestEnvironment creates an integration test environment with an
// on-disk database, file report sinks, and the full API router.
func setupTestEnvironment(t *testing.T) (string, *config.Config, *store.DB, *monitor.MonitorService, http.Handler) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "lanwatch-integration-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	os.MkdirAll(filepath.Join(tempDir, "data"), 0755)
	os.MkdirAll(filepath.Join(tempDir, "reports"), 0755)

	cfg := config.Default()
	cfg.Server.Port = 8081 // Use different port than main app
	cfg.Scanner.EnableScheduler = false
	cfg.Scanner.Concurrency = 2
	cfg.Scanner.Devices = []models.Device{
		{Host: "192.168.1.1", Label: "Router", Ports: []int{22, 80}},
		{Host: "192.168.1.10", Label: "NAS", Ports: []int{445}},
		{Host: "192.168.1.20", Label: "Printer"},
	}
	cfg.Reporting.OutputDir = filepath.Join(tempDir, "reports")
	cfg.Reporting.RetentionDays = 0
	cfg.Database.Path = filepath.Join(tempDir, "data", "test.db")

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}

	prober := &stubProber{
		reachable: map[string]bool{
			"192.168.1.1":  true,
			"192.168.1.10": true,
		},
		openPorts: map[string]map[int]bool{
			"192.168.1.1":  {22: true, 80: false},
			"192.168.1.10": {445: true},
		},
	}

	sinks := []report.Sink{
		report.NewStoreSink(db),
		report.NewJSONSink(cfg.Reporting.OutputDir),
		report.NewHTMLSink(cfg.Reporting.OutputDir),
	}

	service := monitor.New(cfg, prober, sinks)
	if err := service.Start(); err != nil {
		t.Fatalf("Failed to start monitor service: %v", err)
	}

	router := mux.NewRouter()
	api.NewScanHandler(service, db).RegisterRoutes(router)
	api.NewDeviceHandler(cfg, db).RegisterRoutes(router)
	api.NewStatusHandler(db, service, cfg).RegisterRoutes(router)

	return tempDir, cfg, db, service, router
}

// teardownTestEnvironment cleans up the test environment
func teardownTestEnvironment(tempDir string, db *store.DB) {
	if db != nil {
		db.Close()
	}
	os.RemoveAll(tempDir)
}

// TestScanWorkflow tests the complete scanning workflow through the API
func TestScanWorkflow(t *testing.T) {
	tempDir, cfg, db, _, router := setupTestEnvironment(t)
	defer teardownTestEnvironment(tempDir, db)

	server := httptest.NewServer(router)
	defer server.Close()

	t.Run("StartScan", func(t *testing.T) {
		resp, err := http.Post(fmt.Sprintf("%s/api/scans", server.URL), "application/json", nil)
		if err != nil {
			t.Fatalf("Failed to start scan: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Errorf("Expected status Created, got %v", resp.Status)
		}

		var result models.ScanResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("Failed to decode scan result: %v", err)
		}

		if len(result.DeviceResults) != 3 {
			t.Fatalf("Expected 3 device results, got %d", len(result.DeviceResults))
		}

		// Reachable with one closed port, reachable with all open, unreachable.
		expected := []models.Status{models.StatusDegraded, models.StatusOnline, models.StatusOffline}
		for i, want := range expected {
			if result.DeviceResults[i].Status != want {
				t.Errorf("Device %d: expected %s, got %s", i, want, result.DeviceResults[i].Status)
			}
		}
	})

	t.Run("VerifyScanRecord", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/api/scans", server.URL))
		if err != nil {
			t.Fatalf("Failed to get scans: %v", err)
		}
		defer resp.Body.Close()

		var scans []models.Scan
		if err := json.NewDecoder(resp.Body).Decode(&scans); err != nil {
			t.Fatalf("Failed to decode scans response: %v", err)
		}

		if len(scans) != 1 {
			t.Fatalf("Expected 1 scan, got %d", len(scans))
		}
		if scans[0].Online != 1 || scans[0].Degraded != 1 || scans[0].Offline != 1 {
			t.Errorf("Unexpected scan counters: %+v", scans[0])
		}
	})

	t.Run("VerifyDeviceStatuses", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/api/devices", server.URL))
		if err != nil {
			t.Fatalf("Failed to get devices: %v", err)
		}
		defer resp.Body.Close()

		var devices []struct {
			Host       string               `json:"host"`
			LastStatus *models.DeviceStatus `json:"lastStatus"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&devices); err != nil {
			t.Fatalf("Failed to decode devices response: %v", err)
		}

		if len(devices) != 3 {
			t.Fatalf("Expected 3 devices, got %d", len(devices))
		}
		for _, device := range devices {
			if device.LastStatus == nil {
				t.Errorf("Device %s has no last status after scan", device.Host)
			}
		}
	})

	t.Run("VerifyReportFiles", func(t *testing.T) {
		jsonReports, err := filepath.Glob(filepath.Join(cfg.Reporting.OutputDir, "report_*.json"))
		if err != nil || len(jsonReports) != 1 {
			t.Errorf("Expected 1 JSON report, got %d (%v)", len(jsonReports), err)
		}
		htmlReports, err := filepath.Glob(filepath.Join(cfg.Reporting.OutputDir, "report_*.html"))
		if err != nil || len(htmlReports) != 1 {
			t.Errorf("Expected 1 HTML report, got %d (%v)", len(htmlReports), err)
		}
	})

	t.Run("GetScanStatus", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/api/scans/status", server.URL))
		if err != nil {
			t.Fatalf("Failed to get scan status: %v", err)
		}
		defer resp.Body.Close()

		var status map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			t.Fatalf("Failed to decode status response: %v", err)
		}

		if status["status"] != "completed" {
			t.Errorf("Expected status 'completed', got %v", status["status"])
		}
	})
}

// TestDatabaseMaintenanceIntegration tests the database maintenance operations
func TestDatabaseMaintenanceIntegration(t *testing.T) {
	tempDir, _, db, service, _ := setupTestEnvironment(t)
	defer teardownTestEnvironment(tempDir, db)

	if _, err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	t.Run("OptimizeDatabase", func(t *testing.T) {
		if err := db.OptimizeDatabase(); err != nil {
			t.Errorf("Database optimization failed: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM scans").Scan(&count); err != nil {
			t.Errorf("Failed to query database after optimization: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 scan after optimization, got %d", count)
		}
	})

	t.Run("CleanupOldScans", func(t *testing.T) {
		// Age the existing scan past the retention window.
		oldTime := time.Now().Add(-365 * 24 * time.Hour)
		if _, err := db.Exec("UPDATE scans SET timestamp = ?", oldTime); err != nil {
			t.Fatalf("Failed to age scan: %v", err)
		}

		affected, err := db.CleanupOldScans(180)
		if err != nil {
			t.Errorf("Scan cleanup failed: %v", err)
		}
		if affected != 1 {
			t.Errorf("Expected 1 scan cleaned up, got %d", affected)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM device_results").Scan(&count); err != nil {
			t.Errorf("Failed to query device results after cleanup: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected cascade delete of device results, got %d rows", count)
		}

		var exists int
		if err := db.QueryRow("SELECT 1 FROM scans LIMIT 1").Scan(&exists); err != sql.ErrNoRows {
			t.Errorf("Old scan was not cleaned up properly")
		}
	})
}
