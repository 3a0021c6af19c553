// Package store provides the scan history store for the Lanwatch monitor.
// It persists completed scan cycles in a SQLite database and reconstructs
// them for the API, including per-device and per-port probe outcomes.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lanwatch-monitor/internal/models"
)

// DB represents the scan history database connection
type DB struct {
	*sql.DB
	Path   string // Exported for integration tests
	logger *zerolog.Logger
	sync.Mutex
}

// New creates a new scan history store backed by SQLite at the given path.
func New(path string) (*DB, error) {
	// Ensure directory exists
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports only one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	logger := log.With().Str("component", "store").Logger()

	dbInstance := &DB{
		DB:     db,
		Path:   path,
		logger: &logger,
	}

	if err := dbInstance.initializeDB(); err != nil {
		db.Close()
		return nil, err
	}

	if err := dbInstance.optimizeDB(); err != nil {
		logger.Warn().Err(err).Msg("Failed to set some database optimization parameters")
	}

	return dbInstance, nil
}

// Initialize database schema
func (db *DB) initializeDB() error {
	db.logger.Info().Msg("Initializing database schema")

	schema := `
	-- Scan cycles
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TIMESTAMP NOT NULL,
		duration_ms INTEGER NOT NULL,
		device_count INTEGER NOT NULL,
		online INTEGER NOT NULL,
		degraded INTEGER NOT NULL,
		offline INTEGER NOT NULL
	);

	-- Per-device outcomes, one row per configured device per scan
	CREATE TABLE IF NOT EXISTS device_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		host TEXT NOT NULL,
		label TEXT NOT NULL,
		reachable INTEGER NOT NULL,
		latency_ms REAL,
		status TEXT NOT NULL,
		FOREIGN KEY (scan_id) REFERENCES scans(id) ON DELETE CASCADE
	);

	-- Per-port outcomes, one row per probed port per device result
	CREATE TABLE IF NOT EXISTS port_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_result_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		port INTEGER NOT NULL,
		open INTEGER NOT NULL,
		FOREIGN KEY (device_result_id) REFERENCES device_results(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_scans_timestamp ON scans(timestamp);
	CREATE INDEX IF NOT EXISTS idx_device_results_scan ON device_results(scan_id, position);
	CREATE INDEX IF NOT EXISTS idx_port_results_device ON port_results(device_result_id, position);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return nil
}

// optimizeDB applies PRAGMA settings for performance and integrity
func (db *DB) optimizeDB() error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

// SaveScanResult persists one completed scan cycle with all of its device and
// port results in a single transaction.
func (db *DB) SaveScanResult(result *models.ScanResult, duration time.Duration) (int64, error) {
	db.Lock()
	defer db.Unlock()

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	summary := result.Summary()

	res, err := tx.Exec(`
		INSERT INTO scans (timestamp, duration_ms, device_count, online, degraded, offline)
		VALUES (?, ?, ?, ?, ?, ?)`,
		result.Timestamp, duration.Milliseconds(), summary.Total,
		summary.Online, summary.Degraded, summary.Offline,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert scan: %w", err)
	}

	scanID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get scan ID: %w", err)
	}

	for i, dr := range result.DeviceResults {
		res, err := tx.Exec(`
			INSERT INTO device_results (scan_id, position, host, label, reachable, latency_ms, status)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			scanID, i, dr.Device.Host, dr.Device.Label, dr.Reachable, dr.LatencyMs, string(dr.Status),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert device result for %s: %w", dr.Device.Host, err)
		}

		deviceResultID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to get device result ID: %w", err)
		}

		for j, pr := range dr.PortResults {
			if _, err := tx.Exec(`
				INSERT INTO port_results (device_result_id, position, port, open)
				VALUES (?, ?, ?, ?)`,
				deviceResultID, j, pr.Port, pr.Open,
			); err != nil {
				return 0, fmt.Errorf("failed to insert port result %d for %s: %w", pr.Port, dr.Device.Host, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit scan result: %w", err)
	}

	db.logger.Debug().
		Int64("scanID", scanID).
		Int("devices", summary.Total).
		Msg("Scan result persisted")

	return scanID, nil
}

// GetScan retrieves a persisted scan summary by ID
func (db *DB) GetScan(scanID int64) (*models.Scan, error) {
	scan := &models.Scan{}
	err := db.QueryRow(`
		SELECT id, timestamp, duration_ms, device_count, online, degraded, offline
		FROM scans WHERE id = ?`, scanID,
	).Scan(&scan.ID, &scan.Timestamp, &scan.DurationMs, &scan.DeviceCount,
		&scan.Online, &scan.Degraded, &scan.Offline)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("scan %d not found", scanID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query scan %d: %w", scanID, err)
	}

	return scan, nil
}

// GetScanDetails retrieves a persisted scan together with its device and port
// results, in the order they were recorded.
func (db *DB) GetScanDetails(scanID int64) (*models.ScanDetails, error) {
	scan, err := db.GetScan(scanID)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT id, host, label, reachable, latency_ms, status
		FROM device_results
		WHERE scan_id = ?
		ORDER BY position`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query device results: %w", err)
	}
	defer rows.Close()

	details := &models.ScanDetails{Scan: *scan}
	deviceResultIDs := []int64{}

	for rows.Next() {
		var id int64
		var dr models.DeviceResult
		var status string
		if err := rows.Scan(&id, &dr.Device.Host, &dr.Device.Label, &dr.Reachable, &dr.LatencyMs, &status); err != nil {
			return nil, fmt.Errorf("failed to scan device result row: %w", err)
		}
		dr.Status = models.Status(status)
		dr.PortResults = []models.PortCheckResult{}
		details.DeviceResults = append(details.DeviceResults, dr)
		deviceResultIDs = append(deviceResultIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device result rows: %w", err)
	}

	for i, deviceResultID := range deviceResultIDs {
		portRows, err := db.Query(`
			SELECT port, open FROM port_results
			WHERE device_result_id = ?
			ORDER BY position`, deviceResultID)
		if err != nil {
			return nil, fmt.Errorf("failed to query port results: %w", err)
		}

		for portRows.Next() {
			var pr models.PortCheckResult
			if err := portRows.Scan(&pr.Port, &pr.Open); err != nil {
				portRows.Close()
				return nil, fmt.Errorf("failed to scan port result row: %w", err)
			}
			details.DeviceResults[i].PortResults = append(details.DeviceResults[i].PortResults, pr)
			details.DeviceResults[i].Device.Ports = append(details.DeviceResults[i].Device.Ports, pr.Port)
		}
		if err := portRows.Err(); err != nil {
			portRows.Close()
			return nil, fmt.Errorf("error iterating port result rows: %w", err)
		}
		portRows.Close()
	}

	return details, nil
}

// GetRecentScans retrieves the most recent scan summaries, newest first.
func (db *DB) GetRecentScans(limit int) ([]*models.Scan, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := db.Query(`
		SELECT id, timestamp, duration_ms, device_count, online, degraded, offline
		FROM scans
		ORDER BY timestamp DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent scans: %w", err)
	}
	defer rows.Close()

	scans := []*models.Scan{}
	for rows.Next() {
		scan := &models.Scan{}
		if err := rows.Scan(&scan.ID, &scan.Timestamp, &scan.DurationMs, &scan.DeviceCount,
			&scan.Online, &scan.Degraded, &scan.Offline); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scans = append(scans, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scan rows: %w", err)
	}

	return scans, nil
}

// GetLatestScanDetails retrieves the most recent scan with full results.
// Returns sql.ErrNoRows wrapped when no scan has been recorded yet.
func (db *DB) GetLatestScanDetails() (*models.ScanDetails, error) {
	var scanID int64
	err := db.QueryRow(`SELECT id FROM scans ORDER BY timestamp DESC, id DESC LIMIT 1`).Scan(&scanID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no scans recorded yet: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest scan: %w", err)
	}

	return db.GetScanDetails(scanID)
}

// DeviceStatuses returns the last recorded state of every device present in
// the most recent scan.
func (db *DB) DeviceStatuses() ([]models.DeviceStatus, error) {
	rows, err := db.Query(`
		SELECT dr.host, dr.label, dr.status, dr.reachable, dr.latency_ms, s.timestamp
		FROM device_results dr
		JOIN scans s ON s.id = dr.scan_id
		WHERE dr.scan_id = (SELECT id FROM scans ORDER BY timestamp DESC, id DESC LIMIT 1)
		ORDER BY dr.position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query device statuses: %w", err)
	}
	defer rows.Close()

	statuses := []models.DeviceStatus{}
	for rows.Next() {
		var ds models.DeviceStatus
		var status string
		if err := rows.Scan(&ds.Host, &ds.Label, &status, &ds.Reachable, &ds.LatencyMs, &ds.LastChecked); err != nil {
			return nil, fmt.Errorf("failed to scan device status row: %w", err)
		}
		ds.Status = models.Status(status)
		statuses = append(statuses, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device status rows: %w", err)
	}

	return statuses, nil
}

// CleanupOldScans removes scans older than the retention period. Device and
// port results cascade via foreign keys.
func (db *DB) CleanupOldScans(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	res, err := db.Exec(`DELETE FROM scans WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old scans: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted scans: %w", err)
	}

	if deleted > 0 {
		db.logger.Info().Int64("deleted", deleted).Int("retentionDays", retentionDays).Msg("Removed old scans")
	}

	return deleted, nil
}

// GetStats returns summary statistics about the store for the status API.
func (db *DB) GetStats() (map[string]interface{}, error) {
	stats := map[string]interface{}{}

	var scanCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM scans`).Scan(&scanCount); err != nil {
		return nil, fmt.Errorf("failed to count scans: %w", err)
	}
	stats["scanCount"] = scanCount

	var lastScanTime sql.NullTime
	if err := db.QueryRow(`SELECT MAX(timestamp) FROM scans`).Scan(&lastScanTime); err != nil {
		return nil, fmt.Errorf("failed to query last scan time: %w", err)
	}
	if lastScanTime.Valid {
		stats["lastScanTime"] = lastScanTime.Time
	}

	if db.Path != ":memory:" {
		if info, err := os.Stat(db.Path); err == nil {
			stats["sizeBytes"] = info.Size()
		}
	}

	return stats, nil
}

// OptimizeDatabase reclaims free pages before shutdown
func (db *DB) OptimizeDatabase() error {
	db.Lock()
	defer db.Unlock()

	if _, err := db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}
