// Package report renders completed scan cycles to durable formats. Sinks are
// invoked synchronously after each scan cycle; a sink failure is reported to
// the caller but must never prevent the next cycle from running.
package report

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lanwatch-monitor/internal/models"
	"lanwatch-monitor/internal/store"
)

// Sink consumes one fully-formed, immutable scan result per cycle.
type Sink interface {
	Write(result *models.ScanResult) error
}

// StoreSink persists scan results into the scan history database.
type StoreSink struct {
	db *store.DB
}

// NewStoreSink creates a sink backed by the scan history store.
func NewStoreSink(db *store.DB) *StoreSink {
	return &StoreSink{db: db}
}

// Write saves the scan result. The recorded duration is derived from the scan
// timestamp since sinks run right after the cycle completes.
func (s *StoreSink) Write(result *models.ScanResult) error {
	_, err := s.db.SaveScanResult(result, time.Since(result.Timestamp))
	return err
}

// CleanReportFiles removes report files older than the retention period.
func CleanReportFiles(dir string, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}

	logger := log.With().Str("component", "report").Logger()
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		if info.ModTime().Before(cutoff) {
			logger.Debug().Str("file", path).Msg("Removing old report file")
			if err := os.Remove(path); err != nil {
				logger.Error().Err(err).Str("file", path).Msg("Failed to remove old report file")
			}
		}

		return nil
	})
}

func reportLogger(format string) zerolog.Logger {
	return log.With().Str("component", "report").Str("format", format).Logger()
}
