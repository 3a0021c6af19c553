// Package monitor implements the scan orchestration for the Lanwatch monitor.
// It provides a service that sweeps the configured device list on demand or on
// a fixed schedule, probes reachability and ports for each device, derives the
// health status, and hands the assembled scan result to the report sinks.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lanwatch-monitor/internal/config"
	"lanwatch-monitor/internal/health"
	"lanwatch-monitor/internal/models"
	"lanwatch-monitor/internal/report"
)

// DeviceProber is the probe capability required by the orchestrator. Probes
// fail closed and never return errors; see the probe package.
type DeviceProber interface {
	Reachability(ctx context.Context, host string) (reachable bool, latencyMs *float64)
	Port(ctx context.Context, host string, port int) bool
}

// MonitorService represents the periodic health-check service
type MonitorService struct {
	cfg          *config.Config
	prober       DeviceProber
	sinks        []report.Sink
	logger       zerolog.Logger
	scanLock     sync.Mutex
	isScanning   bool
	scanStats    *ScanStats
	scanSchedule *time.Ticker
	stopChan     chan struct{}
}

// ScanStats tracks statistics for the current/last scan cycle
type ScanStats struct {
	StartTime time.Time
	EndTime   time.Time
	Status    string
	Summary   models.ScanSummary
	Error     error
}

// New creates a new monitor service. The device list, probe timeouts, and
// worker pool size all come from the supplied configuration.
func New(cfg *config.Config, prober DeviceProber, sinks []report.Sink) *MonitorService {
	return &MonitorService{
		cfg:    cfg,
		prober: prober,
		sinks:  sinks,
		logger: log.With().Str("component", "monitor").Logger(),
		scanStats: &ScanStats{
			Status: "idle",
		},
		stopChan: make(chan struct{}),
	}
}

// Start initializes the service and, when enabled, the scan scheduler.
// It fails when no devices are configured: that is the one fatal condition
// that halts the orchestrator before any scan begins.
func (s *MonitorService) Start() error {
	s.logger.Info().Msg("Starting monitor service")

	if len(s.cfg.Scanner.Devices) == 0 {
		return fmt.Errorf("no devices configured")
	}

	if s.cfg.Scanner.EnableScheduler {
		s.StartScheduler()
	}

	return nil
}

// Stop gracefully stops the monitor service
func (s *MonitorService) Stop() error {
	s.logger.Info().Msg("Stopping monitor service")

	if s.scanSchedule != nil {
		s.scanSchedule.Stop()
		close(s.stopChan)
	}

	// If a scan is in progress, let it finish
	s.scanLock.Lock()
	defer s.scanLock.Unlock()

	return nil
}

// StartScheduler initiates the periodic scan loop based on configuration.
// The interval is measured from the start of one cycle to the start of the
// next; a cycle that overruns the interval costs a skipped tick, never a
// compounding delay.
func (s *MonitorService) StartScheduler() {
	s.scanLock.Lock()
	defer s.scanLock.Unlock()

	interval, err := s.cfg.ScanInterval()
	if err != nil || interval <= 0 {
		s.logger.Error().Err(err).Msg("Invalid scan interval in config, using default 60s")
		interval = 60 * time.Second
	}

	s.logger.Info().Str("interval", interval.String()).Msg("Starting scan scheduler")

	if s.scanSchedule != nil {
		s.scanSchedule.Stop()
	}

	s.scanSchedule = time.NewTicker(interval)

	go func() {
		// Run initial scan immediately
		s.RunOnce(context.Background())

		for {
			select {
			case <-s.scanSchedule.C:
				s.logger.Debug().Msg("Running scheduled scan")
				s.RunOnce(context.Background())
			case <-s.stopChan:
				s.logger.Info().Msg("Scan scheduler stopped")
				return
			}
		}
	}()
}

// GetStatus returns the current monitor status
func (s *MonitorService) GetStatus() ScanStats {
	s.scanLock.Lock()
	defer s.scanLock.Unlock()

	return *s.scanStats
}

// RunOnce performs one full scan cycle: every configured device is probed,
// evaluated, and assembled into a single ScanResult, which is then handed to
// every sink. A device failing every probe is reported as OFFLINE, never as
// an error; a sink failure is logged and does not affect the returned result
// or the next scheduled cycle.
func (s *MonitorService) RunOnce(ctx context.Context) (*models.ScanResult, error) {
	// Ensure only one scan runs at a time
	s.scanLock.Lock()
	if s.isScanning {
		s.scanLock.Unlock()
		return nil, fmt.Errorf("a scan is already in progress")
	}

	devices := s.cfg.Scanner.Devices
	if len(devices) == 0 {
		s.scanLock.Unlock()
		return nil, fmt.Errorf("no devices configured")
	}

	s.isScanning = true
	s.scanStats = &ScanStats{
		StartTime: time.Now(),
		Status:    "running",
	}
	s.scanLock.Unlock()

	defer func() {
		s.scanLock.Lock()
		s.isScanning = false
		s.scanStats.EndTime = time.Now()
		s.scanLock.Unlock()
	}()

	s.logger.Info().Int("devices", len(devices)).Msg("Starting scan cycle")

	started := time.Now()
	result := &models.ScanResult{
		Timestamp:     started,
		DeviceResults: s.probeAll(ctx, devices),
	}

	summary := result.Summary()
	duration := time.Since(started)

	s.publish(result)

	if s.cfg.Reporting.RetentionDays > 0 {
		if err := report.CleanReportFiles(s.cfg.Reporting.OutputDir, s.cfg.Reporting.RetentionDays); err != nil {
			s.logger.Warn().Err(err).Msg("Report retention sweep failed")
		}
	}

	s.scanLock.Lock()
	s.scanStats.Status = "completed"
	s.scanStats.Summary = summary
	s.scanLock.Unlock()

	s.logger.Info().
		Int("online", summary.Online).
		Int("degraded", summary.Degraded).
		Int("offline", summary.Offline).
		Dur("duration", duration).
		Msg("Scan cycle completed")

	return result, nil
}

// probeAll fans the per-device work out to a bounded worker pool and gathers
// the results by index, so the output order always matches the configured
// device order regardless of completion order.
func (s *MonitorService) probeAll(ctx context.Context, devices []models.Device) []models.DeviceResult {
	results := make([]models.DeviceResult, len(devices))

	concurrency := s.cfg.Scanner.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(devices) {
		concurrency = len(devices)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.probeDevice(ctx, devices[i])
			}
		}()
	}

	for i := range devices {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// probeDevice runs the probe-and-evaluate unit of work for one device.
// Port probing is skipped entirely for unreachable devices; their port
// results stay empty.
func (s *MonitorService) probeDevice(ctx context.Context, device models.Device) models.DeviceResult {
	reachable, latency := s.prober.Reachability(ctx, device.Host)

	portResults := make([]models.PortCheckResult, 0, len(device.Ports))
	if reachable {
		for _, port := range device.Ports {
			portResults = append(portResults, models.PortCheckResult{
				Port: port,
				Open: s.prober.Port(ctx, device.Host, port),
			})
		}
	}

	result := models.DeviceResult{
		Device:      device,
		Reachable:   reachable,
		LatencyMs:   latency,
		PortResults: portResults,
		Status:      health.Evaluate(reachable, portResults),
	}

	s.logger.Debug().
		Str("host", device.Host).
		Str("label", device.Label).
		Str("status", string(result.Status)).
		Msg("Device probed")

	return result
}

// publish hands the finished scan result to every sink in order. A failing
// sink is logged and skipped; it never aborts the cycle.
func (s *MonitorService) publish(result *models.ScanResult) {
	for _, sink := range s.sinks {
		if err := sink.Write(result); err != nil {
			s.logger.Error().Err(err).Msg("Report sink failed")
		}
	}
}
