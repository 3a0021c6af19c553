// Command lanwatchd is the main executable for the Lanwatch monitor backend
// service. It initializes the database, monitor service, and HTTP API server,
// and handles graceful shutdown when terminated.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"lanwatch-monitor/internal/api"
	"lanwatch-monitor/internal/config"
	"lanwatch-monitor/internal/logging"
	"lanwatch-monitor/internal/monitor"
	"lanwatch-monitor/internal/probe"
	"lanwatch-monitor/internal/report"
	"lanwatch-monitor/internal/store"
)

// Global variables for command line flags
var logLevelFlag string

// parseFlags parses command line flags and returns the config path
func parseFlags() string {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.StringVar(&logLevelFlag, "log-level", "", "Log level override (debug, info, warn, error)")
	flag.Parse()
	return *configPath
}

// buildProber constructs the device prober selected by the configuration.
func buildProber(cfg *config.Config) *probe.Prober {
	var pinger probe.Pinger
	switch cfg.Scanner.Pinger {
	case config.PingerNative:
		pinger = probe.NewNativePinger(cfg.PingTimeout())
	default:
		pinger = probe.NewSystemPinger(cfg.PingTimeout())
	}
	return probe.New(pinger, cfg.PortTimeout())
}

// buildSinks constructs the report sinks enabled by the configuration. The
// store sink is always present so every scan is queryable through the API.
func buildSinks(cfg *config.Config, db *store.DB) []report.Sink {
	sinks := []report.Sink{report.NewStoreSink(db)}
	for _, format := range cfg.Reporting.Formats {
		switch format {
		case "json":
			sinks = append(sinks, report.NewJSONSink(cfg.Reporting.OutputDir))
		case "html":
			sinks = append(sinks, report.NewHTMLSink(cfg.Reporting.OutputDir))
		}
	}
	return sinks
}

func main() {
	// Parse command line flags
	configPath := parseFlags()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
	}

	// Configure logging; the command line flag wins over the config file
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	logging.Setup(cfg)

	log.Info().Msg("Starting Lanwatch network monitor")

	// Initialize database
	log.Info().Str("path", cfg.Database.Path).Msg("Initializing database")
	db, err := store.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Drop scans past the retention window before accepting new ones
	if cfg.Database.RetentionDays > 0 {
		removed, err := db.CleanupOldScans(cfg.Database.RetentionDays)
		if err != nil {
			log.Error().Err(err).Msg("Failed to clean up old scans")
		} else if removed > 0 {
			log.Info().Int64("removed", removed).Msg("Cleaned up old scans")
		}
	}

	// Initialize monitor service
	log.Info().
		Int("devices", len(cfg.Scanner.Devices)).
		Str("pinger", cfg.Scanner.Pinger).
		Msg("Initializing monitor service")
	service := monitor.New(cfg, buildProber(cfg), buildSinks(cfg, db))

	if err := service.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start monitor service")
	}

	// Initialize router and API handlers
	router := mux.NewRouter()

	scanHandler := api.NewScanHandler(service, db)
	deviceHandler := api.NewDeviceHandler(cfg, db)
	statusHandler := api.NewStatusHandler(db, service, cfg)

	scanHandler.RegisterRoutes(router)
	deviceHandler.RegisterRoutes(router)
	statusHandler.RegisterRoutes(router)

	// Set up CORS
	corsMiddleware := handlers.CORS(
		handlers.AllowedOrigins(cfg.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	// Set up HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      corsMiddleware(router),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Set up signal handling for graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for termination signal
	sig := <-signalChan
	log.Info().Str("signal", sig.String()).Msg("Received termination signal")

	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown HTTP server
	log.Info().Msg("Shutting down HTTP server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Stop monitor service
	log.Info().Msg("Stopping monitor service")
	if err := service.Stop(); err != nil {
		log.Error().Err(err).Msg("Monitor service shutdown failed")
	}

	// Optimize database before exit
	log.Info().Msg("Optimizing database before exit")
	if err := db.OptimizeDatabase(); err != nil {
		log.Error().Err(err).Msg("Database optimization failed")
	}

	log.Info().Msg("Lanwatch has been shut down gracefully")
}
