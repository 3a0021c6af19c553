// Package logging configures the global zerolog logger for the Lanwatch
// binaries: colored console output by default, with optional rotated file
// output when a log path is configured.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"lanwatch-monitor/internal/config"
)

// Setup configures the global logger from the logging section of the
// configuration. An unknown level falls back to info.
func Setup(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

	if cfg.Logging.OutputPath == "" {
		log.Logger = log.Output(console)
		return
	}

	fileWriter := &lumberjack.Logger{
		Filename:   cfg.Logging.OutputPath,
		MaxSize:    cfg.Logging.MaxSize, // MB
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge, // days
		Compress:   cfg.Logging.Compress,
	}

	log.Logger = log.Output(io.MultiWriter(console, fileWriter))
}
