// Package config manages the Lanwatch monitor application configuration.
// It handles loading and validating configuration from YAML files and
// includes defaults for all settings. Configuration is an explicit value
// passed to the components that need it; there is no process-global instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"lanwatch-monitor/internal/models"
)

// Pinger backend names accepted by Scanner.Pinger.
const (
	PingerSystem = "system"
	PingerNative = "native"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port            int      `yaml:"port"`
		Host            string   `yaml:"host"`
		AllowedOrigins  []string `yaml:"allowedOrigins"`
		ReadTimeout     int      `yaml:"readTimeout"`
		WriteTimeout    int      `yaml:"writeTimeout"`
		ShutdownTimeout int      `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Scanner struct {
		Interval        string          `yaml:"interval"`
		PingTimeout     string          `yaml:"pingTimeout"`
		PortTimeout     string          `yaml:"portTimeout"`
		Concurrency     int             `yaml:"concurrency"`
		Pinger          string          `yaml:"pinger"`
		EnableScheduler bool            `yaml:"enableScheduler"`
		Devices         []models.Device `yaml:"devices"`
	} `yaml:"scanner"`

	Reporting struct {
		OutputDir     string   `yaml:"outputDir"`
		Formats       []string `yaml:"formats"`
		RetentionDays int      `yaml:"retentionDays"`
	} `yaml:"reporting"`

	Database struct {
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retentionDays"`
	} `yaml:"database"`

	Logging struct {
		Level      string `yaml:"level"`
		OutputPath string `yaml:"outputPath"`
		MaxSize    int    `yaml:"maxSize"`
		MaxBackups int    `yaml:"maxBackups"`
		MaxAge     int    `yaml:"maxAge"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logging"`
}

// Default returns a configuration populated with default values.
func Default() *Config {
	c := &Config{}

	// Server defaults
	c.Server.Port = 8080
	c.Server.Host = "127.0.0.1"
	c.Server.AllowedOrigins = []string{"*"}
	c.Server.ReadTimeout = 30
	c.Server.WriteTimeout = 30
	c.Server.ShutdownTimeout = 10

	// Scanner defaults
	c.Scanner.Interval = "60s"
	c.Scanner.PingTimeout = "1s"
	c.Scanner.PortTimeout = "500ms"
	c.Scanner.Concurrency = 1
	c.Scanner.Pinger = PingerSystem
	c.Scanner.EnableScheduler = true

	// Reporting defaults
	c.Reporting.OutputDir = "./data/reports"
	c.Reporting.Formats = []string{"json", "html"}
	c.Reporting.RetentionDays = 30

	// Database defaults
	c.Database.Path = "./data/lanwatch.db"
	c.Database.RetentionDays = 90

	// Logging defaults
	c.Logging.Level = "info"
	c.Logging.MaxSize = 10 // MB
	c.Logging.MaxBackups = 5
	c.Logging.MaxAge = 30 // days
	c.Logging.Compress = true

	return c
}

// Load reads a YAML configuration file on top of the defaults, creates the
// directories it references, and validates the result.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file does not exist: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file: %w", err)
	}

	dirs := []string{
		c.Reporting.OutputDir,
		filepath.Dir(c.Database.Path),
	}
	if c.Logging.OutputPath != "" {
		dirs = append(dirs, filepath.Dir(c.Logging.OutputPath))
	}

	for _, dir := range dirs {
		if dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return c, nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	// Scanner validation
	if c.Scanner.Interval != "" {
		if _, err := time.ParseDuration(c.Scanner.Interval); err != nil {
			return fmt.Errorf("invalid scan interval: %s", c.Scanner.Interval)
		}
	}

	if c.Scanner.PingTimeout != "" {
		if _, err := time.ParseDuration(c.Scanner.PingTimeout); err != nil {
			return fmt.Errorf("invalid ping timeout: %s", c.Scanner.PingTimeout)
		}
	}

	if c.Scanner.PortTimeout != "" {
		if _, err := time.ParseDuration(c.Scanner.PortTimeout); err != nil {
			return fmt.Errorf("invalid port timeout: %s", c.Scanner.PortTimeout)
		}
	}

	if c.Scanner.Concurrency < 1 {
		return fmt.Errorf("invalid scanner concurrency: %d", c.Scanner.Concurrency)
	}

	if c.Scanner.Pinger != PingerSystem && c.Scanner.Pinger != PingerNative {
		return fmt.Errorf("invalid pinger backend: %s", c.Scanner.Pinger)
	}

	// Device list validation. An empty or malformed device list is a fatal
	// condition: the monitor must not start without targets.
	if len(c.Scanner.Devices) == 0 {
		return errors.New("no devices configured")
	}

	for i, device := range c.Scanner.Devices {
		if device.Host == "" {
			return fmt.Errorf("device %d has no host", i)
		}
		for _, port := range device.Ports {
			if port <= 0 || port > 65535 {
				return fmt.Errorf("device %s has invalid port: %d", device.Host, port)
			}
		}
	}

	// Reporting validation
	for _, format := range c.Reporting.Formats {
		if format != "json" && format != "html" {
			return fmt.Errorf("invalid report format: %s", format)
		}
	}

	// Database validation
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	return nil
}

// ScanInterval returns the scan interval as a parsed duration.
func (c *Config) ScanInterval() (time.Duration, error) {
	return time.ParseDuration(c.Scanner.Interval)
}

// PingTimeout returns the reachability probe timeout as a parsed duration.
func (c *Config) PingTimeout() time.Duration {
	d, err := time.ParseDuration(c.Scanner.PingTimeout)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// PortTimeout returns the port probe timeout as a parsed duration.
func (c *Config) PortTimeout() time.Duration {
	d, err := time.ParseDuration(c.Scanner.PortTimeout)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}
