// Command lanwatch is a command line client for running device health scans
// without the daemon. It can sweep the configured device list or probe a
// single ad-hoc host, print a colored status table, and optionally write
// report files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lanwatch-monitor/internal/config"
	"lanwatch-monitor/internal/models"
	"lanwatch-monitor/internal/monitor"
	"lanwatch-monitor/internal/probe"
	"lanwatch-monitor/internal/report"
)

// Default ports probed for an ad-hoc host when --ports is not given.
const defaultAdHocPorts = "22,80,443"

type cliOptions struct {
	configPath string
	host       string
	ports      string
	outputDir  string
	loop       bool
	logLevel   string
}

func parseFlags() *cliOptions {
	opts := &cliOptions{}
	flag.StringVar(&opts.configPath, "config", "configs/config.yaml", "Path to configuration file")
	flag.StringVar(&opts.host, "host", "", "Scan a single host instead of the configured devices")
	flag.StringVar(&opts.ports, "ports", defaultAdHocPorts, "Comma-separated ports for --host")
	flag.StringVar(&opts.outputDir, "output", "", "Write JSON and HTML reports to this directory")
	flag.BoolVar(&opts.loop, "loop", false, "Keep scanning at the configured interval until interrupted")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flag.Parse()
	return opts
}

// parsePorts parses a comma-separated port list.
func parsePorts(s string) ([]int, error) {
	var ports []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		port, err := strconv.Atoi(part)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid port: %s", part)
		}
		ports = append(ports, port)
	}
	return ports, nil
}

// loadConfig resolves the effective configuration. With --host the device
// list is replaced by the single ad-hoc target; otherwise the config file
// must exist and carry its own devices.
func loadConfig(opts *cliOptions) (*config.Config, error) {
	if opts.host != "" {
		ports, err := parsePorts(opts.ports)
		if err != nil {
			return nil, err
		}

		cfg := config.Default()
		if loaded, err := config.Load(opts.configPath); err == nil {
			cfg = loaded
		}
		cfg.Scanner.Devices = []models.Device{{Host: opts.host, Ports: ports}}
		cfg.Scanner.EnableScheduler = false
		return cfg, nil
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	cfg.Scanner.EnableScheduler = false
	return cfg, nil
}

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

var statusPrinters = map[models.Status]*color.Color{
	models.StatusOnline:   color.New(color.FgGreen, color.Bold),
	models.StatusDegraded: color.New(color.FgYellow, color.Bold),
	models.StatusOffline:  color.New(color.FgRed, color.Bold),
}

// printResult renders a scan as a status table on stdout.
func printResult(result *models.ScanResult) {
	fmt.Printf("\nScan at %s\n\n", result.Timestamp.Format("2006-01-02 15:04:05"))

	for _, dr := range result.DeviceResults {
		printer, ok := statusPrinters[dr.Status]
		if !ok {
			printer = color.New(color.Reset)
		}

		label := dr.Device.Label
		if label == "" {
			label = dr.Device.Host
		}

		latency := "-"
		if dr.LatencyMs != nil {
			latency = fmt.Sprintf("%.2f ms", *dr.LatencyMs)
		}

		fmt.Printf("  %s  %-24s %-16s %10s", printer.Sprintf("%-8s", dr.Status), label, dr.Device.Host, latency)

		if open := dr.OpenPorts(); len(open) > 0 {
			fmt.Printf("  open: %s", joinPorts(open))
		}
		if closed := dr.ClosedPorts(); len(closed) > 0 {
			fmt.Printf("  closed: %s", joinPorts(closed))
		}
		fmt.Println()
	}

	summary := result.Summary()
	fmt.Printf("\n%d hosts: %s online, %s degraded, %s offline\n",
		summary.Total,
		statusPrinters[models.StatusOnline].Sprintf("%d", summary.Online),
		statusPrinters[models.StatusDegraded].Sprintf("%d", summary.Degraded),
		statusPrinters[models.StatusOffline].Sprintf("%d", summary.Offline),
	)
}

func joinPorts(ports []int) string {
	parts := make([]string, len(ports))
	for i, port := range ports {
		parts[i] = strconv.Itoa(port)
	}
	return strings.Join(parts, ",")
}

func main() {
	opts := parseFlags()

	level, err := zerolog.ParseLevel(opts.logLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lanwatch: %v\n", err)
		os.Exit(1)
	}

	var sinks []report.Sink
	if opts.outputDir != "" {
		if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "lanwatch: %v\n", err)
			os.Exit(1)
		}
		sinks = append(sinks, report.NewJSONSink(opts.outputDir), report.NewHTMLSink(opts.outputDir))
	}

	service := monitor.New(cfg, buildProber(cfg), sinks)

	runScan := func() {
		result, err := service.RunOnce(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "lanwatch: %v\n", err)
			return
		}
		printResult(result)
	}

	runScan()

	if !opts.loop {
		return
	}

	interval, err := cfg.ScanInterval()
	if err != nil || interval <= 0 {
		interval = 60 * time.Second
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runScan()
		case <-signalChan:
			fmt.Println("\nStopping")
			return
		}
	}
}
