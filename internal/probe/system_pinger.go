// internal/probe/system_pinger.go
package probe

import (
	"context"
	"math"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var pingLatencyRegexp = regexp.MustCompile(`time[=<]([0-9.]+)\s*ms`)

// SystemPinger delegates the ICMP echo to the operating system's ping binary.
// Running ping as an external process avoids requiring raw-socket privileges
// in this process. Exit code zero means reachable; everything else, including
// a missing binary or a timeout, means unreachable.
type SystemPinger struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// NewSystemPinger creates a pinger backed by the external ping command.
func NewSystemPinger(timeout time.Duration) *SystemPinger {
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	return &SystemPinger{
		timeout: timeout,
		logger:  log.With().Str("component", "pinger").Str("backend", "system").Logger(),
	}
}

// Ping sends a single ICMP echo via the ping binary and parses the round-trip
// time from its output. When the output format is unrecognized but the exit
// code indicates success, the wall-clock duration of the command is reported
// instead.
func (p *SystemPinger) Ping(ctx context.Context, host string) (bool, *float64) {
	// Give the process slightly longer than the ping timeout itself so the
	// binary gets a chance to exit on its own.
	ctx, cancel := context.WithTimeout(ctx, p.timeout+time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ping", p.args(host)...)

	start := time.Now()
	output, err := cmd.CombinedOutput()
	elapsed := time.Since(start)

	if err != nil {
		p.logger.Debug().Err(err).Str("host", host).Msg("Ping failed")
		return false, nil
	}

	latency := parsePingLatency(string(output))
	if latency == nil {
		wallClock := math.Round(float64(elapsed.Microseconds())/10) / 100
		latency = &wallClock
	}

	return true, latency
}

// args builds the platform-specific ping arguments for a single echo request.
func (p *SystemPinger) args(host string) []string {
	seconds := int(p.timeout.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	if runtime.GOOS == "windows" {
		millis := int(p.timeout.Milliseconds())
		return []string{"-n", "1", "-w", strconv.Itoa(millis), host}
	}
	return []string{"-c", "1", "-W", strconv.Itoa(seconds), host}
}

// parsePingLatency extracts the round-trip time in milliseconds from ping
// output. It understands both the Unix "time=0.345 ms" and the Windows
// "time<1ms" forms. Returns nil when no latency is found.
func parsePingLatency(output string) *float64 {
	matches := pingLatencyRegexp.FindStringSubmatch(output)
	if len(matches) != 2 {
		return nil
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return nil
	}
	return &value
}
