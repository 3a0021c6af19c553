// internal/probe/native_pinger.go
package probe

import (
	"context"
	"time"

	"github.com/go-ping/ping"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NativePinger sends ICMP echoes in-process using go-ping in unprivileged
// UDP mode. It requires no external binary, but on Linux the kernel must
// allow unprivileged ping (net.ipv4.ping_group_range).
type NativePinger struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// NewNativePinger creates an in-process ICMP pinger.
func NewNativePinger(timeout time.Duration) *NativePinger {
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	return &NativePinger{
		timeout: timeout,
		logger:  log.With().Str("component", "pinger").Str("backend", "native").Logger(),
	}
}

// Ping sends a single echo request and reports the measured round-trip time.
// Resolution failures, socket errors, and packet loss all report unreachable.
func (p *NativePinger) Ping(ctx context.Context, host string) (bool, *float64) {
	pinger, err := ping.NewPinger(host)
	if err != nil {
		p.logger.Debug().Err(err).Str("host", host).Msg("Failed to resolve ping target")
		return false, nil
	}

	pinger.Count = 1
	pinger.Timeout = p.timeout
	pinger.SetPrivileged(false)

	if err := pinger.Run(); err != nil {
		p.logger.Debug().Err(err).Str("host", host).Msg("Ping failed")
		return false, nil
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return false, nil
	}

	latency := float64(stats.AvgRtt.Microseconds()) / 1000.0
	return true, &latency
}
