// Package probe implements the reachability and port checks used by the
// Lanwatch monitor. A probe is a single attempt against one target: there are
// no retries, and a failed probe is final for that scan cycle. Probes fail
// closed — any error, timeout, or unparseable output is reported as
// unreachable or closed, never as an error to the caller.
package probe

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Default probe timeouts.
const (
	DefaultPingTimeout = 1 * time.Second
	DefaultPortTimeout = 500 * time.Millisecond
)

// Pinger performs a single ICMP reachability check against one host.
// Implementations must not return errors: an unreachable host, a missing ping
// facility, or garbled output all report reachable=false with a nil latency.
type Pinger interface {
	Ping(ctx context.Context, host string) (reachable bool, latencyMs *float64)
}

// Prober bundles the reachability and port checks performed against one
// device. It is stateless and safe for concurrent use.
type Prober struct {
	pinger      Pinger
	portTimeout time.Duration
	logger      zerolog.Logger
}

// New creates a prober using the given ICMP backend for reachability checks.
func New(pinger Pinger, portTimeout time.Duration) *Prober {
	if portTimeout <= 0 {
		portTimeout = DefaultPortTimeout
	}
	return &Prober{
		pinger:      pinger,
		portTimeout: portTimeout,
		logger:      log.With().Str("component", "probe").Logger(),
	}
}

// Reachability reports whether the host answers an ICMP echo, with the
// round-trip time in milliseconds when it does.
func (p *Prober) Reachability(ctx context.Context, host string) (bool, *float64) {
	return p.pinger.Ping(ctx, host)
}

// Port reports whether a TCP connection to (host, port) completes within the
// configured timeout. Connection errors of any kind report a closed port.
func (p *Prober) Port(ctx context.Context, host string, port int) bool {
	dialer := net.Dialer{Timeout: p.portTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		p.logger.Debug().Err(err).Str("host", host).Int("port", port).Msg("Port probe failed")
		return false
	}
	conn.Close()
	return true
}
