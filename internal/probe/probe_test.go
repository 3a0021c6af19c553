// internal/probe/probe_test.go
package probe

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// staticPinger is a test double that always returns the configured outcome.
type staticPinger struct {
	reachable bool
	latencyMs *float64
}

func (p *staticPinger) Ping(ctx context.Context, host string) (bool, *float64) {
	return p.reachable, p.latencyMs
}

func TestPortOpen(t *testing.T) {
	// Listen on an ephemeral port so the probe has something to connect to.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to open listener: %v", err)
	}
	defer listener.Close()

	port := listener.Addr().(*net.TCPAddr).Port

	prober := New(&staticPinger{reachable: true}, DefaultPortTimeout)
	if !prober.Port(context.Background(), "127.0.0.1", port) {
		t.Errorf("Expected port %d to be reported open", port)
	}
}

func TestPortClosed(t *testing.T) {
	// Grab an ephemeral port and close it again so nothing is listening.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to open listener: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	prober := New(&staticPinger{reachable: true}, DefaultPortTimeout)
	if prober.Port(context.Background(), "127.0.0.1", port) {
		t.Errorf("Expected port %d to be reported closed", port)
	}
}

func TestPortTimeoutFailsClosed(t *testing.T) {
	// RFC 5737 TEST-NET address: never routable, so the dial must time out.
	prober := New(&staticPinger{reachable: true}, 50*time.Millisecond)

	start := time.Now()
	open := prober.Port(context.Background(), "192.0.2.1", 80)
	elapsed := time.Since(start)

	if open {
		t.Errorf("Expected probe against unroutable host to report closed")
	}

	if elapsed > 2*time.Second {
		t.Errorf("Probe took %v, expected it to respect the dial timeout", elapsed)
	}
}

func TestReachabilityDelegatesToPinger(t *testing.T) {
	latency := 12.5
	prober := New(&staticPinger{reachable: true, latencyMs: &latency}, DefaultPortTimeout)

	reachable, got := prober.Reachability(context.Background(), "10.0.0.1")
	if !reachable {
		t.Errorf("Expected reachable=true")
	}
	if got == nil || *got != latency {
		t.Errorf("Expected latency %v, got %v", latency, got)
	}
}

func TestParsePingLatency(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   *float64
	}{
		{
			name:   "linux reply line",
			output: "64 bytes from 192.168.1.1: icmp_seq=1 ttl=64 time=0.345 ms",
			want:   floatPtr(0.345),
		},
		{
			name:   "windows sub-millisecond reply",
			output: "Reply from 192.168.1.1: bytes=32 time<1ms TTL=64",
			want:   floatPtr(1),
		},
		{
			name:   "no reply line",
			output: "1 packets transmitted, 0 received, 100% packet loss",
			want:   nil,
		},
		{
			name:   "empty output",
			output: "",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePingLatency(tt.output)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("parsePingLatency(%q) = %v, want %v", tt.output, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("parsePingLatency(%q) = %v, want %v", tt.output, *got, *tt.want)
			}
		})
	}
}

// TestSystemPingerMissingBinary verifies the prober fails closed when no ping
// binary can be found on PATH.
func TestSystemPingerMissingBinary(t *testing.T) {
	emptyDir := t.TempDir()
	t.Setenv("PATH", emptyDir)

	pinger := NewSystemPinger(time.Second)
	reachable, latency := pinger.Ping(context.Background(), "127.0.0.1")

	if reachable {
		t.Errorf("Expected reachable=false with no ping binary available")
	}
	if latency != nil {
		t.Errorf("Expected nil latency with no ping binary available, got %v", *latency)
	}
}

// TestSystemPingerMockBinary runs the system pinger against a fake ping
// script that prints a canned reply.
func TestSystemPingerMockBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Shell script mock not available on Windows")
	}

	tempDir := t.TempDir()
	script := `#!/bin/sh
echo "64 bytes from 10.1.2.3: icmp_seq=1 ttl=64 time=4.20 ms"
exit 0
`
	scriptPath := filepath.Join(tempDir, "ping")
	if err := os.WriteFile(scriptPath, []byte(script), 0755); err != nil {
		t.Fatalf("Failed to write mock ping script: %v", err)
	}
	t.Setenv("PATH", tempDir)

	pinger := NewSystemPinger(time.Second)
	reachable, latency := pinger.Ping(context.Background(), "10.1.2.3")

	if !reachable {
		t.Fatalf("Expected reachable=true from mock ping")
	}
	if latency == nil || *latency != 4.20 {
		t.Errorf("Expected latency 4.20, got %v", latency)
	}
}

// TestSystemPingerFailureExit verifies a non-zero ping exit code is treated
// as unreachable rather than an error.
func TestSystemPingerFailureExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Shell script mock not available on Windows")
	}

	tempDir := t.TempDir()
	script := `#!/bin/sh
echo "1 packets transmitted, 0 received, 100% packet loss"
exit 1
`
	scriptPath := filepath.Join(tempDir, "ping")
	if err := os.WriteFile(scriptPath, []byte(script), 0755); err != nil {
		t.Fatalf("Failed to write mock ping script: %v", err)
	}
	t.Setenv("PATH", tempDir)

	pinger := NewSystemPinger(time.Second)
	reachable, latency := pinger.Ping(context.Background(), "10.1.2.3")

	if reachable {
		t.Errorf("Expected reachable=false for non-zero ping exit")
	}
	if latency != nil {
		t.Errorf("Expected nil latency for failed ping, got %v", *latency)
	}
}

func floatPtr(v float64) *float64 {
	return &v
}
