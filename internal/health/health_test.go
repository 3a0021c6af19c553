// internal/health/health_test.go
package health

import (
	"testing"

	"lanwatch-monitor/internal/models"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name        string
		reachable   bool
		portResults []models.PortCheckResult
		want        models.Status
	}{
		{
			name:      "unreachable with no ports",
			reachable: false,
			want:      models.StatusOffline,
		},
		{
			name:      "unreachable dominates even when all ports open",
			reachable: false,
			portResults: []models.PortCheckResult{
				{Port: 22, Open: true},
				{Port: 80, Open: true},
			},
			want: models.StatusOffline,
		},
		{
			name:      "reachable with no configured ports",
			reachable: true,
			want:      models.StatusOnline,
		},
		{
			name:      "reachable with all ports open",
			reachable: true,
			portResults: []models.PortCheckResult{
				{Port: 22, Open: true},
				{Port: 80, Open: true},
				{Port: 443, Open: true},
			},
			want: models.StatusOnline,
		},
		{
			name:      "reachable with one closed port",
			reachable: true,
			portResults: []models.PortCheckResult{
				{Port: 22, Open: true},
				{Port: 80, Open: false},
			},
			want: models.StatusDegraded,
		},
		{
			name:      "reachable with every port closed",
			reachable: true,
			portResults: []models.PortCheckResult{
				{Port: 8080, Open: false},
			},
			want: models.StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.reachable, tt.portResults)
			if got != tt.want {
				t.Errorf("Evaluate(%v, %v) = %s, want %s", tt.reachable, tt.portResults, got, tt.want)
			}
		})
	}
}

// TestEvaluateIdempotent verifies that evaluation has no hidden state.
func TestEvaluateIdempotent(t *testing.T) {
	portResults := []models.PortCheckResult{
		{Port: 22, Open: true},
		{Port: 80, Open: false},
	}

	first := Evaluate(true, portResults)
	second := Evaluate(true, portResults)

	if first != second {
		t.Errorf("Expected identical results on repeated evaluation, got %s then %s", first, second)
	}

	if first != models.StatusDegraded {
		t.Errorf("Expected DEGRADED, got %s", first)
	}
}

// TestEvaluateNoDegradedWithoutPorts verifies that a device with no configured
// ports can never be DEGRADED: its status depends on reachability alone.
func TestEvaluateNoDegradedWithoutPorts(t *testing.T) {
	for _, reachable := range []bool{true, false} {
		got := Evaluate(reachable, nil)
		if got == models.StatusDegraded {
			t.Errorf("Evaluate(%v, nil) = DEGRADED, devices without ports must never degrade", reachable)
		}

		wantOnline := reachable
		if (got == models.StatusOnline) != wantOnline {
			t.Errorf("Evaluate(%v, nil) = %s, expected ONLINE iff reachable", reachable, got)
		}
	}
}
