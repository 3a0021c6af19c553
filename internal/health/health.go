// Package health derives the three-state device status from probe results.
package health

import "lanwatch-monitor/internal/models"

// Evaluate computes the health status for one device from fresh probe data.
// It is a pure function: status is never stored, only derived.
//
// Precedence, first match wins:
//  1. unreachable -> OFFLINE, regardless of port results
//  2. reachable and every port open (vacuously true with no ports) -> ONLINE
//  3. reachable with at least one closed port -> DEGRADED
func Evaluate(reachable bool, portResults []models.PortCheckResult) models.Status {
	if !reachable {
		return models.StatusOffline
	}
	for _, pr := range portResults {
		if !pr.Open {
			return models.StatusDegraded
		}
	}
	return models.StatusOnline
}
