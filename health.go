package coldcore

import (
	"time"
)

// Health classification thresholds applied to per-module scores.
const (
	healthyThreshold  = 80
	degradedThreshold = 50
)

// HealthReport aggregates every registered module into one snapshot. Each
// module lands in exactly one bucket, so Healthy+Degraded+Faulted+Disabled
// always equals the number of registered modules.
type HealthReport struct {
	// Healthy counts enabled, initialized modules scoring 80 or above.
	Healthy int `json:"healthy"`

	// Degraded counts enabled, initialized modules scoring 50-79.
	Degraded int `json:"degraded"`

	// Faulted counts modules scoring below 50 or not initialized.
	Faulted int `json:"faulted"`

	// Disabled counts modules currently excluded from the tick pass.
	Disabled int `json:"disabled"`

	// SystemScore is the arithmetic mean of all module scores, 100 when no
	// modules are registered.
	SystemScore float64 `json:"systemScore"`

	// Modules holds per-module statistics in tier order.
	Modules []ModuleStats `json:"modules"`

	// GeneratedAt is when the snapshot was taken.
	GeneratedAt time.Time `json:"generatedAt"`
}

// HealthReport builds a snapshot of every registered module.
func (o *Orchestrator) HealthReport() HealthReport {
	report := HealthReport{
		GeneratedAt: time.Now(),
		Modules:     make([]ModuleStats, 0, len(o.entries)),
	}

	total := 0
	for _, e := range o.entries {
		report.Modules = append(report.Modules, e.stats())
		total += e.healthScore

		switch {
		case !e.enabled:
			report.Disabled++
		case e.state != StateInitialized:
			report.Faulted++
		case e.healthScore >= healthyThreshold:
			report.Healthy++
		case e.healthScore >= degradedThreshold:
			report.Degraded++
		default:
			report.Faulted++
		}
	}

	if len(o.entries) == 0 {
		report.SystemScore = 100
	} else {
		report.SystemScore = float64(total) / float64(len(o.entries))
	}
	return report
}
