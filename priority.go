package coldcore

import (
	"fmt"
	"time"
)

// Priority is a module's scheduling tier. The tier is fixed at registration
// and bounds both the time a single Update may take and the heartbeat timeout
// the watchdog applies. Registered entries are always kept in ascending tier
// order, so critical modules run first in every pass.
type Priority int

const (
	// PriorityCritical is reserved for safety-relevant control paths
	// (compressor protection, high-pressure cutout).
	PriorityCritical Priority = iota

	// PriorityHigh covers fast control loops such as valve modulation.
	PriorityHigh

	// PriorityStandard is the default tier for sensor acquisition and
	// ordinary control logic.
	PriorityStandard

	// PriorityLow covers slow housekeeping such as defrost cycling.
	PriorityLow

	// PriorityBackground covers telemetry, logging and other work that
	// tolerates arbitrary deferral.
	PriorityBackground
)

// UpdateBudget returns the maximum duration a single Update call at this tier
// may take before it is accounted as a deadline miss.
func (p Priority) UpdateBudget() time.Duration {
	switch p {
	case PriorityCritical:
		return 100 * time.Microsecond
	case PriorityHigh:
		return 500 * time.Microsecond
	case PriorityStandard:
		return 2 * time.Millisecond
	case PriorityLow:
		return 5 * time.Millisecond
	case PriorityBackground:
		return 10 * time.Millisecond
	default:
		return 2 * time.Millisecond
	}
}

// HeartbeatTimeout returns how long the watchdog waits for a heartbeat at
// this tier before flagging the module unresponsive.
func (p Priority) HeartbeatTimeout() time.Duration {
	switch p {
	case PriorityCritical:
		return 10 * time.Second
	case PriorityHigh:
		return 20 * time.Second
	case PriorityStandard:
		return 30 * time.Second
	case PriorityLow:
		return 60 * time.Second
	case PriorityBackground:
		return 2 * time.Minute
	default:
		return 30 * time.Second
	}
}

// String returns the lower-case tier name used in logs, manifests and events.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityStandard:
		return "standard"
	case PriorityLow:
		return "low"
	case PriorityBackground:
		return "background"
	default:
		return "unknown"
	}
}

// ParsePriority parses a tier name as produced by String.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "critical":
		return PriorityCritical, nil
	case "high":
		return PriorityHigh, nil
	case "standard":
		return PriorityStandard, nil
	case "low":
		return PriorityLow, nil
	case "background":
		return PriorityBackground, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownPriority, s)
	}
}
