// Package coldcore implements the module orchestration core of the Frostdyne
// refrigeration controller firmware: module registration, dependency-ordered
// startup, a priority-tiered cooperative scheduler with per-tier time budgets,
// per-module performance and health accounting, and a heartbeat watchdog with
// bounded automatic restart.
//
// The controller is composed of independent modules (sensor acquisition,
// actuator control, networking, telemetry, ...) that all implement the Module
// interface. The Orchestrator exclusively owns every registered module
// instance and drives it through a strict lifecycle:
//
//	Created -> Configured -> Initialized -> (back to Configured on shutdown)
//
// with Error as the terminal state for a module that failed, until the module
// is explicitly reloaded.
//
// There is no preemption: TickAll runs every due module's Update in tier order
// on a single logical control flow, and a module that overruns its tier budget
// is recorded as a deadline miss, never interrupted. Modules that must block
// are required to do so on their own task; the orchestrator only ever observes
// them through update timing and heartbeats.
//
// Basic usage:
//
//	orch := coldcore.NewOrchestrator(logger)
//	if err := orch.Register(&CompressorControl{}, coldcore.PriorityCritical); err != nil {
//		log.Fatal(err)
//	}
//	orch.ConfigureAll(tree)
//	if err := orch.InitAll(ctx); err != nil {
//		log.Fatal(err)
//	}
//	for running {
//		orch.TickAll(10 * time.Millisecond)
//	}
//	orch.ShutdownAll()
package coldcore

import (
	"net/http"
	"time"
)

// Module represents a managed control unit. All modules must implement this
// interface to be scheduled by the orchestrator.
//
// A module encapsulates one concern of the controller (a sensor bank, an
// actuator driver, the network stack, ...). Once registered it is owned by
// the orchestrator: no other component may mutate it outside its own
// lifecycle methods.
type Module interface {
	// Name returns the unique identifier for this module. The name is used
	// for dependency resolution, heartbeat tracking and configuration
	// section lookup. It must be unique within the controller.
	//
	// Example: "temp-sensors", "compressor-control", "telemetry"
	Name() string

	// Init prepares the module for scheduling. It is called once per
	// lifecycle, after configuration, in dependency-resolved tier order.
	// Init must be bounded and must not block on I/O.
	Init() error

	// Update runs one cooperative scheduling slice. It is called repeatedly
	// from the orchestrator's tick pass and must return within the module's
	// tier budget; an overrun is recorded as a deadline miss but is never
	// interrupted.
	Update()

	// Stop releases the module's resources during shutdown or reload.
	// Failures are recorded against the module and never abort the
	// remaining shutdowns.
	Stop() error
}

// Configurable is an optional interface for modules that accept configuration.
// Configure is invoked by Orchestrator.ConfigureAll with the module's resolved
// configuration section before Init. Modules without a matching section in
// the configuration tree are skipped, not failed.
type Configurable interface {
	Configure(section *ConfigSection) error
}

// HealthReporter is an optional interface for modules that self-report their
// operational fitness. Modules that do not implement it are assumed healthy
// with a full score of 100.
type HealthReporter interface {
	// IsHealthy reports whether the module considers itself operational.
	IsHealthy() bool

	// HealthScore returns the module's self-assessment in [0,100].
	HealthScore() int
}

// BudgetAware is an optional interface for modules that declare their own
// expected maximum update time. The declared value is advisory: the scheduler
// accounts deadline misses against the tier budget alone, and only warns at
// registration when a module declares more time than its tier allows.
type BudgetAware interface {
	MaxUpdateTime() time.Duration
}

// IntervalAware is an optional interface for modules that do not need to run
// on every pass. A module reporting a minimum update interval is skipped by
// TickAll until that much time has elapsed since its previous update.
type IntervalAware interface {
	MinUpdateInterval() time.Duration
}

// APIAware is an optional interface for modules that expose diagnostic or
// operator methods. RegisterAPI is invoked exactly once during a dedicated
// registration pass; the orchestrator never interprets the registered
// handlers.
type APIAware interface {
	RegisterAPI(r APIRegistrar)
}

// APIRegistrar receives the method registrations of APIAware modules.
// The httpapi package provides a chi-backed implementation.
type APIRegistrar interface {
	Register(module, method string, handler http.HandlerFunc)
}

// ModuleFactory instantiates modules by manifest name. It is consulted only
// by Orchestrator.RegisterFromManifests; a name the factory does not know is
// logged and skipped so the controller can boot with a degraded module set.
type ModuleFactory interface {
	Has(name string) bool
	Create(name string) Module
}

// DefaultMaxUpdateTime is assumed for modules that do not implement
// BudgetAware.
const DefaultMaxUpdateTime = 2 * time.Millisecond
