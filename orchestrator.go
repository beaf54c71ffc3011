package coldcore

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Orchestrator owns the live module collection and runs it under the
// cooperative scheduling policy: entries are kept in ascending tier order,
// every pass visits them in that order under a soft pass budget, and all
// per-module failures are absorbed at the entry boundary.
//
// All mutating operations (Register, ConfigureAll, InitAll, TickAll,
// ShutdownAll, Enable, Disable, Reload) must be called from a single logical
// control flow; registering while ticking is not supported. The only state
// shared with another context is the watchdog's record map, which does its
// own locking.
type Orchestrator struct {
	logger    Logger
	entries   []*moduleEntry
	byName    map[string]*moduleEntry
	manifests *ManifestRegistry
	resolver  *Resolver
	watchdog  *Watchdog
	subject   Subject
	excluded  map[string]struct{}
	seq       int
}

// OrchestratorOption configures an Orchestrator at construction.
type OrchestratorOption func(*Orchestrator)

// WithManifests attaches the build-time manifest registry, enabling
// RegisterFromManifests and manifest-declared configuration sections.
func WithManifests(registry *ManifestRegistry) OrchestratorOption {
	return func(o *Orchestrator) {
		o.manifests = registry
		o.resolver = NewResolver(registry, o.logger)
	}
}

// WithWatchdog attaches a heartbeat watchdog. Every registered module is also
// registered with the watchdog, and every successful update touches it.
func WithWatchdog(w *Watchdog) OrchestratorOption {
	return func(o *Orchestrator) {
		o.watchdog = w
	}
}

// WithSubject attaches the event publication surface. Emission is
// best-effort; without a subject, events are dropped.
func WithSubject(s Subject) OrchestratorOption {
	return func(o *Orchestrator) {
		o.subject = s
	}
}

// WithTickExclusions names modules the pass must never schedule, used for
// modules driven on their own high-frequency execution context so they are
// not double-scheduled. Excluded modules still configure, initialize, shut
// down and keep their heartbeat registration.
func WithTickExclusions(names ...string) OrchestratorOption {
	return func(o *Orchestrator) {
		for _, name := range names {
			o.excluded[name] = struct{}{}
		}
	}
}

// NewOrchestrator creates an empty orchestrator. The orchestrator is meant to
// be constructed once at startup by the application context and torn down
// once at shutdown.
func NewOrchestrator(logger Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		logger:   logger,
		byName:   make(map[string]*moduleEntry),
		excluded: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Register adds a module at the given tier. It rejects nil modules and
// duplicate names, keeps the registry tier-sorted (stable, so equal tiers
// stay in registration order) and registers the module's heartbeat when a
// watchdog is attached.
func (o *Orchestrator) Register(m Module, p Priority) error {
	if m == nil {
		return ErrNilModule
	}
	name := m.Name()
	if _, exists := o.byName[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, name)
	}

	entry := newModuleEntry(m, p, o.seq)
	o.seq++
	o.entries = append(o.entries, entry)
	sort.SliceStable(o.entries, func(i, j int) bool {
		return o.entries[i].priority < o.entries[j].priority
	})
	o.byName[name] = entry

	if ba, ok := m.(BudgetAware); ok {
		if declared := ba.MaxUpdateTime(); declared > p.UpdateBudget() {
			o.logger.Warn("Module declares more update time than its tier allows",
				"module", name, "declared", declared, "tier", p.String(), "budget", p.UpdateBudget())
		}
	}

	if o.watchdog != nil {
		o.watchdog.Register(name, p)
	}

	o.logger.Info("Registered module", "module", name, "priority", p.String())
	return nil
}

// RegisterFromManifests instantiates and registers every manifest entry in
// dependency-resolved load order using the supplied factory. Names already
// registered are skipped, making the operation idempotent. A name the
// factory cannot build is logged and skipped so the controller boots with a
// degraded module set; only a resolution failure (cycle or missing
// dependency) aborts the whole pass.
func (o *Orchestrator) RegisterFromManifests(factory ModuleFactory) error {
	if o.resolver == nil {
		return ErrNoManifests
	}

	order, err := o.resolver.LoadOrder()
	if err != nil {
		return fmt.Errorf("failed to resolve module load order: %w", err)
	}

	added := 0
	for _, name := range order {
		if _, exists := o.byName[name]; exists {
			o.logger.Debug("Module already registered, skipping", "module", name)
			continue
		}
		manifest, _ := o.manifests.Lookup(name)

		// The load order guarantees dependencies were processed first, so
		// anything not registered by now was skipped upstream.
		satisfied := true
		for _, dep := range manifest.Dependencies {
			if _, ok := o.byName[dep]; ok {
				continue
			}
			if o.manifests.IsSystemProvided(dep) {
				continue
			}
			o.logger.Warn("Skipping module, dependency was not registered", "module", name, "dependency", dep)
			satisfied = false
			break
		}
		if !satisfied {
			continue
		}

		if !factory.Has(name) {
			o.logger.Warn("No factory for module, skipping", "module", name)
			continue
		}
		m := factory.Create(name)
		if m == nil {
			o.logger.Warn("Factory returned no instance, skipping", "module", name)
			continue
		}
		if err := o.Register(m, manifest.Priority); err != nil {
			o.logger.Error("Failed to register module from manifest", "module", name, "error", err)
			continue
		}
		added++
	}

	o.logger.Info("Manifest registration complete", "added", added, "total", len(o.entries))
	return nil
}

// ConfigureAll resolves each module's configuration section from the supplied
// tree and applies it. The section name is taken from the module's manifest
// when one declares it, otherwise derived from the module name. A missing
// section is logged and the module still advances to Configured with nothing
// applied; a Configure failure moves the module to Error without affecting
// any other module.
func (o *Orchestrator) ConfigureAll(tree *ConfigTree) {
	for _, e := range o.entries {
		if e.state != StateCreated && e.state != StateConfigured {
			continue
		}
		name := e.module.Name()

		sectionName := o.sectionNameFor(name)
		section, found := tree.Section(sectionName)
		if !found {
			o.logger.Debug("No config section for module", "module", name, "section", sectionName)
			e.state = StateConfigured
			continue
		}

		if c, ok := e.module.(Configurable); ok {
			if err := c.Configure(section); err != nil {
				e.recordError(err)
				e.state = StateError
				e.recomputeHealth()
				o.logger.Error("Module configuration failed", "module", name, "section", sectionName, "error", err)
				continue
			}
		}
		e.state = StateConfigured
		o.logger.Debug("Configured module", "module", name, "section", sectionName)
	}
}

// SectionFor returns the configuration section name a module resolves to:
// the manifest's declared section when one exists, otherwise the conventional
// name derived from the module name. Embedders use it to pick the right
// subsection when hot-reloading a module.
func (o *Orchestrator) SectionFor(moduleName string) string {
	return o.sectionNameFor(moduleName)
}

// sectionNameFor prefers the manifest's declared section, falling back to the
// conventional name derived from the module name.
func (o *Orchestrator) sectionNameFor(moduleName string) string {
	if o.manifests != nil {
		if m, ok := o.manifests.Lookup(moduleName); ok && m.ConfigSection != "" {
			return m.ConfigSection
		}
	}
	return deriveSectionName(moduleName)
}

// InitAll initializes every configured module in tier order. A failure moves
// that module to Error and the pass continues; only a Critical-tier failure
// makes the aggregate fail, after all remaining modules were still attempted.
// A lifecycle summary event is published either way.
func (o *Orchestrator) InitAll(ctx context.Context) error {
	initialized := 0
	criticalFailed := false
	var firstCritical string

	for _, e := range o.entries {
		name := e.module.Name()
		if e.state != StateConfigured {
			o.logger.Debug("Module not configured, skipping init", "module", name, "state", e.state.String())
			continue
		}
		if err := e.module.Init(); err != nil {
			e.recordError(err)
			e.state = StateError
			e.recomputeHealth()
			o.logger.Error("Module initialization failed", "module", name, "priority", e.priority.String(), "error", err)
			if e.priority == PriorityCritical {
				criticalFailed = true
				if firstCritical == "" {
					firstCritical = name
				}
			}
			continue
		}
		e.state = StateInitialized
		initialized++
		o.logger.Info("Initialized module", "module", name, "priority", e.priority.String())
	}

	o.emit(ctx, EventTypeLifecycleInitialized, InitSummary{
		TotalModules:   len(o.entries),
		Initialized:    initialized,
		CriticalFailed: criticalFailed,
	})

	if criticalFailed {
		return fmt.Errorf("%w: %s", ErrCriticalInitFailed, firstCritical)
	}
	return nil
}

// TickAll runs one cooperative scheduling pass in tier order under a soft
// pass budget. Once the elapsed pass time exceeds budget, no further module
// is started and the remainder simply waits for the next pass; a budget of
// zero or less means unlimited. Each visited module's update is timed, the
// counters and deadline-miss accounting are updated against the tier budget,
// the watchdog is touched and the health score recomputed.
func (o *Orchestrator) TickAll(budget time.Duration) {
	start := time.Now()

	for _, e := range o.entries {
		if budget > 0 && time.Since(start) > budget {
			o.logger.Warn("Tick pass over budget, deferring remaining modules",
				"budget", budget, "elapsed", time.Since(start))
			break
		}
		if !e.enabled || e.state != StateInitialized {
			continue
		}
		name := e.module.Name()
		if _, skip := o.excluded[name]; skip {
			continue
		}
		if e.minInterval > 0 && !e.lastUpdate.IsZero() && time.Since(e.lastUpdate) < e.minInterval {
			continue
		}

		began := time.Now()
		e.module.Update()
		took := time.Since(began)

		if e.recordUpdate(took, began) {
			o.logger.Warn("Deadline miss",
				"module", name, "took", took, "budget", e.priority.UpdateBudget(), "misses", e.deadlineMisses)
		}
		if o.watchdog != nil {
			o.watchdog.Touch(name)
		}
		e.recomputeHealth()
	}
}

// ShutdownAll stops every initialized module in reverse tier order. Stop
// failures are recorded against the module and never abort the remaining
// shutdowns; every visited module returns to Configured so the controller
// can be reinitialized.
func (o *Orchestrator) ShutdownAll() {
	for i := len(o.entries) - 1; i >= 0; i-- {
		e := o.entries[i]
		if e.state != StateInitialized {
			continue
		}
		name := e.module.Name()
		if err := e.module.Stop(); err != nil {
			e.recordError(err)
			e.recomputeHealth()
			o.logger.Error("Module stop failed", "module", name, "error", err)
		}
		e.state = StateConfigured
		o.logger.Info("Stopped module", "module", name)
	}
}

// Enable re-admits a module to the tick pass.
func (o *Orchestrator) Enable(name string) error {
	e, ok := o.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	e.enabled = true
	o.logger.Info("Enabled module", "module", name)
	return nil
}

// Disable excludes a module from the tick pass. Its statistics and heartbeat
// registration are kept.
func (o *Orchestrator) Disable(name string) error {
	e, ok := o.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	e.enabled = false
	o.logger.Info("Disabled module", "module", name)
	return nil
}

// Reload restarts a single module: stop when initialized, reconfigure when a
// section is supplied, then initialize again. Any failure leaves the module
// in Error until the next reload.
func (o *Orchestrator) Reload(name string, section *ConfigSection) error {
	e, ok := o.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}

	if e.state == StateInitialized {
		if err := e.module.Stop(); err != nil {
			e.recordError(err)
			e.state = StateError
			e.recomputeHealth()
			return fmt.Errorf("failed to stop module %s for reload: %w", name, err)
		}
		e.state = StateConfigured
	}

	if section != nil {
		if c, isConfigurable := e.module.(Configurable); isConfigurable {
			if err := c.Configure(section); err != nil {
				e.recordError(err)
				e.state = StateError
				e.recomputeHealth()
				return fmt.Errorf("failed to reconfigure module %s: %w", name, err)
			}
		}
		e.state = StateConfigured
	}

	if e.state != StateConfigured {
		return fmt.Errorf("%w: %s is %s", ErrModuleNotConfigured, name, e.state)
	}

	if err := e.module.Init(); err != nil {
		e.recordError(err)
		e.state = StateError
		e.recomputeHealth()
		return fmt.Errorf("failed to reinitialize module %s: %w", name, err)
	}
	e.state = StateInitialized

	o.emit(context.Background(), EventTypeModuleReloaded, map[string]string{"module": name})
	o.logger.Info("Reloaded module", "module", name)
	return nil
}

// RestartModule adapts Reload to the watchdog's restart callback shape.
func (o *Orchestrator) RestartModule(name string) bool {
	if err := o.Reload(name, nil); err != nil {
		o.logger.Error("Module restart failed", "module", name, "error", err)
		return false
	}
	return true
}

// RegisterAPIs runs the dedicated API registration pass, handing the
// registrar to every module that exposes methods. The orchestrator never
// interprets what gets registered.
func (o *Orchestrator) RegisterAPIs(r APIRegistrar) {
	for _, e := range o.entries {
		if a, ok := e.module.(APIAware); ok {
			a.RegisterAPI(r)
			o.logger.Debug("Registered module API", "module", e.module.Name())
		}
	}
}

// Stats returns a snapshot of one module's counters.
func (o *Orchestrator) Stats(name string) (ModuleStats, bool) {
	e, ok := o.byName[name]
	if !ok {
		return ModuleStats{}, false
	}
	return e.stats(), true
}

// ModuleNames returns the registered module names in tier order.
func (o *Orchestrator) ModuleNames() []string {
	names := make([]string, 0, len(o.entries))
	for _, e := range o.entries {
		names = append(names, e.module.Name())
	}
	return names
}

// Len returns the number of registered modules.
func (o *Orchestrator) Len() int {
	return len(o.entries)
}

// emit publishes a core event when a subject is attached. Fire and forget:
// emission failures are only logged.
func (o *Orchestrator) emit(ctx context.Context, eventType string, data any) {
	if o.subject == nil {
		return
	}
	event := NewEvent(eventType, eventSourceOrchestrator, data)
	if err := o.subject.NotifyObservers(ctx, event); err != nil {
		o.logger.Debug("Failed to publish event", "eventType", eventType, "error", err)
	}
}
