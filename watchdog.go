package coldcore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Default watchdog parameters.
const (
	// DefaultCheckInterval is how often the watchdog sweeps its records.
	DefaultCheckInterval = 5 * time.Second

	// MaxRestartAttempts bounds automatic recovery per module. A module
	// still unresponsive after this many attempts is permanently disabled.
	MaxRestartAttempts = 3
)

// RestartFunc is supplied by the embedding application and asked to restart
// an unresponsive module by name. It reports whether the restart succeeded;
// a restart is a logical reset request, never a forced termination.
type RestartFunc func(name string) bool

// heartbeatRecord is the watchdog's bookkeeping for one module name.
type heartbeatRecord struct {
	name     string
	priority Priority
	lastBeat time.Time
	restarts int
	active   bool
}

// Watchdog tracks last-alive timestamps per module name against tier-derived
// timeouts and drives bounded automatic restart of unresponsive modules.
//
// The record map is the one structure in the orchestration core shared across
// execution contexts: Touch arrives from the tick pass while the periodic
// Check runs on the cron timeline, so every access goes through the mutex.
type Watchdog struct {
	mu      sync.Mutex
	records map[string]*heartbeatRecord

	interval    time.Duration
	maxRestarts int
	autoRestart bool
	restart     RestartFunc
	logger      Logger
	subject     Subject
	cron        *cron.Cron
	now         func() time.Time
}

// WatchdogOption configures a Watchdog at construction.
type WatchdogOption func(*Watchdog)

// WithCheckInterval overrides how often the periodic check sweeps the
// records.
func WithCheckInterval(d time.Duration) WatchdogOption {
	return func(w *Watchdog) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithRestart installs the restart callback and enables automatic recovery.
func WithRestart(f RestartFunc) WatchdogOption {
	return func(w *Watchdog) {
		w.restart = f
		w.autoRestart = f != nil
	}
}

// WithWatchdogSubject attaches the event publication surface for
// unresponsive-module alerts.
func WithWatchdogSubject(s Subject) WatchdogOption {
	return func(w *Watchdog) {
		w.subject = s
	}
}

// WithClock overrides the watchdog's time source. Used by tests to simulate
// heartbeat silence without waiting it out.
func WithClock(now func() time.Time) WatchdogOption {
	return func(w *Watchdog) {
		if now != nil {
			w.now = now
		}
	}
}

// NewWatchdog creates a watchdog with the default interval and restart bound.
func NewWatchdog(logger Logger, opts ...WatchdogOption) *Watchdog {
	w := &Watchdog{
		records:     make(map[string]*heartbeatRecord),
		interval:    DefaultCheckInterval,
		maxRestarts: MaxRestartAttempts,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Register starts tracking a module name at the given tier. Re-registering a
// name resets its record, which is how a reloaded module re-arms the
// watchdog.
func (w *Watchdog) Register(name string, p Priority) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records[name] = &heartbeatRecord{
		name:     name,
		priority: p,
		lastBeat: w.now(),
		active:   true,
	}
}

// Unregister stops tracking a module name.
func (w *Watchdog) Unregister(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.records, name)
}

// Touch records a heartbeat for name. The orchestrator calls this after
// every successful update. Touches on permanently disabled records are
// ignored.
func (w *Watchdog) Touch(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if rec, ok := w.records[name]; ok && rec.active {
		rec.lastBeat = w.now()
	}
}

// IsAlive reports whether name was touched within its tier timeout.
func (w *Watchdog) IsAlive(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	rec, ok := w.records[name]
	if !ok || !rec.active {
		return false
	}
	return w.now().Sub(rec.lastBeat) <= rec.priority.HeartbeatTimeout()
}

// Check sweeps every active record once. A record silent beyond its tier
// timeout has its restart counter incremented; while the counter is within
// the bound and a restart callback is installed, the callback is invoked,
// and a success resets the heartbeat. A record that exceeds the bound is
// permanently disabled and never restarted again.
//
// Check is normally driven by Start's cron schedule but may be called
// directly.
func (w *Watchdog) Check() {
	type finding struct {
		name      string
		priority  Priority
		silent    time.Duration
		attempt   int
		exhausted bool
	}

	now := w.now()
	var findings []finding

	w.mu.Lock()
	for _, rec := range w.records {
		if !rec.active {
			continue
		}
		silent := now.Sub(rec.lastBeat)
		if silent <= rec.priority.HeartbeatTimeout() {
			continue
		}
		rec.restarts++
		f := finding{name: rec.name, priority: rec.priority, silent: silent, attempt: rec.restarts}
		if rec.restarts > w.maxRestarts {
			rec.active = false
			f.exhausted = true
		}
		findings = append(findings, f)
	}
	w.mu.Unlock()

	// Restart callbacks and event emission run outside the lock so a slow
	// callback cannot stall Touch calls from the tick pass.
	for _, f := range findings {
		if f.exhausted {
			w.logger.Error("Module restart attempts exhausted, permanently disabled",
				"module", f.name, "attempts", w.maxRestarts)
			w.emit(EventTypeModuleRestartExhausted, ModuleAlert{
				Module:         f.name,
				Priority:       f.priority.String(),
				SilentFor:      f.silent.String(),
				RestartAttempt: f.attempt,
			})
			continue
		}

		w.logger.Warn("Module unresponsive",
			"module", f.name, "silentFor", f.silent, "timeout", f.priority.HeartbeatTimeout(), "attempt", f.attempt)
		w.emit(EventTypeModuleUnresponsive, ModuleAlert{
			Module:         f.name,
			Priority:       f.priority.String(),
			SilentFor:      f.silent.String(),
			RestartAttempt: f.attempt,
		})

		if !w.autoRestart || w.restart == nil {
			continue
		}
		if w.restart(f.name) {
			w.mu.Lock()
			if rec, ok := w.records[f.name]; ok && rec.active {
				rec.lastBeat = w.now()
			}
			w.mu.Unlock()
			w.logger.Info("Module restarted by watchdog", "module", f.name, "attempt", f.attempt)
		} else {
			w.logger.Error("Module restart failed",
				"module", f.name, "attempt", f.attempt, "max", w.maxRestarts)
		}
	}
}

// Start schedules the periodic check on a cron runner at the configured
// interval. Stop must be called to release the runner.
func (w *Watchdog) Start() error {
	if w.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", w.interval), w.Check); err != nil {
		return fmt.Errorf("failed to schedule watchdog check: %w", err)
	}
	c.Start()
	w.cron = c
	w.logger.Info("Watchdog started", "interval", w.interval)
	return nil
}

// Stop halts the periodic check and waits for an in-flight sweep to finish.
func (w *Watchdog) Stop() {
	if w.cron == nil {
		return
	}
	ctx := w.cron.Stop()
	<-ctx.Done()
	w.cron = nil
	w.logger.Info("Watchdog stopped")
}

// HealthPercent returns the share of active records that are within their
// timeout, as a percentage. 100 when nothing is tracked.
func (w *Watchdog) HealthPercent() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	active, alive := 0, 0
	for _, rec := range w.records {
		if !rec.active {
			continue
		}
		active++
		if now.Sub(rec.lastBeat) <= rec.priority.HeartbeatTimeout() {
			alive++
		}
	}
	if active == 0 {
		return 100
	}
	return float64(alive) / float64(active) * 100
}

// HeartbeatStatus is a point-in-time copy of one record, exposed for tests
// and the diagnostics API.
type HeartbeatStatus struct {
	Name     string    `json:"name"`
	Priority string    `json:"priority"`
	LastBeat time.Time `json:"lastBeat"`
	Restarts int       `json:"restarts"`
	Active   bool      `json:"active"`
}

// Status returns the record for name.
func (w *Watchdog) Status(name string) (HeartbeatStatus, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rec, ok := w.records[name]
	if !ok {
		return HeartbeatStatus{}, false
	}
	return HeartbeatStatus{
		Name:     rec.name,
		Priority: rec.priority.String(),
		LastBeat: rec.lastBeat,
		Restarts: rec.restarts,
		Active:   rec.active,
	}, true
}

// Statuses returns every record sorted by module name.
func (w *Watchdog) Statuses() []HeartbeatStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]HeartbeatStatus, 0, len(w.records))
	for _, rec := range w.records {
		out = append(out, HeartbeatStatus{
			Name:     rec.name,
			Priority: rec.priority.String(),
			LastBeat: rec.lastBeat,
			Restarts: rec.restarts,
			Active:   rec.active,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// emit publishes a watchdog alert when a subject is attached.
func (w *Watchdog) emit(eventType string, data ModuleAlert) {
	if w.subject == nil {
		return
	}
	event := NewEvent(eventType, eventSourceWatchdog, data)
	if err := w.subject.NotifyObservers(context.Background(), event); err != nil {
		w.logger.Debug("Failed to publish watchdog event", "eventType", eventType, "error", err)
	}
}
