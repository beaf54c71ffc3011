package coldcore

import (
	"time"
)

// moduleEntry pairs a registered module with its scheduling and health
// bookkeeping. Entries are created on registration, mutated only by the
// orchestrator, and live until the orchestrator is torn down; there is no
// runtime unregistration.
type moduleEntry struct {
	module   Module
	priority Priority
	state    ModuleState
	enabled  bool
	seq      int // registration sequence, stable tie-break within a tier

	// performance counters
	updateCount    uint64
	totalTime      time.Duration
	lastTime       time.Duration
	maxTime        time.Duration
	deadlineMisses uint64

	// health bookkeeping
	healthScore int
	errorCount  int
	lastError   error

	// throttling
	minInterval time.Duration
	lastUpdate  time.Time
}

func newModuleEntry(m Module, p Priority, seq int) *moduleEntry {
	e := &moduleEntry{
		module:      m,
		priority:    p,
		state:       StateCreated,
		enabled:     true,
		seq:         seq,
		healthScore: 100,
	}
	if ia, ok := m.(IntervalAware); ok {
		e.minInterval = ia.MinUpdateInterval()
	}
	return e
}

// recordUpdate folds one measured update duration into the running counters
// and reports whether the tier budget was exceeded.
func (e *moduleEntry) recordUpdate(d time.Duration, at time.Time) (missed bool) {
	e.updateCount++
	e.totalTime += d
	e.lastTime = d
	if d > e.maxTime {
		e.maxTime = d
	}
	e.lastUpdate = at
	if d > e.priority.UpdateBudget() {
		e.deadlineMisses++
		missed = true
	}
	return missed
}

// recordError notes a failure local to this module. Failures never propagate
// across module boundaries; they only feed the error count and health score.
func (e *moduleEntry) recordError(err error) {
	e.errorCount++
	e.lastError = err
}

// recomputeHealth derives the entry's 0-100 health score:
// start at 100, subtract 10 when the module reports itself unhealthy,
// 10 points per recorded error capped at 50, 20 when the deadline-miss rate
// exceeds 10%, and the module's own self-reported deficit. Never negative.
func (e *moduleEntry) recomputeHealth() {
	score := 100

	if hr, ok := e.module.(HealthReporter); ok {
		if !hr.IsHealthy() {
			score -= 10
		}
		self := hr.HealthScore()
		if self < 0 {
			self = 0
		} else if self > 100 {
			self = 100
		}
		score -= 100 - self
	}

	errPenalty := e.errorCount * 10
	if errPenalty > 50 {
		errPenalty = 50
	}
	score -= errPenalty

	if e.updateCount > 0 {
		missRate := float64(e.deadlineMisses) / float64(e.updateCount)
		if missRate > 0.10 {
			score -= 20
		}
	}

	if score < 0 {
		score = 0
	}
	e.healthScore = score
}

// avgTime returns the mean update duration over the entry's lifetime.
func (e *moduleEntry) avgTime() time.Duration {
	if e.updateCount == 0 {
		return 0
	}
	return e.totalTime / time.Duration(e.updateCount)
}

// ModuleStats is a point-in-time copy of one entry's counters, exposed for
// tests, the diagnostics API and the health report.
type ModuleStats struct {
	Name           string        `json:"name"`
	Priority       string        `json:"priority"`
	State          string        `json:"state"`
	Enabled        bool          `json:"enabled"`
	UpdateCount    uint64        `json:"updateCount"`
	TotalTime      time.Duration `json:"totalTime"`
	LastTime       time.Duration `json:"lastTime"`
	MaxTime        time.Duration `json:"maxTime"`
	AvgTime        time.Duration `json:"avgTime"`
	DeadlineMisses uint64        `json:"deadlineMisses"`
	HealthScore    int           `json:"healthScore"`
	ErrorCount     int           `json:"errorCount"`
	LastError      string        `json:"lastError,omitempty"`
}

func (e *moduleEntry) stats() ModuleStats {
	s := ModuleStats{
		Name:           e.module.Name(),
		Priority:       e.priority.String(),
		State:          e.state.String(),
		Enabled:        e.enabled,
		UpdateCount:    e.updateCount,
		TotalTime:      e.totalTime,
		LastTime:       e.lastTime,
		MaxTime:        e.maxTime,
		AvgTime:        e.avgTime(),
		DeadlineMisses: e.deadlineMisses,
		HealthScore:    e.healthScore,
		ErrorCount:     e.errorCount,
	}
	if e.lastError != nil {
		s.LastError = e.lastError.Error()
	}
	return s
}
