package coldcore

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// testLogger collects formatted log lines so tests can assert on them.
type testLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *testLogger) log(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf("%s: %s %v", level, msg, args))
}

func (l *testLogger) Info(msg string, args ...any)  { l.log("INFO", msg, args...) }
func (l *testLogger) Error(msg string, args ...any) { l.log("ERROR", msg, args...) }
func (l *testLogger) Warn(msg string, args ...any)  { l.log("WARN", msg, args...) }
func (l *testLogger) Debug(msg string, args ...any) { l.log("DEBUG", msg, args...) }

func (l *testLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// fakeModule is the minimal Module used throughout the orchestration tests.
// Lifecycle errors and update behavior are injected per test; Stop optionally
// appends to a shared slice so shutdown ordering can be observed.
type fakeModule struct {
	name      string
	initErr   error
	stopErr   error
	onUpdate  func()
	updates   int
	inits     int
	stopOrder *[]string
}

func (m *fakeModule) Name() string { return m.name }

func (m *fakeModule) Init() error {
	if m.initErr != nil {
		return m.initErr
	}
	m.inits++
	return nil
}

func (m *fakeModule) Update() {
	m.updates++
	if m.onUpdate != nil {
		m.onUpdate()
	}
}

func (m *fakeModule) Stop() error {
	if m.stopOrder != nil {
		*m.stopOrder = append(*m.stopOrder, m.name)
	}
	return m.stopErr
}

// configurableModule adds the optional configuration capability.
type configurableModule struct {
	fakeModule
	configureErr error
	applied      map[string]any
}

func (m *configurableModule) Configure(section *ConfigSection) error {
	if m.configureErr != nil {
		return m.configureErr
	}
	m.applied = section.Raw()
	return nil
}

// healthModule adds the optional self-reporting capability.
type healthModule struct {
	fakeModule
	healthy bool
	score   int
}

func (m *healthModule) IsHealthy() bool  { return m.healthy }
func (m *healthModule) HealthScore() int { return m.score }

// intervalModule adds the optional update throttling capability.
type intervalModule struct {
	fakeModule
	interval time.Duration
}

func (m *intervalModule) MinUpdateInterval() time.Duration { return m.interval }

// budgetModule adds the optional update time declaration.
type budgetModule struct {
	fakeModule
	declared time.Duration
}

func (m *budgetModule) MaxUpdateTime() time.Duration { return m.declared }

// apiModule adds the optional API registration capability.
type apiModule struct {
	fakeModule
	registered []string
}

func (m *apiModule) RegisterAPI(r APIRegistrar) {
	r.Register(m.name, "status", nil)
	m.registered = append(m.registered, "status")
}

// recordingRegistrar captures Register calls for assertion.
type recordingRegistrar struct {
	mounted []string
}

func (r *recordingRegistrar) Register(module, method string, _ http.HandlerFunc) {
	r.mounted = append(r.mounted, module+"/"+method)
}

// mapFactory is a ModuleFactory backed by a plain map of constructors.
type mapFactory map[string]func() Module

func (f mapFactory) Has(name string) bool {
	_, ok := f[name]
	return ok
}

func (f mapFactory) Create(name string) Module {
	if build, ok := f[name]; ok {
		return build()
	}
	return nil
}
