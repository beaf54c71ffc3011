package main

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/frostdyne/coldcore"
)

var errSensorCountInvalid = errors.New("sensor count must be positive")

// plantManifests is the build-time manifest set for the demo plant. On real
// hardware this table is produced by the manifest generator.
func plantManifests() *coldcore.ManifestRegistry {
	return coldcore.NewManifestRegistry([]coldcore.Manifest{
		{
			Name:          "temp-sensors",
			Version:       "1.2.0",
			Description:   "Cabinet and evaporator temperature acquisition",
			Class:         coldcore.ClassCore,
			Priority:      coldcore.PriorityStandard,
			Dependencies:  []string{"hal"},
			ConfigSection: "sensors",
		},
		{
			Name:          "compressor-control",
			Version:       "1.4.1",
			Description:   "Compressor staging with high-pressure cutout",
			Class:         coldcore.ClassCore,
			Priority:      coldcore.PriorityCritical,
			Dependencies:  []string{"temp-sensors", "hal"},
			ConfigSection: "compressor",
		},
		{
			Name:          "defrost-cycle",
			Version:       "1.0.3",
			Description:   "Timed evaporator defrost sequencing",
			Class:         coldcore.ClassStandard,
			Priority:      coldcore.PriorityLow,
			Dependencies:  []string{"compressor-control"},
			ConfigSection: "defrost",
		},
		{
			Name:          "telemetry",
			Version:       "2.0.0",
			Description:   "Plant telemetry snapshots for the operator panel",
			Class:         coldcore.ClassOptional,
			Priority:      coldcore.PriorityBackground,
			Dependencies:  []string{"temp-sensors", "event-bus"},
			ConfigSection: "telemetry",
		},
	}, "hal", "event-bus")
}

// plantFactory builds the demo plant modules. The factory wires the
// temperature feed into its consumers, which is why it creates the sensor
// module lazily once and reuses it.
type plantFactory struct {
	logger  coldcore.Logger
	sensors *tempSensors
}

func newPlantFactory(logger coldcore.Logger) *plantFactory {
	return &plantFactory{logger: logger}
}

func (f *plantFactory) Has(name string) bool {
	switch name {
	case "temp-sensors", "compressor-control", "defrost-cycle", "telemetry":
		return true
	}
	return false
}

func (f *plantFactory) Create(name string) coldcore.Module {
	switch name {
	case "temp-sensors":
		return f.tempSensors()
	case "compressor-control":
		return &compressorControl{feed: f.tempSensors()}
	case "defrost-cycle":
		return &defrostCycle{}
	case "telemetry":
		return &telemetry{feed: f.tempSensors()}
	}
	return nil
}

func (f *plantFactory) tempSensors() *tempSensors {
	if f.sensors == nil {
		f.sensors = &tempSensors{}
	}
	return f.sensors
}

// tempSensors simulates the cabinet temperature acquisition bank. The reading
// drifts on a slow sine so the control loop has something to chase.
type tempSensors struct {
	count        int
	pollInterval time.Duration
	setpoint     float64
	phase        float64
	reading      atomic.Int64 // millidegrees C
	running      bool
}

func (m *tempSensors) Name() string { return "temp-sensors" }

func (m *tempSensors) Configure(section *coldcore.ConfigSection) error {
	m.count = section.GetInt("count", 4)
	if m.count <= 0 {
		return errSensorCountInvalid
	}
	m.pollInterval = section.GetDuration("poll_interval", 100*time.Millisecond)
	m.setpoint = section.GetFloat("setpoint_c", -18.0)
	return nil
}

func (m *tempSensors) Init() error {
	m.reading.Store(int64(m.setpoint * 1000))
	m.running = true
	return nil
}

func (m *tempSensors) Update() {
	m.phase += 0.05
	value := m.setpoint + 1.5*math.Sin(m.phase)
	m.reading.Store(int64(value * 1000))
}

func (m *tempSensors) Stop() error {
	m.running = false
	return nil
}

func (m *tempSensors) MinUpdateInterval() time.Duration { return m.pollInterval }

func (m *tempSensors) CabinetTemp() float64 {
	return float64(m.reading.Load()) / 1000
}

// compressorControl stages the compressor on a simple hysteresis band around
// the sensor feed's setpoint.
type compressorControl struct {
	feed       *tempSensors
	cutIn      float64
	cutOut     float64
	engaged    bool
	switchings uint64
}

func (m *compressorControl) Name() string { return "compressor-control" }

func (m *compressorControl) Configure(section *coldcore.ConfigSection) error {
	m.cutIn = section.GetFloat("cut_in_c", -16.5)
	m.cutOut = section.GetFloat("cut_out_c", -19.5)
	return nil
}

func (m *compressorControl) Init() error {
	m.engaged = false
	return nil
}

func (m *compressorControl) Update() {
	temp := m.feed.CabinetTemp()
	switch {
	case !m.engaged && temp >= m.cutIn:
		m.engaged = true
		m.switchings++
	case m.engaged && temp <= m.cutOut:
		m.engaged = false
		m.switchings++
	}
}

func (m *compressorControl) Stop() error {
	m.engaged = false
	return nil
}

func (m *compressorControl) MaxUpdateTime() time.Duration { return 50 * time.Microsecond }

// defrostCycle toggles the evaporator heater on a fixed schedule. It only
// needs to be visited about once a second.
type defrostCycle struct {
	interval  time.Duration
	duration  time.Duration
	lastStart time.Time
	heating   bool
}

func (m *defrostCycle) Name() string { return "defrost-cycle" }

func (m *defrostCycle) Configure(section *coldcore.ConfigSection) error {
	m.interval = section.GetDuration("interval", 6*time.Hour)
	m.duration = section.GetDuration("duration", 20*time.Minute)
	return nil
}

func (m *defrostCycle) Init() error {
	m.lastStart = time.Now()
	return nil
}

func (m *defrostCycle) Update() {
	now := time.Now()
	if m.heating {
		if now.Sub(m.lastStart) >= m.duration {
			m.heating = false
		}
		return
	}
	if now.Sub(m.lastStart) >= m.interval {
		m.heating = true
		m.lastStart = now
	}
}

func (m *defrostCycle) Stop() error {
	m.heating = false
	return nil
}

func (m *defrostCycle) MinUpdateInterval() time.Duration { return time.Second }

// telemetry publishes plant snapshots to the operator panel through the
// diagnostics API.
type telemetry struct {
	feed      *tempSensors
	snapshots uint64
	lastTemp  float64
}

func (m *telemetry) Name() string { return "telemetry" }

func (m *telemetry) Init() error { return nil }

func (m *telemetry) Update() {
	m.lastTemp = m.feed.CabinetTemp()
	m.snapshots++
}

func (m *telemetry) Stop() error { return nil }

func (m *telemetry) MinUpdateInterval() time.Duration { return 500 * time.Millisecond }

func (m *telemetry) RegisterAPI(r coldcore.APIRegistrar) {
	r.Register(m.Name(), "snapshot", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"cabinetTempC": m.lastTemp,
			"snapshots":    m.snapshots,
		})
	})
}
