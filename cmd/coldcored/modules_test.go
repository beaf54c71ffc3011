package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostdyne/coldcore"
)

func TestPlantManifestsResolve(t *testing.T) {
	registry := plantManifests()
	resolver := coldcore.NewResolver(registry, nopLogger{})

	order, err := resolver.LoadOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"temp-sensors", "compressor-control", "defrost-cycle", "telemetry"}, order)
}

func TestPlantFactoryBuildsEveryManifest(t *testing.T) {
	factory := newPlantFactory(nopLogger{})
	for _, name := range plantManifests().Names() {
		require.True(t, factory.Has(name), name)
		require.NotNil(t, factory.Create(name), name)
	}
	assert.False(t, factory.Has("ghost"))
	assert.Nil(t, factory.Create("ghost"))
}

func TestTempSensorsConfigureRejectsBadCount(t *testing.T) {
	m := &tempSensors{}
	section := coldcore.NewConfigSection("sensors", map[string]any{"count": -1})
	assert.ErrorIs(t, m.Configure(section), errSensorCountInvalid)
}

func TestTempSensorsReadingTracksSetpoint(t *testing.T) {
	m := &tempSensors{}
	section := coldcore.NewConfigSection("sensors", map[string]any{
		"count":      2,
		"setpoint_c": -20.0,
	})
	require.NoError(t, m.Configure(section))
	require.NoError(t, m.Init())

	assert.InDelta(t, -20.0, m.CabinetTemp(), 0.001)
	for i := 0; i < 10; i++ {
		m.Update()
	}
	assert.InDelta(t, -20.0, m.CabinetTemp(), 1.6, "reading drifts within the simulated band")
	require.NoError(t, m.Stop())
}

func TestCompressorHysteresis(t *testing.T) {
	feed := &tempSensors{setpoint: -18}
	require.NoError(t, feed.Init())

	m := &compressorControl{feed: feed}
	section := coldcore.NewConfigSection("compressor", map[string]any{
		"cut_in_c":  -16.5,
		"cut_out_c": -19.5,
	})
	require.NoError(t, m.Configure(section))
	require.NoError(t, m.Init())

	// Between the bands nothing switches.
	m.Update()
	assert.False(t, m.engaged)

	// Warm past cut-in: engage.
	feed.reading.Store(-16000)
	m.Update()
	assert.True(t, m.engaged)

	// Still above cut-out: stays engaged.
	feed.reading.Store(-18000)
	m.Update()
	assert.True(t, m.engaged)

	// Cold past cut-out: disengage.
	feed.reading.Store(-20000)
	m.Update()
	assert.False(t, m.engaged)
	assert.Equal(t, uint64(2), m.switchings)
}

func TestDefrostCycleSequencing(t *testing.T) {
	m := &defrostCycle{}
	section := coldcore.NewConfigSection("defrost", map[string]any{
		"interval": "1h",
		"duration": "10m",
	})
	require.NoError(t, m.Configure(section))
	require.NoError(t, m.Init())

	m.Update()
	assert.False(t, m.heating, "no defrost right after init")

	// Force the interval to have elapsed.
	m.lastStart = time.Now().Add(-2 * time.Hour)
	m.Update()
	assert.True(t, m.heating)

	// Force the heating window to have elapsed.
	m.lastStart = time.Now().Add(-20 * time.Minute)
	m.Update()
	assert.False(t, m.heating)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
