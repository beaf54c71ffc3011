package coldcore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlConfig = `
sensors:
  count: 4
  poll_interval: 250ms
  setpoint_c: -18.5
  calibrated: true
scheduler:
  tick_interval: 10ms
`

const tomlConfig = `
[sensors]
count = 4
poll_interval = "250ms"
setpoint_c = -18.5
calibrated = true
`

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFileByExtension(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
	}{
		{"plant.yaml", yamlConfig},
		{"plant.yml", yamlConfig},
		{"plant.toml", tomlConfig},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tree, err := LoadConfigFile(writeTempConfig(t, tc.name, tc.content))
			require.NoError(t, err)

			section, ok := tree.Section("sensors")
			require.True(t, ok)
			assert.Equal(t, 4, section.GetInt("count", 0))
			assert.Equal(t, 250*time.Millisecond, section.GetDuration("poll_interval", 0))
			assert.InDelta(t, -18.5, section.GetFloat("setpoint_c", 0), 0.001)
			assert.True(t, section.GetBool("calibrated", false))
		})
	}
}

func TestLoadConfigFileUnsupportedExtension(t *testing.T) {
	_, err := LoadConfigFile(writeTempConfig(t, "plant.json", "{}"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadYAMLConfigInvalid(t *testing.T) {
	_, err := LoadYAMLConfig([]byte("sensors: [unterminated"))
	assert.Error(t, err)
}

func TestSectionLookup(t *testing.T) {
	tree := NewConfigTree(map[string]any{
		"sensors": map[string]any{"count": 4},
		"flat":    "just a string",
	})

	_, ok := tree.Section("missing")
	assert.False(t, ok)

	_, ok = tree.Section("flat")
	assert.False(t, ok, "scalar values are not sections")

	section, ok := tree.Section("sensors")
	require.True(t, ok)
	assert.Equal(t, "sensors", section.Name())
	assert.True(t, section.Has("count"))
	assert.False(t, section.Has("ghost"))
	assert.ElementsMatch(t, []string{"sensors", "flat"}, tree.Keys())
}

func TestSectionDefaults(t *testing.T) {
	section := NewConfigSection("sensors", map[string]any{
		"count":    "not a number",
		"interval": "not a duration",
	})

	assert.Equal(t, 7, section.GetInt("count", 7))
	assert.Equal(t, 7, section.GetInt("missing", 7))
	assert.Equal(t, "fallback", section.GetString("missing", "fallback"))
	assert.True(t, section.GetBool("missing", true))
	assert.InDelta(t, 1.5, section.GetFloat("missing", 1.5), 0.001)
	assert.Equal(t, time.Second, section.GetDuration("interval", time.Second))
	assert.Equal(t, time.Second, section.GetDuration("missing", time.Second))
}

func TestGetDurationUnits(t *testing.T) {
	section := NewConfigSection("scheduler", map[string]any{
		"as_string": "1m30s",
		"as_number": 1500,
	})

	assert.Equal(t, 90*time.Second, section.GetDuration("as_string", 0))
	assert.Equal(t, 1500*time.Millisecond, section.GetDuration("as_number", 0),
		"bare numbers are milliseconds")
}

func TestDeriveSectionName(t *testing.T) {
	for input, want := range map[string]string{
		"WiFiModule":   "wifi",
		"wifi_module":  "wifi",
		"wifi-module":  "wifi",
		"temp-sensors": "temp-sensors",
		"Defrost":      "defrost",
		"module":       "module",
	} {
		assert.Equal(t, want, deriveSectionName(input), input)
	}
}
