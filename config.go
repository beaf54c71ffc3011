package coldcore

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

// ConfigTree is the nested key-value configuration supplied whole to
// ConfigureAll. The orchestration core only extracts named subsections from
// it; parsing and persistence belong to the configuration collaborator.
type ConfigTree struct {
	root map[string]any
}

// NewConfigTree wraps an already-decoded configuration map.
func NewConfigTree(root map[string]any) *ConfigTree {
	if root == nil {
		root = make(map[string]any)
	}
	return &ConfigTree{root: root}
}

// LoadConfigFile loads a configuration tree from a YAML or TOML file,
// selected by extension.
func LoadConfigFile(path string) (*ConfigTree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAMLConfig(data)
	case ".toml":
		return LoadTOMLConfig(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoadYAMLConfig decodes a YAML document into a configuration tree.
func LoadYAMLConfig(data []byte) (*ConfigTree, error) {
	root := make(map[string]any)
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return NewConfigTree(root), nil
}

// LoadTOMLConfig decodes a TOML document into a configuration tree.
func LoadTOMLConfig(data []byte) (*ConfigTree, error) {
	root := make(map[string]any)
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return NewConfigTree(root), nil
}

// Section extracts the named subsection. The second result is false when the
// tree has no such key or the key does not hold a nested table.
func (t *ConfigTree) Section(name string) (*ConfigSection, bool) {
	raw, ok := t.root[name]
	if !ok {
		return nil, false
	}
	values, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	return &ConfigSection{name: name, values: values}, true
}

// Keys returns the top-level section names present in the tree.
func (t *ConfigTree) Keys() []string {
	keys := make([]string, 0, len(t.root))
	for k := range t.root {
		keys = append(keys, k)
	}
	return keys
}

// ConfigSection is one module's slice of the configuration tree with typed,
// defaulting accessors. Value coercion goes through golobby/cast so that
// YAML and TOML scalar representations behave identically.
type ConfigSection struct {
	name   string
	values map[string]any
}

// NewConfigSection builds a standalone section, mainly for Reload calls and
// tests.
func NewConfigSection(name string, values map[string]any) *ConfigSection {
	if values == nil {
		values = make(map[string]any)
	}
	return &ConfigSection{name: name, values: values}
}

// Name returns the section's key in the configuration tree.
func (s *ConfigSection) Name() string { return s.name }

// Raw returns the underlying key-value map.
func (s *ConfigSection) Raw() map[string]any { return s.values }

// Has reports whether the section contains key.
func (s *ConfigSection) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// GetString returns the string value at key, or def when absent.
func (s *ConfigSection) GetString(key, def string) string {
	raw, ok := s.values[key]
	if !ok {
		return def
	}
	return fmt.Sprintf("%v", raw)
}

// GetInt returns the integer value at key, or def when absent or not
// convertible.
func (s *ConfigSection) GetInt(key string, def int) int {
	raw, ok := s.values[key]
	if !ok {
		return def
	}
	v, err := cast.FromType(fmt.Sprintf("%v", raw), reflect.TypeOf(0))
	if err != nil {
		return def
	}
	return v.(int)
}

// GetBool returns the boolean value at key, or def when absent or not
// convertible.
func (s *ConfigSection) GetBool(key string, def bool) bool {
	raw, ok := s.values[key]
	if !ok {
		return def
	}
	v, err := cast.FromType(fmt.Sprintf("%v", raw), reflect.TypeOf(false))
	if err != nil {
		return def
	}
	return v.(bool)
}

// GetFloat returns the float value at key, or def when absent or not
// convertible.
func (s *ConfigSection) GetFloat(key string, def float64) float64 {
	raw, ok := s.values[key]
	if !ok {
		return def
	}
	v, err := cast.FromType(fmt.Sprintf("%v", raw), reflect.TypeOf(float64(0)))
	if err != nil {
		return def
	}
	return v.(float64)
}

// GetDuration returns the duration at key, or def when absent or not
// convertible. Strings are parsed with time.ParseDuration ("250ms", "30s");
// bare numbers are taken as milliseconds, matching the units used throughout
// the controller configuration.
func (s *ConfigSection) GetDuration(key string, def time.Duration) time.Duration {
	raw, ok := s.values[key]
	if !ok {
		return def
	}
	if str, isStr := raw.(string); isStr {
		if d, err := time.ParseDuration(str); err == nil {
			return d
		}
		return def
	}
	v, err := cast.FromType(fmt.Sprintf("%v", raw), reflect.TypeOf(int64(0)))
	if err != nil {
		return def
	}
	return time.Duration(v.(int64)) * time.Millisecond
}

// deriveSectionName maps a module name to its conventional configuration
// section when the manifest does not declare one: strip a trailing "module"
// (with optional separator) and lowercase the rest, so "WiFiModule" and
// "wifi_module" both resolve to "wifi".
func deriveSectionName(moduleName string) string {
	name := strings.ToLower(moduleName)
	for _, suffix := range []string{"_module", "-module", "module"} {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}
