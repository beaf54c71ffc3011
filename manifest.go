package coldcore

// ModuleClass categorizes a module type in its manifest. The class does not
// influence scheduling; it documents whether the controller can boot without
// the module.
type ModuleClass string

const (
	// ClassCore modules are required for the controller to be useful.
	ClassCore ModuleClass = "core"

	// ClassStandard modules ship enabled on every unit.
	ClassStandard ModuleClass = "standard"

	// ClassOptional modules depend on the hardware variant.
	ClassOptional ModuleClass = "optional"
)

// Manifest is the static, build-time-generated description of one module
// type: identity, scheduling tier, dependency list and the configuration
// section the module reads. Manifests are read-only at runtime.
type Manifest struct {
	Name          string
	Version       string
	Description   string
	Class         ModuleClass
	Priority      Priority
	Dependencies  []string
	ConfigSection string
}

// ManifestRegistry holds the manifest set keyed by module name, plus the
// fixed allow-list of system-provided capability names. A dependency on an
// allow-listed name (the hardware abstraction layer, the event bus, ...) is
// satisfied by the surrounding firmware and never resolves to a manifest
// entry.
type ManifestRegistry struct {
	manifests map[string]Manifest
	order     []string
	provided  map[string]struct{}
}

// NewManifestRegistry builds a registry from the generated manifest set.
// Manifest order is preserved and used as the stable tie-break during
// dependency resolution. systemProvided lists capability names owned by
// external collaborators that module dependencies may reference.
func NewManifestRegistry(manifests []Manifest, systemProvided ...string) *ManifestRegistry {
	r := &ManifestRegistry{
		manifests: make(map[string]Manifest, len(manifests)),
		order:     make([]string, 0, len(manifests)),
		provided:  make(map[string]struct{}, len(systemProvided)),
	}
	for _, m := range manifests {
		if _, exists := r.manifests[m.Name]; exists {
			continue
		}
		r.manifests[m.Name] = m
		r.order = append(r.order, m.Name)
	}
	for _, name := range systemProvided {
		r.provided[name] = struct{}{}
	}
	return r
}

// Lookup returns the manifest registered under name.
func (r *ManifestRegistry) Lookup(name string) (Manifest, bool) {
	m, ok := r.manifests[name]
	return m, ok
}

// All returns every manifest in registration order.
func (r *ManifestRegistry) All() []Manifest {
	out := make([]Manifest, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.manifests[name])
	}
	return out
}

// Names returns every manifest name in registration order.
func (r *ManifestRegistry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// IsSystemProvided reports whether name is on the allow-list of capabilities
// satisfied by the surrounding firmware rather than by a manifest entry.
func (r *ManifestRegistry) IsSystemProvided(name string) bool {
	_, ok := r.provided[name]
	return ok
}

// Len returns the number of registered manifests.
func (r *ManifestRegistry) Len() int {
	return len(r.order)
}
