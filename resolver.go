package coldcore

import (
	"fmt"
	"sort"
	"strings"
)

// Resolver computes the load order of the manifest set. It builds a directed
// graph with an edge from every dependency to its dependent, then runs a
// Kahn-style topological sort. Nodes become ready once all of their declared
// dependencies have been emitted; among ready nodes the resolver always emits
// the lowest priority tier first, with manifest order as the stable
// tie-break, so modules of equal dependency depth come out tier-sorted.
type Resolver struct {
	registry *ManifestRegistry
	logger   Logger
}

// NewResolver creates a resolver over the given manifest registry.
func NewResolver(registry *ManifestRegistry, logger Logger) *Resolver {
	return &Resolver{registry: registry, logger: logger}
}

// LoadOrder returns a total order of module names in which every module
// appears after all of its declared dependencies.
//
// A dependency that is not a manifest entry is tolerated only when it is on
// the registry's system-provided allow-list; otherwise LoadOrder fails with
// ErrMissingDependency. If a cycle exists, LoadOrder fails with
// ErrDependencyCycle naming the modules trapped in it; no partial order is
// ever returned.
func (r *Resolver) LoadOrder() ([]string, error) {
	names := r.registry.Names()
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}

	// dependency -> dependents, plus in-degree per node counting only
	// dependencies that are themselves manifest entries.
	dependents := make(map[string][]string, len(names))
	inDegree := make(map[string]int, len(names))
	for _, name := range names {
		inDegree[name] = 0
	}
	for _, name := range names {
		m, _ := r.registry.Lookup(name)
		for _, dep := range m.Dependencies {
			if _, ok := r.registry.Lookup(dep); !ok {
				if r.registry.IsSystemProvided(dep) {
					r.logger.Debug("Dependency satisfied by system capability", "module", name, "dependency", dep)
					continue
				}
				return nil, fmt.Errorf("%w: %s requires %s", ErrMissingDependency, name, dep)
			}
			dependents[dep] = append(dependents[dep], name)
			inDegree[name]++
		}
	}

	var ready []string
	for _, name := range names {
		if inDegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(names))
	for len(ready) > 0 {
		// Lowest tier first; manifest order keeps equal tiers stable.
		sort.SliceStable(ready, func(i, j int) bool {
			mi, _ := r.registry.Lookup(ready[i])
			mj, _ := r.registry.Lookup(ready[j])
			if mi.Priority != mj.Priority {
				return mi.Priority < mj.Priority
			}
			return index[ready[i]] < index[ready[j]]
		})

		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dep := range dependents[next] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) < len(names) {
		var cyclic []string
		for _, name := range names {
			if inDegree[name] > 0 {
				cyclic = append(cyclic, name)
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(cyclic, ", "))
	}

	r.logger.Debug("Resolved module load order", "order", order)
	return order, nil
}

// ValidateDependencies reports, per module, every declared dependency that is
// neither a manifest entry nor a system-provided capability. Unlike
// LoadOrder it never fails: the result lets the controller boot a degraded
// module set while logging exactly what is unresolved.
func (r *Resolver) ValidateDependencies() map[string][]string {
	unresolved := make(map[string][]string)
	for _, m := range r.registry.All() {
		for _, dep := range m.Dependencies {
			if _, ok := r.registry.Lookup(dep); ok {
				continue
			}
			if r.registry.IsSystemProvided(dep) {
				continue
			}
			unresolved[m.Name] = append(unresolved[m.Name], dep)
		}
	}
	for name, deps := range unresolved {
		r.logger.Warn("Module has unresolved dependencies", "module", name, "missing", deps)
	}
	return unresolved
}
