package contract

import (
	"fmt"
	"sort"
)

// ConsistencyReport lists structural problems across registered contracts.
type ConsistencyReport struct {
	PathConflicts    []string `json:"path_conflicts"`
	DependencyCycles []string `json:"dependency_cycles"`
}

// OK reports whether no problems were found.
func (r ConsistencyReport) OK() bool {
	return len(r.PathConflicts) == 0 && len(r.DependencyCycles) == 0
}

// ValidateConsistency checks all registered contracts for duplicate endpoint
// paths and dependency cycles. A path declared by two features conflicts
// even when the methods differ: two features should not own the same URL.
func (r *Registry) ValidateConsistency() ConsistencyReport {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var report ConsistencyReport

	pathOwner := make(map[string]string)
	names := make([]string, 0, len(r.contracts))
	for name := range r.contracts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fc := r.contracts[name]
		for _, ep := range fc.Endpoints {
			owner, seen := pathOwner[ep.Path]
			if seen && owner != name {
				report.PathConflicts = append(report.PathConflicts,
					fmt.Sprintf("duplicate path %s declared by %s and %s", ep.Path, owner, name))
				continue
			}
			pathOwner[ep.Path] = name
		}
	}

	for _, name := range names {
		if cycle := r.findCycle(name); cycle != "" {
			report.DependencyCycles = append(report.DependencyCycles, cycle)
		}
	}
	return report
}

// findCycle runs a DFS from start over the dependency graph, tracking the
// in-progress path in a visiting set. Must be called with r.mu held.
func (r *Registry) findCycle(start string) string {
	visiting := make(map[string]struct{})

	var walk func(name string) bool
	walk = func(name string) bool {
		if _, ok := visiting[name]; ok {
			return true
		}
		visiting[name] = struct{}{}
		deps := make([]string, 0, len(r.deps[name]))
		for d := range r.deps[name] {
			deps = append(deps, d)
		}
		sort.Strings(deps)
		for _, d := range deps {
			if walk(d) {
				return true
			}
		}
		delete(visiting, name)
		return false
	}

	if walk(start) {
		return fmt.Sprintf("dependency cycle involving %s", start)
	}
	return ""
}
