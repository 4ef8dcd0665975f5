package coordinator

import (
	"slices"
	"sort"
	"sync"

	"bazelcp/internal/engine/label"
	"bazelcp/internal/shared/util"
)

// BuildUnit is one importable module: a Bazel package and the targets whose
// sources it compiles. With no Targets every rule of the package is
// activated.
type BuildUnit struct {
	ID      string
	Package label.Label
	Targets []label.Label
}

// activationKey identifies what the unit activates, so switching between
// wildcard and explicit activation never serves a stale result.
func (u BuildUnit) activationKey() string {
	if len(u.Targets) == 0 {
		return "wildcard:" + u.Package.String()
	}
	return "explicit:" + label.NewSet(u.Targets...).Fingerprint()
}

type cacheKey struct {
	unit       string
	activation string
}

// References tracks module-to-module references found while resolving. It
// lives as long as the coordinator that owns it.
type References struct {
	mu    sync.RWMutex
	edges map[string][]string
}

func NewReferences() *References {
	return &References{edges: make(map[string][]string)}
}

// Set replaces the modules unit refers to.
func (r *References) Set(unit string, modules []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(modules) == 0 {
		delete(r.edges, unit)
		return
	}
	r.edges[unit] = slices.Clone(modules)
}

// Of returns the modules unit refers to.
func (r *References) Of(unit string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.edges[unit])
}

// ReferencedBy returns the units that refer to module, sorted.
func (r *References) ReferencedBy(module string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for unit, modules := range r.edges {
		if slices.Contains(modules, module) {
			out = append(out, unit)
		}
	}
	sort.Strings(out)
	return out
}

// Units lists the units with at least one recorded reference, sorted.
func (r *References) Units() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return util.SortedStringKeys(r.edges)
}

func (r *References) Clear(unit string) {
	r.mu.Lock()
	delete(r.edges, unit)
	r.mu.Unlock()
}

func (r *References) Reset() {
	r.mu.Lock()
	r.edges = make(map[string][]string)
	r.mu.Unlock()
}
