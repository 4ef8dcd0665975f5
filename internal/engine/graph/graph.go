// Package graph tracks depends-on and used-by relations between labels and
// orders build units so that dependencies come first.
package graph

import (
	"log/slog"
	"sync"

	"bazelcp/internal/engine/label"
	"bazelcp/internal/engine/metadata"
	"bazelcp/internal/shared/observability"
)

// Graph is a directed dependency graph over labels. It is safe for
// concurrent use.
type Graph struct {
	mu sync.RWMutex

	dependsOn map[label.Label]map[label.Label]bool // source -> deps
	usedBy    map[label.Label]map[label.Label]bool // dep -> sources
	edges     int
}

func New() *Graph {
	return &Graph{
		dependsOn: make(map[label.Label]map[label.Label]bool),
		usedBy:    make(map[label.Label]map[label.Label]bool),
	}
}

// FromRecords builds a graph from declared record dependencies. With
// packageLevel set, both ends of each edge are collapsed to their package
// label and edges within one package are dropped.
func FromRecords(records []*metadata.Record, packageLevel bool) *Graph {
	g := New()
	for _, rec := range records {
		src := rec.Label()
		if packageLevel {
			src = src.PackageLabel()
		}
		g.addNode(src)
		for _, dep := range rec.Deps() {
			if packageLevel {
				dep = dep.PackageLabel()
				if dep == src {
					continue
				}
			}
			g.AddEdge(src, dep)
		}
	}
	g.mu.RLock()
	observability.GraphNodes.Set(float64(len(g.nodesLocked())))
	observability.GraphEdges.Set(float64(g.edges))
	g.mu.RUnlock()
	return g
}

// AddEdge records that source depends on dep. Adding an existing edge is a
// no-op.
func (g *Graph) AddEdge(source, dep label.Label) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.dependsOn[source] == nil {
		g.dependsOn[source] = make(map[label.Label]bool)
	}
	if g.dependsOn[source][dep] {
		return
	}
	g.dependsOn[source][dep] = true
	if g.usedBy[dep] == nil {
		g.usedBy[dep] = make(map[label.Label]bool)
	}
	g.usedBy[dep][source] = true
	g.edges++
	slog.Debug("dependency edge", "source", source.String(), "dep", dep.String())
}

// addNode registers a label without edges so it is reported as both a root
// and a leaf until edges arrive.
func (g *Graph) addNode(l label.Label) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dependsOn[l] == nil {
		g.dependsOn[l] = make(map[label.Label]bool)
	}
}

// DependsOn returns the direct dependencies of l, sorted.
func (g *Graph) DependsOn(l label.Label) []label.Label {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependsOn[l])
}

// UsedBy returns the labels that directly depend on l, sorted.
func (g *Graph) UsedBy(l label.Label) []label.Label {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.usedBy[l])
}

// Roots are labels no other label depends on.
func (g *Graph) Roots() []label.Label {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []label.Label
	for _, l := range g.nodesLocked() {
		if len(g.usedBy[l]) == 0 {
			out = append(out, l)
		}
	}
	return out
}

// Leaves are labels with no dependencies of their own.
func (g *Graph) Leaves() []label.Label {
	return g.leaves(true)
}

// LeavesIgnoringExternals treats edges into external repositories as absent
// and never reports an external label.
func (g *Graph) LeavesIgnoringExternals() []label.Label {
	return g.leaves(false)
}

func (g *Graph) leaves(includeExternal bool) []label.Label {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []label.Label
	for _, l := range g.nodesLocked() {
		if !includeExternal && l.IsExternal() {
			continue
		}
		leaf := true
		for dep := range g.dependsOn[l] {
			if includeExternal || !dep.IsExternal() {
				leaf = false
				break
			}
		}
		if leaf {
			out = append(out, l)
		}
	}
	return out
}

// Len returns the node and edge counts.
func (g *Graph) Len() (nodes, edges int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodesLocked()), g.edges
}

func (g *Graph) nodesLocked() []label.Label {
	seen := make(map[label.Label]bool, len(g.dependsOn)+len(g.usedBy))
	for l := range g.dependsOn {
		seen[l] = true
	}
	for l := range g.usedBy {
		seen[l] = true
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[label.Label]bool) []label.Label {
	out := make([]label.Label, 0, len(m))
	for l := range m {
		out = append(out, l)
	}
	label.Sort(out)
	return out
}
