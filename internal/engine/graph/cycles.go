package graph

import (
	"errors"
	"sort"

	domainerrors "bazelcp/internal/core/errors"
	"bazelcp/internal/engine/label"

	graphlib "github.com/dominikbraun/graph"
)

// Cycles returns every strongly connected component with more than one
// label, plus labels that depend on themselves. Each cycle is sorted and the
// result is ordered by first label.
func (g *Graph) Cycles() ([][]label.Label, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	byKey := make(map[string]label.Label)
	dg := graphlib.New(graphlib.StringHash, graphlib.Directed())
	for _, l := range g.nodesLocked() {
		byKey[l.String()] = l
		if err := dg.AddVertex(l.String()); err != nil && !errors.Is(err, graphlib.ErrVertexAlreadyExists) {
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "building cycle graph")
		}
	}
	for src, deps := range g.dependsOn {
		for dep := range deps {
			if err := dg.AddEdge(src.String(), dep.String()); err != nil && !errors.Is(err, graphlib.ErrEdgeAlreadyExists) {
				return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "building cycle graph")
			}
		}
	}

	components, err := graphlib.StronglyConnectedComponents(dg)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "computing strongly connected components")
	}

	var cycles [][]label.Label
	for _, comp := range components {
		if len(comp) == 1 && !g.dependsOn[byKey[comp[0]]][byKey[comp[0]]] {
			continue
		}
		cycle := make([]label.Label, 0, len(comp))
		for _, key := range comp {
			cycle = append(cycle, byKey[key])
		}
		label.Sort(cycle)
		cycles = append(cycles, cycle)
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i][0].String() < cycles[j][0].String()
	})
	return cycles, nil
}

// Path returns the shortest dependency chain from -> ... -> to, visiting
// dependencies in label order so the answer is stable.
func (g *Graph) Path(from, to label.Label) ([]label.Label, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if from == to {
		return []label.Label{from}, true
	}

	queue := []label.Label{from}
	visited := map[label.Label]bool{from: true}
	prev := make(map[label.Label]label.Label)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, next := range sortedKeys(g.dependsOn[curr]) {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr

			if next == to {
				path := []label.Label{to}
				for node := to; node != from; {
					node = prev[node]
					path = append(path, node)
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}
