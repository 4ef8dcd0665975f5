package graph

import (
	"log/slog"
	"sync"

	"bazelcp/internal/engine/label"
)

// Memo caches reachability answers across IsDependency calls. It is keyed
// by "label~dependency" and is safe for concurrent use. A nil *Memo
// disables caching.
type Memo struct {
	mu      sync.Mutex
	answers map[string]bool
}

func NewMemo() *Memo {
	return &Memo{answers: make(map[string]bool)}
}

func (m *Memo) get(key string) (bool, bool) {
	if m == nil {
		return false, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.answers[key]
	return v, ok
}

func (m *Memo) put(key string, v bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.answers[key] = v
	m.mu.Unlock()
}

// Len reports the number of cached answers.
func (m *Memo) Len() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.answers)
}

func memoKey(l, dep label.Label) string {
	return l.String() + "~" + dep.String()
}

// DependencyOptions tune IsDependencyWith.
type DependencyOptions struct {
	Memo *Memo
	// FollowExternal walks through labels of external repositories. When
	// false an external label is treated as having no dependencies.
	FollowExternal bool
}

// IsDependency reports whether possible is a direct or transitive dependency
// of l, following external labels.
func (g *Graph) IsDependency(l, possible label.Label) bool {
	return g.IsDependencyWith(l, possible, DependencyOptions{FollowExternal: true})
}

// IsDependencyWith is IsDependency with an optional memo and external
// handling. A cycle in the graph is logged and the search continues with
// the remaining edges.
func (g *Graph) IsDependencyWith(l, possible label.Label, opts DependencyOptions) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := &search{
		g:        g,
		target:   possible,
		opts:     opts,
		state:    make(map[label.Label]visitState),
		reported: make(map[label.Label]bool),
	}
	found, _ := s.visit(l)
	return found
}

type visitState uint8

const (
	unvisited visitState = iota
	onStack
	finished
)

type search struct {
	g        *Graph
	target   label.Label
	opts     DependencyOptions
	state    map[label.Label]visitState
	reported map[label.Label]bool
}

// visit returns whether target is reachable from l. truncated is set when
// the answer depended on a node still on the stack, in which case a negative
// answer is not safe to memoize.
func (s *search) visit(l label.Label) (found, truncated bool) {
	if !s.opts.FollowExternal && l.IsExternal() {
		return false, false
	}
	key := memoKey(l, s.target)
	if v, ok := s.opts.Memo.get(key); ok {
		return v, false
	}

	switch s.state[l] {
	case onStack:
		if !s.reported[l] {
			s.reported[l] = true
			slog.Warn("dependency cycle detected", "label", l.String(), "searching", s.target.String())
		}
		return false, true
	case finished:
		// Only reached when the earlier negative answer was not memoized.
		return false, true
	}

	s.state[l] = onStack
	defer func() { s.state[l] = finished }()

	deps := s.g.dependsOn[l]
	if deps[s.target] {
		s.opts.Memo.put(key, true)
		return true, false
	}
	for _, dep := range sortedKeys(deps) {
		ok, cut := s.visit(dep)
		if ok {
			s.opts.Memo.put(key, true)
			return true, false
		}
		truncated = truncated || cut
	}
	if !truncated {
		s.opts.Memo.put(key, false)
	}
	return false, truncated
}
