// Package ownership maps source files to the in-workspace module that owns them.
package ownership

import (
	"sort"

	"bazelcp/internal/shared/util"
)

type Module struct {
	Name string
	// Roots are workspace-relative directories whose files belong to the module.
	Roots []string
}

type root struct {
	dir    string
	module string
}

// Map resolves ownership by longest matching root. It is read-only after New.
type Map struct {
	roots []root
}

func New(modules []Module) *Map {
	m := &Map{}
	for _, mod := range modules {
		for _, r := range mod.Roots {
			m.roots = append(m.roots, root{dir: util.NormalizePatternPath(r), module: mod.Name})
		}
	}
	sort.SliceStable(m.roots, func(i, j int) bool { return len(m.roots[i].dir) > len(m.roots[j].dir) })
	return m
}

// OwningModule returns the module owning the first source with an owner.
func (m *Map) OwningModule(sources []string) (string, bool) {
	for _, src := range sources {
		if name, ok := m.ModuleFor(src); ok {
			return name, true
		}
	}
	return "", false
}

// ModuleFor returns the owner of one path. The empty root owns everything
// not claimed by a longer root.
func (m *Map) ModuleFor(path string) (string, bool) {
	p := util.NormalizePatternPath(path)
	for _, r := range m.roots {
		if r.dir == "" || util.HasPathPrefix(p, r.dir) {
			return r.module, true
		}
	}
	return "", false
}
