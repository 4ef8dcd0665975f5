package classpath

import "slices"

// Builder accumulates entries across targets and strategies. It is not safe
// for concurrent use; one builder belongs to one resolution.
type Builder struct {
	main     *entrySet
	test     *entrySet
	implicit *entrySet
	modules  []string
	seenMod  map[string]bool
	complete bool
}

func NewBuilder() *Builder {
	return &Builder{
		main:     newEntrySet(),
		test:     newEntrySet(),
		implicit: newEntrySet(),
		seenMod:  make(map[string]bool),
		complete: true,
	}
}

// Add places e in the main or test bucket. Main wins: a main add removes the
// key from test, and a test add is dropped when main already has the key.
func (b *Builder) Add(e Entry, testScope bool) {
	if testScope {
		if b.main.has(e.Key()) {
			return
		}
		b.test.put(e.withTestOnly(true))
		return
	}
	b.test.remove(e.Key())
	b.main.put(e.withTestOnly(false))
}

// AddImplicit records entries the test runtime needs.
func (b *Builder) AddImplicit(entries ...Entry) {
	for _, e := range entries {
		b.implicit.put(e.withTestOnly(true))
	}
}

// AddModuleReference records a module-to-module edge, once per module.
// It reports whether the reference is new.
func (b *Builder) AddModuleReference(module string) bool {
	if module == "" || b.seenMod[module] {
		return false
	}
	b.seenMod[module] = true
	b.modules = append(b.modules, module)
	return true
}

// MarkIncomplete records that at least one target could not be fully resolved.
func (b *Builder) MarkIncomplete() { b.complete = false }

func (b *Builder) Complete() bool { return b.complete }

// Merge copies other into b with the same promotion rule, main entries first.
func (b *Builder) Merge(other *Builder) {
	for _, e := range other.main.list() {
		b.Add(e, false)
	}
	for _, e := range other.test.list() {
		b.Add(e, true)
	}
	b.AddImplicit(other.implicit.list()...)
	for _, m := range other.modules {
		b.AddModuleReference(m)
	}
	if !other.complete {
		b.complete = false
	}
}

// Len counts main and test entries.
func (b *Builder) Len() int { return b.main.len() + b.test.len() }

type entrySet struct {
	keys    []string
	entries map[string]Entry
}

func newEntrySet() *entrySet {
	return &entrySet{entries: make(map[string]Entry)}
}

func (s *entrySet) has(key string) bool {
	_, ok := s.entries[key]
	return ok
}

// put keeps first-insertion position and the latest value.
func (s *entrySet) put(e Entry) {
	key := e.Key()
	if _, ok := s.entries[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.entries[key] = e
}

func (s *entrySet) remove(key string) {
	if _, ok := s.entries[key]; !ok {
		return
	}
	delete(s.entries, key)
	s.keys = slices.DeleteFunc(s.keys, func(k string) bool { return k == key })
}

func (s *entrySet) len() int { return len(s.keys) }

func (s *entrySet) list() []Entry {
	out := make([]Entry, len(s.keys))
	for i, k := range s.keys {
		out[i] = s.entries[k]
	}
	return out
}
