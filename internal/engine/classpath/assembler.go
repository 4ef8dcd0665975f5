package classpath

// Assemble freezes b into a Result. Test entries shadowed by main are
// dropped, implicit entries that repeat an explicit key are dropped, and
// module references are deduplicated by module id.
func Assemble(b *Builder) *Result {
	main := b.main.list()
	explicit := make(map[string]bool, len(main)+b.test.len())
	for _, e := range main {
		explicit[e.Key()] = true
	}

	test := make([]Entry, 0, b.test.len())
	for _, e := range b.test.list() {
		if explicit[e.Key()] {
			continue
		}
		explicit[e.Key()] = true
		test = append(test, e)
	}

	var implicit []Entry
	for _, e := range b.implicit.list() {
		if explicit[e.Key()] {
			continue
		}
		explicit[e.Key()] = true
		implicit = append(implicit, e)
	}

	refs := make([]string, 0, len(b.modules))
	seen := make(map[string]bool, len(b.modules))
	for _, m := range b.modules {
		if !seen[m] {
			seen[m] = true
			refs = append(refs, m)
		}
	}

	return &Result{
		main:       main,
		test:       test,
		implicit:   implicit,
		references: refs,
		complete:   b.complete,
	}
}
