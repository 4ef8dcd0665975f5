package classpath

import "slices"

// Result is the assembled classpath of one build unit. It is immutable;
// accessors return copies.
type Result struct {
	main       []Entry
	test       []Entry
	implicit   []Entry
	references []string
	complete   bool
}

// Empty is the result served when resolution could not run at all.
func Empty() *Result {
	return &Result{}
}

// Main entries, in first-seen order.
func (r *Result) Main() []Entry { return slices.Clone(r.main) }

// Test entries never repeat a main key.
func (r *Result) Test() []Entry { return slices.Clone(r.test) }

// Implicit entries come after main and test and never repeat their keys.
func (r *Result) Implicit() []Entry { return slices.Clone(r.implicit) }

// ModuleReferences lists referenced module ids, once each.
func (r *Result) ModuleReferences() []string { return slices.Clone(r.references) }

// Complete is false when some target lacked metadata and no fallback
// strategy covered it.
func (r *Result) Complete() bool { return r.complete }

// Entries is main, then test, then implicit.
func (r *Result) Entries() []Entry {
	out := make([]Entry, 0, len(r.main)+len(r.test)+len(r.implicit))
	out = append(out, r.main...)
	out = append(out, r.test...)
	return append(out, r.implicit...)
}

func (r *Result) Len() int { return len(r.main) + len(r.test) + len(r.implicit) }

// ArtifactPaths lists binary artifact paths in classpath order.
func (r *Result) ArtifactPaths() []string {
	var out []string
	for _, e := range r.Entries() {
		if e.Kind() == EntryBinary {
			out = append(out, e.ArtifactPath())
		}
	}
	return out
}
