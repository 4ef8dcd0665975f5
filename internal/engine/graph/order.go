package graph

import (
	"slices"

	"bazelcp/internal/engine/label"
)

// OrderForImport orders selected so that every label comes after the
// selected labels it depends on. Duplicates keep their first position.
//
// Each label is inserted before the earliest already placed label that
// depends on it, or appended. A single pass is not always enough, so passes
// repeat over the previous output until nothing moves, at most len(selected)
// times. Reachability answers are shared across passes.
func (g *Graph) OrderForImport(selected []label.Label, followExternal bool) []label.Label {
	ordered := dedupe(selected)
	opts := DependencyOptions{Memo: NewMemo(), FollowExternal: followExternal}

	for pass := 0; pass < len(ordered); pass++ {
		next := g.insertionPass(ordered, opts)
		if slices.Equal(next, ordered) {
			break
		}
		ordered = next
	}
	return ordered
}

func (g *Graph) insertionPass(in []label.Label, opts DependencyOptions) []label.Label {
	out := make([]label.Label, 0, len(in))
	for _, cur := range in {
		at := len(out)
		for i, placed := range out {
			if g.IsDependencyWith(placed, cur, opts) {
				at = i
				break
			}
		}
		out = slices.Insert(out, at, cur)
	}
	return out
}

func dedupe(labels []label.Label) []label.Label {
	seen := make(map[label.Label]bool, len(labels))
	out := make([]label.Label, 0, len(labels))
	for _, l := range labels {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
