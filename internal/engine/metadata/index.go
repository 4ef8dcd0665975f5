package metadata

import (
	"context"
	"fmt"
	"slices"

	domainerrors "bazelcp/internal/core/errors"
	"bazelcp/internal/engine/label"
)

// Extractor produces records for requested labels. A requested label with
// no records is left out of the result. Purpose is a short reason used in logs.
type Extractor interface {
	Extract(ctx context.Context, labels []label.Label, purpose string) (map[label.Label][]*Record, error)
}

// Index maps each requested label to the records in its transitive closure.
// It is read-only after construction.
type Index struct {
	byOwner map[label.Label][]*Record
	owners  []label.Label
}

// Build runs one extraction for labels and indexes the result.
func Build(ctx context.Context, ex Extractor, labels []label.Label, purpose string) (*Index, error) {
	if len(labels) == 0 {
		return NewIndex(nil), nil
	}
	grouped, err := ex.Extract(ctx, labels, purpose)
	if err != nil {
		return nil, err
	}
	return NewIndex(grouped), nil
}

func NewIndex(grouped map[label.Label][]*Record) *Index {
	ix := &Index{byOwner: make(map[label.Label][]*Record, len(grouped))}
	for owner, records := range grouped {
		ix.byOwner[owner] = slices.Clone(records)
		ix.owners = append(ix.owners, owner)
	}
	label.Sort(ix.owners)
	return ix
}

// Records returns the records gathered for owner. ok is false when the
// extraction produced nothing for it.
func (ix *Index) Records(owner label.Label) ([]*Record, bool) {
	recs, ok := ix.byOwner[owner]
	if !ok {
		return nil, false
	}
	return slices.Clone(recs), true
}

// Owners lists requested labels that have records, sorted.
func (ix *Index) Owners() []label.Label {
	return slices.Clone(ix.owners)
}

func (ix *Index) Len() int { return len(ix.owners) }

// All returns every distinct record across all owners, in owner order.
func (ix *Index) All() []*Record {
	seen := make(map[label.Label]bool)
	var out []*Record
	for _, owner := range ix.owners {
		for _, rec := range ix.byOwner[owner] {
			if seen[rec.label] {
				continue
			}
			seen[rec.label] = true
			out = append(out, rec)
		}
	}
	return out
}

// Describe returns the single record whose own label is target. Finding two
// different records for the same label means the extraction is inconsistent.
func (ix *Index) Describe(target label.Label) (*Record, error) {
	var found *Record
	for _, owner := range ix.owners {
		for _, rec := range ix.byOwner[owner] {
			if rec.label != target {
				continue
			}
			if found != nil && found != rec && !sameRecord(found, rec) {
				return nil, domainerrors.AddContext(
					domainerrors.New(domainerrors.CodeGraphInvariant,
						fmt.Sprintf("expected exactly one record for %s, found conflicting entries", target)),
					domainerrors.CtxLabel, target.String(),
				)
			}
			found = rec
		}
	}
	if found == nil {
		return nil, domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeMetadataUnavailable, "no metadata for target"),
			domainerrors.CtxLabel, target.String(),
		)
	}
	return found, nil
}

func sameRecord(a, b *Record) bool {
	return a.label == b.label &&
		a.rule == b.rule &&
		a.buildFile == b.buildFile &&
		slices.Equal(a.sources, b.sources) &&
		slices.Equal(a.deps, b.deps) &&
		slices.Equal(a.produced, b.produced) &&
		slices.Equal(a.generated, b.generated)
}
