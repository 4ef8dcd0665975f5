package strategy

import (
	"context"
	"log/slog"

	domainerrors "bazelcp/internal/core/errors"
	"bazelcp/internal/core/ports"
	"bazelcp/internal/engine/classpath"
	"bazelcp/internal/engine/metadata"
)

const AspectName = "aspect"

// Aspect resolves a target from the aspect records in the request index.
type Aspect struct {
	ownership ports.ModuleOwnership
	implicit  ports.ImplicitDependencyProvider
	artifacts ports.ArtifactResolver
}

// NewAspect builds the strategy. Any collaborator may be nil: no ownership
// means every dependency contributes jars, no implicit provider means no
// runtime entries, no resolver keeps reported paths unchanged.
func NewAspect(ownership ports.ModuleOwnership, implicit ports.ImplicitDependencyProvider, artifacts ports.ArtifactResolver) *Aspect {
	return &Aspect{ownership: ownership, implicit: implicit, artifacts: artifacts}
}

func (a *Aspect) Name() string { return AspectName }

func (a *Aspect) Resolve(ctx context.Context, req Request, b *classpath.Builder) (bool, error) {
	if req.Index == nil {
		return false, nil
	}
	records, ok := req.Index.Records(req.Target)
	if !ok || len(records) == 0 {
		slog.Warn("no aspect metadata for target", "target", req.Target.String(), "unit", req.Unit)
		return false, nil
	}

	testScope := req.Kind.IsTest()
	for _, rec := range records {
		if err := domainerrors.FromContext(ctx, "aspect strategy"); err != nil {
			return false, err
		}

		if req.Activated.Contains(rec.Label()) {
			switch rec.Kind() {
			case metadata.KindLibrary, metadata.KindBinary:
				// Compiled from the unit's own sources.
				continue
			case metadata.KindTest:
				a.addImplicit(ctx, rec, b)
				continue
			case metadata.KindImport:
			default:
				slog.Info("unsupported target kind on classpath", "target", rec.Label().String(), "rule", rec.Rule())
			}
		}

		owner, owned := "", false
		if a.ownership != nil {
			owner, owned = a.ownership.OwningModule(rec.Sources())
		}
		switch {
		case !owned:
			a.addJars(rec, testScope, b)
		case owner != req.Unit:
			b.Add(classpath.ModuleRef(owner), testScope)
			b.AddModuleReference(owner)
		default:
			// Same module: only rules that are not compiled from source
			// (generated code, imports) contribute their jars.
			switch rec.Kind() {
			case metadata.KindLibrary, metadata.KindBinary, metadata.KindTest:
			default:
				a.addJars(rec, testScope, b)
			}
		}
	}
	return true, nil
}

func (a *Aspect) addImplicit(ctx context.Context, rec *metadata.Record, b *classpath.Builder) {
	if a.implicit == nil {
		return
	}
	entries, err := a.implicit.ImplicitDependencies(ctx, rec)
	if err != nil {
		slog.Warn("implicit dependencies unavailable", "target", rec.Label().String(), "error", err)
		return
	}
	b.AddImplicit(entries...)
}

// addJars adds generated jars before produced ones.
func (a *Aspect) addJars(rec *metadata.Record, testScope bool, b *classpath.Builder) {
	for _, art := range rec.Artifacts() {
		b.Add(classpath.Binary(a.resolve(art.Binary), a.resolve(art.Source), testScope), testScope)
	}
}

func (a *Aspect) resolve(path string) string {
	if a.artifacts == nil || path == "" {
		return path
	}
	return a.artifacts.Resolve(path)
}
