package coordinator

import (
	"context"

	domainerrors "bazelcp/internal/core/errors"
	"bazelcp/internal/engine/graph"
	"bazelcp/internal/engine/label"
	"bazelcp/internal/engine/metadata"
	"bazelcp/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
)

// DependencyGraph extracts metadata for the given units and returns the
// package-level dependency graph of the records found.
func (c *Coordinator) DependencyGraph(ctx context.Context, unitIDs []string) (*graph.Graph, error) {
	ctx, span := observability.Tracer.Start(ctx, "coordinator.DependencyGraph")
	span.SetAttributes(attribute.Int("units", len(unitIDs)))

	g, err := c.dependencyGraph(ctx, unitIDs)
	observability.EndSpan(span, err)
	return g, err
}

func (c *Coordinator) dependencyGraph(ctx context.Context, unitIDs []string) (*graph.Graph, error) {
	set := label.NewSet()
	for _, id := range unitIDs {
		unit, ok := c.units[id]
		if !ok {
			return nil, domainerrors.AddContext(
				domainerrors.New(domainerrors.CodeNotFound, "unknown build unit"),
				domainerrors.CtxUnit, id,
			)
		}
		targets, _, err := c.activate(ctx, unit)
		if err != nil {
			return nil, domainerrors.AddContext(err, domainerrors.CtxUnit, id)
		}
		for _, t := range targets {
			set.Add(t)
		}
	}

	idx, err := metadata.Build(ctx, c.deps.Extractor, set.Labels(), "import order")
	if err != nil {
		return nil, err
	}
	return graph.FromRecords(idx.All(), true), nil
}

// OrderForImport orders units so that every unit follows the units whose
// packages it depends on. Units sharing a package keep their relative order.
func (c *Coordinator) OrderForImport(ctx context.Context, unitIDs []string) ([]string, error) {
	g, err := c.DependencyGraph(ctx, unitIDs)
	if err != nil {
		return nil, err
	}

	byPackage := make(map[label.Label][]string)
	pkgs := make([]label.Label, 0, len(unitIDs))
	for _, id := range unitIDs {
		pkg := c.units[id].Package
		if _, seen := byPackage[pkg]; !seen {
			pkgs = append(pkgs, pkg)
		}
		byPackage[pkg] = append(byPackage[pkg], id)
	}

	ordered := g.OrderForImport(pkgs, c.opts.FollowExternal)
	out := make([]string, 0, len(unitIDs))
	seen := make(map[string]bool, len(unitIDs))
	for _, pkg := range ordered {
		for _, id := range byPackage[pkg] {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out, nil
}
