// Package strategy turns per-target metadata into classpath entries. Each
// strategy is tried in order until one reports the target fully resolved.
package strategy

import (
	"context"
	"log/slog"

	domainerrors "bazelcp/internal/core/errors"
	"bazelcp/internal/engine/classpath"
	"bazelcp/internal/engine/label"
	"bazelcp/internal/engine/metadata"
	"bazelcp/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Request describes one target of the build unit being resolved.
type Request struct {
	// Unit is the module id the classpath is computed for.
	Unit string
	// Package is the unit's Bazel package.
	Package label.Label
	Target  label.Label
	Kind    metadata.Kind
	// Activated are the targets whose sources the unit compiles itself.
	Activated *label.Set
	Index     *metadata.Index
}

// Strategy contributes entries for req into b. complete reports that no
// later strategy is needed for this target.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, req Request, b *classpath.Builder) (complete bool, err error)
}

// Chain tries strategies in order.
type Chain struct {
	strategies []Strategy
}

func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

func (c *Chain) Names() []string {
	out := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		out[i] = s.Name()
	}
	return out
}

func (c *Chain) Len() int { return len(c.strategies) }

// Resolve runs the chain for one target. Strategy errors are logged and the
// next strategy is tried; graph invariant violations and cancellation stop
// the chain and are returned.
func (c *Chain) Resolve(ctx context.Context, req Request, b *classpath.Builder) (bool, error) {
	for _, s := range c.strategies {
		if err := domainerrors.FromContext(ctx, "classpath strategy"); err != nil {
			return false, err
		}
		sctx, span := observability.Tracer.Start(ctx, "strategy."+s.Name())
		span.SetAttributes(
			attribute.String("target", req.Target.String()),
			attribute.String("unit", req.Unit),
		)
		complete, err := s.Resolve(sctx, req, b)
		observability.EndSpan(span, err)

		switch {
		case err != nil && (domainerrors.IsCode(err, domainerrors.CodeGraphInvariant) || domainerrors.IsCode(err, domainerrors.CodeCanceled)):
			observability.StrategyOutcomesTotal.WithLabelValues(s.Name(), "error").Inc()
			return false, err
		case err != nil:
			observability.StrategyOutcomesTotal.WithLabelValues(s.Name(), "error").Inc()
			slog.Warn("classpath strategy failed", "strategy", s.Name(), "target", req.Target.String(), "error", err)
		case complete:
			observability.StrategyOutcomesTotal.WithLabelValues(s.Name(), "complete").Inc()
			return true, nil
		default:
			observability.StrategyOutcomesTotal.WithLabelValues(s.Name(), "incomplete").Inc()
		}
	}
	return false, nil
}
