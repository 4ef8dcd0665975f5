package coordinator

import (
	"context"
	"log/slog"

	"bazelcp/internal/engine/classpath"
	"bazelcp/internal/shared/observability"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// UnitResult is the outcome of one unit in a batch.
type UnitResult struct {
	Unit   string
	Result *classpath.Result
	Err    error
}

// ResolveBatch resolves units in parallel, bounded by Options.Parallelism.
// Units are started in import order so dependencies are resolved first.
// A failing unit does not stop the others; results keep the input order.
func (c *Coordinator) ResolveBatch(ctx context.Context, units []string) []UnitResult {
	batch := uuid.NewString()
	slog.Info("resolving batch", "batch", batch, "units", len(units), "parallelism", c.opts.Parallelism)

	results := make([]UnitResult, len(units))
	var g errgroup.Group
	g.SetLimit(c.opts.Parallelism)

	for _, i := range c.scheduleOrder(ctx, batch, units) {
		id := units[i]
		g.Go(func() error {
			res, err := c.resolve(ctx, id, batch)
			results[i] = UnitResult{Unit: id, Result: res, Err: err}
			switch {
			case err != nil:
				observability.BatchUnitsTotal.WithLabelValues("error").Inc()
				slog.Warn("build unit failed", "batch", batch, "unit", id, "error", err)
			case !res.Complete():
				observability.BatchUnitsTotal.WithLabelValues("incomplete").Inc()
			default:
				observability.BatchUnitsTotal.WithLabelValues("complete").Inc()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// scheduleOrder returns indexes into units in import order. When the units
// cannot be ordered the input order is used.
func (c *Coordinator) scheduleOrder(ctx context.Context, batch string, units []string) []int {
	positions := make(map[string][]int, len(units))
	for i, id := range units {
		positions[id] = append(positions[id], i)
	}
	inputOrder := func() []int {
		out := make([]int, len(units))
		for i := range units {
			out[i] = i
		}
		return out
	}
	if len(units) < 2 {
		return inputOrder()
	}

	ordered, err := c.OrderForImport(ctx, units)
	if err != nil {
		slog.Warn("import order unavailable, resolving in input order", "batch", batch, "error", err)
		return inputOrder()
	}
	out := make([]int, 0, len(units))
	for _, id := range ordered {
		out = append(out, positions[id]...)
		delete(positions, id)
	}
	if len(out) != len(units) {
		slog.Warn("import order dropped units, resolving in input order", "batch", batch)
		return inputOrder()
	}
	return out
}
