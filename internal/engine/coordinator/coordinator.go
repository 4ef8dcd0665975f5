// Package coordinator resolves the classpath of build units: it activates
// targets, extracts metadata once per resolution, runs the strategy chain per
// target, assembles the result and caches it.
package coordinator

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	domainerrors "bazelcp/internal/core/errors"
	"bazelcp/internal/core/ports"
	"bazelcp/internal/engine/classpath"
	"bazelcp/internal/engine/label"
	"bazelcp/internal/engine/metadata"
	"bazelcp/internal/engine/strategy"
	"bazelcp/internal/shared/observability"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// FailurePolicy decides what a transport failure turns into.
type FailurePolicy string

const (
	// PolicyPropagate returns the error to the caller.
	PolicyPropagate FailurePolicy = "propagate"
	// PolicyEmpty logs the error and serves an empty, incomplete classpath.
	PolicyEmpty FailurePolicy = "empty"
)

type Options struct {
	CacheTTL      time.Duration
	CacheCapacity int
	Policy        FailurePolicy
	// Parallelism bounds ResolveBatch. Zero or less means one unit at a time.
	Parallelism int
	// Exclude holds glob patterns matched against activated target labels.
	Exclude []string
	// FollowExternal lets import ordering walk through external repositories.
	FollowExternal bool
}

// Deps are the collaborators of a Coordinator. Lister may be nil when every
// unit names its targets explicitly.
type Deps struct {
	Extractor ports.MetadataExtractor
	Lister    ports.TargetLister
	Chain     *strategy.Chain
}

type Coordinator struct {
	units   map[string]BuildUnit
	order   []string
	deps    Deps
	opts    Options
	exclude []glob.Glob

	cache *classpath.Cache[cacheKey, *classpath.Result]
	refs  *References

	lockMu  sync.Mutex
	publish map[string]*sync.Mutex
}

var _ ports.ClasspathService = (*Coordinator)(nil)

func New(units []BuildUnit, deps Deps, opts Options) (*Coordinator, error) {
	if deps.Extractor == nil {
		return nil, domainerrors.New(domainerrors.CodeValidationError, "metadata extractor is required")
	}
	if deps.Chain == nil || deps.Chain.Len() == 0 {
		return nil, domainerrors.New(domainerrors.CodeValidationError, "at least one classpath strategy is required")
	}
	switch opts.Policy {
	case "":
		opts.Policy = PolicyPropagate
	case PolicyPropagate, PolicyEmpty:
	default:
		return nil, domainerrors.Newf(domainerrors.CodeValidationError, "unknown failure policy %q", opts.Policy)
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}

	c := &Coordinator{
		units:   make(map[string]BuildUnit, len(units)),
		deps:    deps,
		opts:    opts,
		cache:   classpath.NewCache[cacheKey, *classpath.Result]("classpath", opts.CacheTTL, opts.CacheCapacity),
		refs:    NewReferences(),
		publish: make(map[string]*sync.Mutex),
	}
	for _, u := range units {
		u.ID = strings.TrimSpace(u.ID)
		if u.ID == "" {
			return nil, domainerrors.New(domainerrors.CodeValidationError, "build unit id must not be empty")
		}
		if _, dup := c.units[u.ID]; dup {
			return nil, domainerrors.AddContext(
				domainerrors.New(domainerrors.CodeValidationError, "duplicate build unit"),
				domainerrors.CtxUnit, u.ID,
			)
		}
		if u.Package.IsZero() {
			return nil, domainerrors.AddContext(
				domainerrors.New(domainerrors.CodeValidationError, "build unit has no package"),
				domainerrors.CtxUnit, u.ID,
			)
		}
		u.Package = u.Package.PackageLabel()
		c.units[u.ID] = u
		c.order = append(c.order, u.ID)
	}
	for _, p := range opts.Exclude {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, domainerrors.AddContext(
				domainerrors.Wrap(err, domainerrors.CodeValidationError, "invalid exclude pattern"),
				"pattern", p,
			)
		}
		c.exclude = append(c.exclude, g)
	}
	return c, nil
}

// Units returns the registered unit ids in registration order.
func (c *Coordinator) Units() []string {
	return append([]string(nil), c.order...)
}

func (c *Coordinator) Unit(id string) (BuildUnit, bool) {
	u, ok := c.units[id]
	return u, ok
}

// References exposes the module reference registry.
func (c *Coordinator) References() *References { return c.refs }

// ResolveClasspath returns the cached classpath of unit or computes it.
// Metadata that is missing for a target makes the result incomplete;
// transport failures follow the failure policy; graph invariant violations
// and cancellation are always returned.
func (c *Coordinator) ResolveClasspath(ctx context.Context, unitID string) (*classpath.Result, error) {
	return c.resolve(ctx, unitID, uuid.NewString())
}

func (c *Coordinator) resolve(ctx context.Context, unitID, batch string) (*classpath.Result, error) {
	unit, ok := c.units[unitID]
	if !ok {
		return nil, domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeNotFound, "unknown build unit"),
			domainerrors.CtxUnit, unitID,
		)
	}

	key := cacheKey{unit: unit.ID, activation: unit.activationKey()}
	if res, ok := c.cache.Get(key); ok {
		return res, nil
	}

	ctx, span := observability.Tracer.Start(ctx, "coordinator.ResolveClasspath")
	span.SetAttributes(attribute.String("unit", unit.ID), attribute.String("batch", batch))
	log := slog.With("unit", unit.ID, "batch", batch)

	start := time.Now()
	res, err := c.compute(ctx, unit, key, batch)
	observability.EndSpan(span, err)

	if err != nil {
		observability.ResolutionDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		if c.opts.Policy == PolicyEmpty && recoverable(err) {
			log.Warn("classpath resolution failed, serving empty classpath", "error", err)
			return classpath.Empty(), nil
		}
		return nil, domainerrors.AddContext(err, domainerrors.CtxUnit, unit.ID)
	}

	outcome := "complete"
	if !res.Complete() {
		outcome = "incomplete"
	}
	observability.ResolutionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	log.Debug("classpath resolved", "entries", res.Len(), "complete", res.Complete())
	return res, nil
}

func recoverable(err error) bool {
	return !domainerrors.IsCode(err, domainerrors.CodeGraphInvariant) &&
		!domainerrors.IsCode(err, domainerrors.CodeCanceled)
}

func (c *Coordinator) compute(ctx context.Context, unit BuildUnit, key cacheKey, batch string) (*classpath.Result, error) {
	targets, kinds, err := c.activate(ctx, unit)
	if err != nil {
		return nil, err
	}

	// Extraction may run bazel for a long time and holds no lock.
	idx, err := metadata.Build(ctx, c.deps.Extractor, targets, "classpath "+unit.ID)
	if err != nil {
		return nil, err
	}

	b := classpath.NewBuilder()
	activated := label.NewSet(targets...)
	for _, target := range targets {
		if err := domainerrors.FromContext(ctx, "resolve classpath"); err != nil {
			return nil, err
		}
		kind, known := kinds[target]
		if !known {
			rec, err := idx.Describe(target)
			switch {
			case err == nil:
				kind = rec.Kind()
			case domainerrors.IsCode(err, domainerrors.CodeGraphInvariant):
				return nil, err
			default:
				kind = metadata.KindOther
			}
		}

		req := strategy.Request{
			Unit:      unit.ID,
			Package:   unit.Package,
			Target:    target,
			Kind:      kind,
			Activated: activated,
			Index:     idx,
		}
		complete, err := c.deps.Chain.Resolve(ctx, req, b)
		if err != nil {
			return nil, domainerrors.AddContext(err, domainerrors.CtxLabel, target.String())
		}
		if !complete {
			slog.Info("target classpath incomplete", "unit", unit.ID, "batch", batch, "label", target.String())
			b.MarkIncomplete()
		}
	}
	if len(targets) == 0 {
		b.MarkIncomplete()
	}

	mu := c.unitLock(unit.ID)
	mu.Lock()
	defer mu.Unlock()
	res := classpath.Assemble(b)
	c.refs.Set(unit.ID, res.ModuleReferences())
	c.cache.Put(key, res)
	return res, nil
}

// activate lists the targets the unit compiles. Kinds are known only when
// the targets came from a query.
func (c *Coordinator) activate(ctx context.Context, unit BuildUnit) ([]label.Label, map[label.Label]metadata.Kind, error) {
	kinds := make(map[label.Label]metadata.Kind)
	var candidates []label.Label

	if len(unit.Targets) > 0 {
		candidates = unit.Targets
	} else {
		if c.deps.Lister == nil {
			return nil, nil, domainerrors.AddContext(
				domainerrors.New(domainerrors.CodeNotSupported, "wildcard activation needs a target lister"),
				domainerrors.CtxUnit, unit.ID,
			)
		}
		found, err := c.deps.Lister.ListTargets(ctx, unit.Package)
		if err != nil {
			return nil, nil, err
		}
		for _, t := range found {
			if t.Kind == metadata.KindOther {
				continue
			}
			kinds[t.Label] = t.Kind
			candidates = append(candidates, t.Label)
		}
	}

	set := label.NewSet()
	for _, t := range candidates {
		if !t.IsConcrete() {
			return nil, nil, domainerrors.AddContext(
				domainerrors.New(domainerrors.CodeValidationError, "activated target must be a concrete label"),
				domainerrors.CtxLabel, t.String(),
			)
		}
		if c.excluded(t) {
			continue
		}
		set.Add(t)
	}
	targets := set.Labels()
	label.Sort(targets)
	return targets, kinds, nil
}

func (c *Coordinator) excluded(l label.Label) bool {
	s := l.String()
	for _, g := range c.exclude {
		if g.Match(s) {
			return true
		}
	}
	return false
}

func (c *Coordinator) unitLock(id string) *sync.Mutex {
	c.lockMu.Lock()
	defer c.lockMu.Unlock()
	mu, ok := c.publish[id]
	if !ok {
		mu = &sync.Mutex{}
		c.publish[id] = mu
	}
	return mu
}

// Invalidate drops the cached classpath of unit and the extracted metadata
// of its package.
func (c *Coordinator) Invalidate(unitID string) {
	unit, ok := c.units[unitID]
	if !ok {
		return
	}
	c.cache.InvalidateFunc(func(k cacheKey) bool { return k.unit == unitID })
	c.refs.Clear(unitID)
	if f, ok := c.deps.Extractor.(ports.MetadataFlusher); ok {
		f.FlushPackage(unit.Package)
	}
}

// InvalidatePackage invalidates every unit in pkg and returns how many
// cached results were dropped.
func (c *Coordinator) InvalidatePackage(pkg label.Label) int {
	pkg = pkg.PackageLabel()
	var ids []string
	for _, id := range c.order {
		if c.units[id].Package == pkg {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	dropped := c.cache.InvalidateFunc(func(k cacheKey) bool {
		_, hit := sort.Find(len(ids), func(i int) int { return strings.Compare(k.unit, ids[i]) })
		return hit
	})
	for _, id := range ids {
		c.refs.Clear(id)
	}
	if f, ok := c.deps.Extractor.(ports.MetadataFlusher); ok {
		f.FlushPackage(pkg)
	}
	if dropped > 0 {
		slog.Info("invalidated cached classpaths", "package", pkg.String(), "dropped", dropped)
	}
	return dropped
}

// InvalidateAll drops every cached classpath, reference and extracted record.
func (c *Coordinator) InvalidateAll() {
	c.cache.InvalidateAll()
	c.refs.Reset()
	if f, ok := c.deps.Extractor.(ports.MetadataFlusher); ok {
		f.FlushAll()
	}
}
