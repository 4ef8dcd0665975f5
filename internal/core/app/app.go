// Package app wires configuration into a running classpath service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"bazelcp/internal/core/config"
	"bazelcp/internal/core/watcher"
	"bazelcp/internal/data/metastore"
	"bazelcp/internal/engine/artifact"
	"bazelcp/internal/engine/classpath"
	"bazelcp/internal/engine/coordinator"
	"bazelcp/internal/engine/implicit"
	"bazelcp/internal/engine/javasrc"
	"bazelcp/internal/engine/label"
	"bazelcp/internal/engine/metadata"
	"bazelcp/internal/engine/ownership"
	"bazelcp/internal/engine/strategy"
	"bazelcp/internal/shared/execx"
	"bazelcp/internal/shared/util"
)

type App struct {
	Config      *config.Config
	Paths       config.ResolvedPaths
	Coordinator *coordinator.Coordinator
	Extractor   *metadata.AspectExtractor
	Roots       *artifact.Roots
	Jars        *artifact.JarIndex

	store         *metastore.Store
	activeWatcher *watcher.Watcher
	watchMu       sync.Mutex
}

// New builds the application. A nil exec runs the real bazel binary with the
// configured timeout and rate limit.
func New(ctx context.Context, cfg *config.Config, paths config.ResolvedPaths, exec execx.Executor) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if exec == nil {
		exec = execx.NewOSExecutor(cfg.Bazel.CommandTimeout, util.NewLimiter(cfg.Bazel.RateLimit, cfg.Bazel.RateBurst))
	}
	root := paths.WorkspaceRoot

	a := &App{
		Config: cfg,
		Paths:  paths,
		Roots:  discoverRoots(ctx, exec, cfg, root),
		Jars:   artifact.NewJarIndex(),
	}

	var lastGood metadata.LastGoodStore
	if cfg.Metadata.Enabled() {
		store, err := metastore.Open(paths.StorePath, root)
		switch {
		case err == nil:
			a.store = store
			lastGood = store
		case metastore.IsCorruptError(err):
			slog.Warn("metadata store is corrupt, continuing without last good records", "path", paths.StorePath, "error", err)
		default:
			return nil, err
		}
	}

	a.Extractor = metadata.NewAspectExtractor(exec, metadata.AspectOptions{
		Executable:       cfg.Bazel.Executable,
		WorkspaceRoot:    root,
		StartupOptions:   cfg.Bazel.StartupOptions,
		AspectRepository: paths.AspectRepository,
		AspectRepoName:   cfg.Bazel.AspectRepoName,
		AspectLabel:      cfg.Bazel.AspectLabel,
		OutputGroups:     cfg.Bazel.OutputGroups,
		BatchSize:        cfg.Bazel.BatchSize,
	}, lastGood)
	lister := metadata.NewQueryTargetLister(exec, cfg.Bazel.Executable, root, cfg.Bazel.StartupOptions)

	a.seedJarIndex(ctx)

	chain, err := a.buildChain(root)
	if err != nil {
		a.closeStore()
		return nil, err
	}

	units, err := buildUnits(cfg.Workspace.Modules)
	if err != nil {
		a.closeStore()
		return nil, err
	}

	a.Coordinator, err = coordinator.New(units, coordinator.Deps{
		Extractor: a.Extractor,
		Lister:    lister,
		Chain:     chain,
	}, coordinator.Options{
		CacheTTL:       cfg.Classpath.CacheTTL,
		CacheCapacity:  cfg.Classpath.CacheCapacity,
		Policy:         coordinator.FailurePolicy(cfg.Classpath.OnFailure),
		Parallelism:    cfg.Classpath.Parallelism,
		Exclude:        cfg.Classpath.Exclude,
		FollowExternal: cfg.Classpath.FollowExternal,
	})
	if err != nil {
		a.closeStore()
		return nil, err
	}
	return a, nil
}

// discoverRoots keeps the configured root order; bazel info is asked one key
// at a time so the workspace root can sit anywhere in the list.
func discoverRoots(ctx context.Context, exec execx.Executor, cfg *config.Config, root string) *artifact.Roots {
	var dirs []string
	for _, key := range cfg.Classpath.ArtifactRoots {
		if key == config.RootWorkspace {
			dirs = append(dirs, root)
			continue
		}
		dirs = append(dirs, artifact.Discover(ctx, exec, cfg.Bazel.Executable, root, []string{key}).Dirs()...)
	}
	return artifact.NewRoots(dirs...)
}

func (a *App) buildChain(root string) (*strategy.Chain, error) {
	owners := make([]ownership.Module, 0, len(a.Config.Workspace.Modules))
	for _, m := range a.Config.Workspace.Modules {
		owners = append(owners, ownership.Module{Name: m.Name, Roots: m.SourceDirs})
	}
	explicit := a.Config.Classpath.ExplicitTestDeps != nil && *a.Config.Classpath.ExplicitTestDeps
	helper := implicit.New(root, filepath.Join(root, "bazel-bin"), explicit)

	strategies := make([]strategy.Strategy, 0, len(a.Config.Classpath.Strategies))
	for _, name := range a.Config.Classpath.Strategies {
		switch name {
		case config.StrategyAspect:
			strategies = append(strategies, strategy.NewAspect(ownership.New(owners), helper, a.Roots))
		case config.StrategySource:
			strategies = append(strategies, strategy.NewSource(root, javasrc.NewParser(), a.Jars))
		default:
			return nil, fmt.Errorf("unknown classpath strategy %q", name)
		}
	}
	return strategy.NewChain(strategies...), nil
}

func buildUnits(modules []config.Module) ([]coordinator.BuildUnit, error) {
	units := make([]coordinator.BuildUnit, 0, len(modules))
	for _, m := range modules {
		pkg, err := m.PackageLabel()
		if err != nil {
			return nil, fmt.Errorf("module %q: %w", m.Name, err)
		}
		targets, err := m.TargetLabels()
		if err != nil {
			return nil, fmt.Errorf("module %q: %w", m.Name, err)
		}
		units = append(units, coordinator.BuildUnit{ID: m.Name, Package: pkg, Targets: targets})
	}
	return units, nil
}

// seedJarIndex loads the jars remembered from earlier runs so the source
// strategy can answer before the first aspect build.
func (a *App) seedJarIndex(ctx context.Context) {
	if a.store == nil {
		return
	}
	paths, err := a.store.ArtifactPaths(ctx)
	if err != nil {
		slog.Warn("failed to read remembered artifacts", "error", err)
		return
	}
	a.indexJars(paths)
}

func (a *App) indexJars(paths []string) {
	resolved := make([]string, 0, len(paths))
	for _, p := range paths {
		resolved = append(resolved, a.Roots.Resolve(p))
	}
	if n := a.Jars.Add(resolved...); n > 0 {
		slog.Debug("indexed jars", "added", n, "total", a.Jars.Len())
	}
}

// Resolve computes the classpath of one unit and feeds its jars to the
// package index.
func (a *App) Resolve(ctx context.Context, unit string) (*classpath.Result, error) {
	res, err := a.Coordinator.ResolveClasspath(ctx, unit)
	if err != nil {
		return nil, err
	}
	a.indexJars(res.ArtifactPaths())
	return res, nil
}

// ResolveAll resolves the given units, or every configured unit when none
// are given.
func (a *App) ResolveAll(ctx context.Context, units []string) []coordinator.UnitResult {
	if len(units) == 0 {
		units = a.Coordinator.Units()
	}
	results := a.Coordinator.ResolveBatch(ctx, units)
	for _, r := range results {
		if r.Err == nil {
			a.indexJars(r.Result.ArtifactPaths())
		}
	}
	return results
}

// HandleChange invalidates whatever a batch of build file edits touched.
func (a *App) HandleChange(change watcher.Change) {
	if change.Global {
		slog.Info("workspace definitions changed, invalidating all build units", "paths", len(change.Paths))
		a.Coordinator.InvalidateAll()
		return
	}
	for _, pkg := range change.Packages {
		a.invalidatePackage(pkg)
	}
}

func (a *App) invalidatePackage(pkg label.Label) {
	dropped := a.Coordinator.InvalidatePackage(pkg)
	slog.Debug("build file changed", "package", pkg.String(), "dropped", dropped)
}

func (a *App) StartWatcher() error {
	w, err := watcher.NewWatcher(a.Paths.WorkspaceRoot, a.Config.Watch.Debounce, a.Config.Watch.Exclude, a.HandleChange)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		_ = w.Close()
		return err
	}
	a.watchMu.Lock()
	a.activeWatcher = w
	a.watchMu.Unlock()
	return nil
}

// Store returns the last good metadata store, or nil when disabled.
func (a *App) Store() *metastore.Store { return a.store }

func (a *App) closeStore() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func (a *App) Close() error {
	a.watchMu.Lock()
	w := a.activeWatcher
	a.activeWatcher = nil
	a.watchMu.Unlock()

	var firstErr error
	if w != nil {
		if err := w.Close(); err != nil {
			firstErr = err
		}
	}
	if err := a.closeStore(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
