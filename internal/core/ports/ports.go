package ports

import (
	"context"

	"bazelcp/internal/engine/classpath"
	"bazelcp/internal/engine/label"
	"bazelcp/internal/engine/metadata"
	"bazelcp/internal/shared/execx"
)

// CommandExecutor runs the build tool. Non-zero exits surface as
// *execx.ExitError wrapped in a TRANSPORT_FAILURE error.
type CommandExecutor = execx.Executor

// MetadataExtractor produces aspect records grouped by requested label.
type MetadataExtractor = metadata.Extractor

// LastGoodStore persists the most recent successful records per label.
type LastGoodStore = metadata.LastGoodStore

// TargetLister enumerates the rules matched by a package or wildcard label.
type TargetLister interface {
	ListTargets(ctx context.Context, pattern label.Label) ([]metadata.Target, error)
}

// MetadataFlusher drops cached metadata so the next extraction rebuilds it.
type MetadataFlusher interface {
	FlushPackage(pkg label.Label)
	FlushAll()
}

// ImplicitDependencyProvider supplies runtime entries a test target needs
// but does not declare, such as the test runner jar.
type ImplicitDependencyProvider interface {
	ImplicitDependencies(ctx context.Context, rec *metadata.Record) ([]classpath.Entry, error)
}

// ModuleOwnership maps workspace-relative source paths to the in-workspace
// module that owns them.
type ModuleOwnership interface {
	OwningModule(sources []string) (string, bool)
}

// ArtifactResolver turns a reported artifact path into a readable one.
// It returns the input unchanged when no root contains it.
type ArtifactResolver interface {
	Resolve(path string) string
}

// PackageIndex answers which jars provide a Java package.
type PackageIndex interface {
	JarsForPackage(javaPackage string) []string
}

// ClasspathService is the driving port used by the CLI and watch mode.
type ClasspathService interface {
	ResolveClasspath(ctx context.Context, unit string) (*classpath.Result, error)
	OrderForImport(ctx context.Context, units []string) ([]string, error)
	Invalidate(unit string)
	InvalidatePackage(pkg label.Label) int
	InvalidateAll()
}
