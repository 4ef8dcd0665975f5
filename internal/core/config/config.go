// Package config loads bazelcp.toml.
package config

import (
	"time"
)

type Config struct {
	Version       int           `toml:"version"`
	Workspace     Workspace     `toml:"workspace"`
	Bazel         Bazel         `toml:"bazel"`
	Classpath     Classpath     `toml:"classpath"`
	Metadata      Metadata      `toml:"metadata"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Workspace struct {
	Root    string   `toml:"root"`
	Modules []Module `toml:"modules"`
}

// Module is one build unit. Package is a Bazel package label such as
// "//services/api"; SourceDirs default to the package directory.
type Module struct {
	Name       string   `toml:"name"`
	Package    string   `toml:"package"`
	Targets    []string `toml:"targets"`
	SourceDirs []string `toml:"source_dirs"`
}

type Bazel struct {
	Executable       string        `toml:"executable"`
	CommandTimeout   time.Duration `toml:"command_timeout"`
	BatchSize        int           `toml:"batch_size"`
	RateLimit        float64       `toml:"rate_limit"`
	RateBurst        int           `toml:"rate_burst"`
	StartupOptions   []string      `toml:"startup_options"`
	AspectRepository string        `toml:"aspect_repository"`
	AspectRepoName   string        `toml:"aspect_repo_name"`
	AspectLabel      string        `toml:"aspect_label"`
	OutputGroups     []string      `toml:"output_groups"`
}

type Classpath struct {
	// CacheTTL of -1 keeps results until invalidated.
	CacheTTL         time.Duration `toml:"cache_ttl"`
	CacheCapacity    int           `toml:"cache_capacity"`
	Strategies       []string      `toml:"strategies"`
	OnFailure        string        `toml:"on_failure"`
	Parallelism      int           `toml:"parallelism"`
	ArtifactRoots    []string      `toml:"artifact_roots"`
	ExplicitTestDeps *bool         `toml:"explicit_test_deps"`
	Exclude          []string      `toml:"exclude"`
	FollowExternal   bool          `toml:"follow_external"`
}

type Metadata struct {
	LastGoodEnabled *bool  `toml:"last_good_enabled"`
	StorePath       string `toml:"store_path"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	Exclude  []string      `toml:"exclude"`
}

type Observability struct {
	MetricsAddress string `toml:"metrics_address"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
	ServiceName    string `toml:"service_name"`
}

const (
	StrategyAspect = "aspect"
	StrategySource = "source"

	FailurePropagate = "propagate"
	FailureEmpty     = "empty"

	RootExecution = "execution_root"
	RootOutput    = "output_base"
	RootWorkspace = "workspace"
)

// DefaultConfig returns a configuration with every default applied and no
// modules.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Enabled reports whether records are persisted between runs.
func (m Metadata) Enabled() bool {
	return m.LastGoodEnabled == nil || *m.LastGoodEnabled
}
