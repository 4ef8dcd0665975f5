package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bazelcp/internal/engine/label"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(string(data), filepath.Dir(path))
}

// Parse decodes TOML content and applies defaults, env overrides and
// validation in that order. Relative paths stay relative to the working
// directory.
func Parse(content string) (*Config, error) {
	return parse(content, "")
}

func parse(content, baseDir string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)
	if baseDir != "" {
		cfg.Workspace.Root = ResolveRelative(baseDir, cfg.Workspace.Root)
	}
	normalizeModules(&cfg)
	normalizeLists(&cfg)

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errs[0]
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.Workspace.Root) == "" {
		cfg.Workspace.Root = "."
	}

	if strings.TrimSpace(cfg.Bazel.Executable) == "" {
		cfg.Bazel.Executable = "bazel"
	}
	if cfg.Bazel.CommandTimeout <= 0 {
		cfg.Bazel.CommandTimeout = 10 * time.Minute
	}
	if cfg.Bazel.BatchSize <= 0 {
		cfg.Bazel.BatchSize = 25
	}
	if cfg.Bazel.RateBurst <= 0 {
		cfg.Bazel.RateBurst = 1
	}
	if strings.TrimSpace(cfg.Bazel.AspectRepoName) == "" {
		cfg.Bazel.AspectRepoName = "bazeljavasdk_aspect"
	}
	if strings.TrimSpace(cfg.Bazel.AspectLabel) == "" {
		cfg.Bazel.AspectLabel = "//:bzljavasdk_aspect.bzl%bzljavasdk_aspect"
	}
	if len(cfg.Bazel.OutputGroups) == 0 {
		cfg.Bazel.OutputGroups = []string{"json-files", "classpath-jars", "-_,-defaults"}
	}

	if cfg.Classpath.CacheTTL == 0 {
		cfg.Classpath.CacheTTL = 5 * time.Minute
	}
	if cfg.Classpath.CacheCapacity == 0 {
		cfg.Classpath.CacheCapacity = 512
	}
	if len(cfg.Classpath.Strategies) == 0 {
		cfg.Classpath.Strategies = []string{StrategyAspect, StrategySource}
	}
	if strings.TrimSpace(cfg.Classpath.OnFailure) == "" {
		cfg.Classpath.OnFailure = FailureEmpty
	}
	if cfg.Classpath.Parallelism <= 0 {
		cfg.Classpath.Parallelism = 4
	}
	if len(cfg.Classpath.ArtifactRoots) == 0 {
		cfg.Classpath.ArtifactRoots = []string{RootExecution, RootOutput, RootWorkspace}
	}

	if strings.TrimSpace(cfg.Metadata.StorePath) == "" {
		cfg.Metadata.StorePath = ".bazelcp/metadata.db"
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if len(cfg.Watch.Exclude) == 0 {
		cfg.Watch.Exclude = []string{"bazel-*", "bazel-*/**", ".git/**"}
	}

	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "bazelcp"
	}
}

// normalizeModules trims names and canonicalizes package and target labels.
// Invalid labels are left as written for validation to report.
func normalizeModules(cfg *Config) {
	for i := range cfg.Workspace.Modules {
		m := &cfg.Workspace.Modules[i]
		m.Name = strings.TrimSpace(m.Name)
		m.Package = strings.TrimSpace(m.Package)
		if pkg, err := m.PackageLabel(); err == nil {
			m.Package = strings.TrimSuffix(pkg.String(), ":*")
			if len(m.SourceDirs) == 0 {
				m.SourceDirs = []string{pkg.Package()}
			}
		}
		for j, t := range m.Targets {
			if l, err := label.Parse(t); err == nil {
				m.Targets[j] = l.String()
			}
		}
		m.SourceDirs = trimAll(m.SourceDirs)
	}
}

// PackageLabel parses Package as the package wildcard of the module.
func (m Module) PackageLabel() (label.Label, error) {
	raw := strings.TrimSpace(m.Package)
	if raw == "" {
		return label.Label{}, fmt.Errorf("module %q has no package", m.Name)
	}
	if !strings.Contains(raw, ":") && !strings.HasSuffix(raw, "...") {
		raw += ":*"
	}
	l, err := label.Parse(raw)
	if err != nil {
		return label.Label{}, err
	}
	if l.Pattern() == label.Recursive {
		return label.Label{}, fmt.Errorf("module %q package %q must not be recursive", m.Name, m.Package)
	}
	return l.PackageLabel(), nil
}

// TargetLabels parses the explicit targets of the module.
func (m Module) TargetLabels() ([]label.Label, error) {
	return label.ParseAll(m.Targets)
}

func normalizeLists(cfg *Config) {
	cfg.Bazel.StartupOptions = trimAll(cfg.Bazel.StartupOptions)
	cfg.Bazel.OutputGroups = trimAll(cfg.Bazel.OutputGroups)
	cfg.Classpath.OnFailure = strings.ToLower(strings.TrimSpace(cfg.Classpath.OnFailure))
	cfg.Classpath.Exclude = trimAll(cfg.Classpath.Exclude)
	cfg.Watch.Exclude = trimAll(cfg.Watch.Exclude)

	strategies := make([]string, 0, len(cfg.Classpath.Strategies))
	for _, s := range cfg.Classpath.Strategies {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			strategies = append(strategies, s)
		}
	}
	cfg.Classpath.Strategies = strategies

	roots := make([]string, 0, len(cfg.Classpath.ArtifactRoots))
	for _, r := range cfg.Classpath.ArtifactRoots {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			roots = append(roots, r)
		}
	}
	cfg.Classpath.ArtifactRoots = roots
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
