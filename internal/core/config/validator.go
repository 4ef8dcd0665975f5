package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"bazelcp/internal/shared/util"

	"github.com/gobwas/glob"
)

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateModules(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Workspace.Modules))
	for i, m := range cfg.Workspace.Modules {
		ref := fmt.Sprintf("workspace.modules[%d]", i)
		if m.Name == "" {
			return fmt.Errorf("%s.name must not be empty", ref)
		}
		if util.ContainsPathSeparator(m.Name) {
			return fmt.Errorf("%s.name %q must not contain a path separator", ref, m.Name)
		}
		if seen[m.Name] {
			return fmt.Errorf("duplicate module name %q", m.Name)
		}
		seen[m.Name] = true
		if _, err := m.PackageLabel(); err != nil {
			return fmt.Errorf("%s.package: %w", ref, err)
		}
		targets, err := m.TargetLabels()
		if err != nil {
			return fmt.Errorf("%s.targets: %w", ref, err)
		}
		for _, t := range targets {
			if !t.IsConcrete() {
				return fmt.Errorf("%s.targets: %q is not a concrete label", ref, t)
			}
		}
	}
	return nil
}

func validateBazel(cfg *Config) error {
	if strings.TrimSpace(cfg.Bazel.Executable) == "" {
		return fmt.Errorf("bazel.executable must not be empty")
	}
	if cfg.Bazel.RateLimit < 0 {
		return fmt.Errorf("bazel.rate_limit must be >= 0, got %v", cfg.Bazel.RateLimit)
	}
	if !strings.Contains(cfg.Bazel.AspectLabel, "%") {
		return fmt.Errorf("bazel.aspect_label %q must have the form <file label>%%<aspect name>", cfg.Bazel.AspectLabel)
	}
	return nil
}

func validateClasspath(cfg *Config) error {
	cp := cfg.Classpath
	if cp.CacheTTL < 0 && cp.CacheTTL != -1 {
		return fmt.Errorf("classpath.cache_ttl must be positive or -1, got %v", cp.CacheTTL)
	}
	if cp.CacheCapacity < 0 {
		return fmt.Errorf("classpath.cache_capacity must be >= 0, got %d", cp.CacheCapacity)
	}
	if len(cp.Strategies) == 0 {
		return fmt.Errorf("classpath.strategies must not be empty")
	}
	for i, s := range cp.Strategies {
		if s != StrategyAspect && s != StrategySource {
			return fmt.Errorf("classpath.strategies[%d] must be one of: %s, %s", i, StrategyAspect, StrategySource)
		}
		if slices.Index(cp.Strategies, s) != i {
			return fmt.Errorf("classpath.strategies lists %q twice", s)
		}
	}
	if cp.OnFailure != FailurePropagate && cp.OnFailure != FailureEmpty {
		return fmt.Errorf("classpath.on_failure must be one of: %s, %s", FailurePropagate, FailureEmpty)
	}
	for i, r := range cp.ArtifactRoots {
		switch r {
		case RootExecution, RootOutput, RootWorkspace:
		default:
			return fmt.Errorf("classpath.artifact_roots[%d] must be one of: %s, %s, %s", i, RootExecution, RootOutput, RootWorkspace)
		}
	}
	return validateGlobs("classpath.exclude", cp.Exclude)
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be >= 0, got %v", cfg.Watch.Debounce)
	}
	return validateGlobs("watch.exclude", cfg.Watch.Exclude)
}

func validateGlobs(field string, patterns []string) error {
	for i, p := range patterns {
		if _, err := glob.Compile(p, '/'); err != nil {
			return fmt.Errorf("%s[%d] %q: %w", field, i, p, err)
		}
	}
	return nil
}

// Validate returns every problem found, in a stable order.
func Validate(cfg *Config) []error {
	var errs []error

	for _, check := range []func(*Config) error{
		validateVersion,
		validateModules,
		validateBazel,
		validateClasspath,
		validateWatch,
	} {
		if err := check(cfg); err != nil {
			errs = append(errs, err)
		}
	}

	errs = append(errs, validatePaths(cfg)...)
	return errs
}

func validatePaths(cfg *Config) []error {
	var errs []error

	if root := cfg.Workspace.Root; root != "" {
		stat, err := os.Stat(root)
		if os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("workspace.root %q does not exist", root))
		} else if err == nil && !stat.IsDir() {
			errs = append(errs, fmt.Errorf("workspace.root %q is not a directory", root))
		}
	}
	if repo := cfg.Bazel.AspectRepository; repo != "" {
		if _, err := os.Stat(repo); os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("bazel.aspect_repository %q does not exist", repo))
		}
	}
	return errs
}
