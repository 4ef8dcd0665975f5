package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const DefaultConfigFile = "bazelcp.toml"

var workspaceMarkers = []string{
	"MODULE.bazel",
	"WORKSPACE.bazel",
	"WORKSPACE",
}

type ResolvedPaths struct {
	WorkspaceRoot    string
	StorePath        string
	AspectRepository string
}

// ResolvePaths makes the configured paths absolute. A workspace root of "."
// is replaced by the nearest enclosing Bazel workspace of cwd.
func ResolvePaths(cfg *Config, cwd string) (ResolvedPaths, error) {
	if strings.TrimSpace(cwd) == "" {
		return ResolvedPaths{}, fmt.Errorf("cwd must not be empty")
	}

	root := strings.TrimSpace(cfg.Workspace.Root)
	if root == "" || root == "." {
		detected, err := DetectWorkspaceRoot([]string{cwd})
		if err != nil {
			return ResolvedPaths{}, err
		}
		root = detected
	} else {
		root = ResolveRelative(cwd, root)
	}

	resolved := ResolvedPaths{
		WorkspaceRoot: filepath.Clean(root),
		StorePath:     ResolveRelative(root, cfg.Metadata.StorePath),
	}
	if repo := strings.TrimSpace(cfg.Bazel.AspectRepository); repo != "" {
		resolved.AspectRepository = ResolveRelative(root, repo)
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// DetectWorkspaceRoot walks up from each candidate until a directory holds a
// Bazel workspace marker. Without a match the working directory is returned.
func DetectWorkspaceRoot(candidates []string) (string, error) {
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}

		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		root := abs
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			root = filepath.Dir(abs)
		}

		for {
			for _, marker := range workspaceMarkers {
				if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
					return filepath.Clean(root), nil
				}
			}
			parent := filepath.Dir(root)
			if parent == root {
				break
			}
			root = parent
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Clean(cwd), nil
}
