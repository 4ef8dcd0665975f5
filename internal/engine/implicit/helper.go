// Package implicit finds classpath entries the Bazel test runner injects
// into java_test targets without them being declared.
package implicit

import (
	"bufio"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"bazelcp/internal/engine/classpath"
	"bazelcp/internal/engine/metadata"
)

const (
	// runnerDir is where bazel writes the test runner's interface jar under bazel-bin.
	runnerDir    = "external/bazel_tools/tools/jdk/_ijar/TestRunner"
	runnerSuffix = "Runner_deploy-ijar.jar"
	maxDepth     = 5
)

// Helper locates the test runner jar and hands it to every test target.
type Helper struct {
	binDir   string
	explicit bool

	mu     sync.Mutex
	runner string
}

// New returns a helper for the given bazel-bin directory. When explicit is
// true, or the workspace .bazelrc sets explicit_java_test_deps=true, no
// entries are produced.
func New(workspaceRoot, binDir string, explicit bool) *Helper {
	if !explicit && workspaceRoot != "" {
		explicit = ExplicitTestDeps(filepath.Join(workspaceRoot, ".bazelrc"))
	}
	return &Helper{binDir: binDir, explicit: explicit}
}

func (h *Helper) ImplicitDependencies(ctx context.Context, rec *metadata.Record) ([]classpath.Entry, error) {
	if rec == nil || !rec.Kind().IsTest() || h.explicit {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	runner := h.locate()
	if runner == "" {
		slog.Warn("test runner jar not found, implicit test deps skipped", "target", rec.Label().String(), "bin_dir", h.binDir)
		return nil, nil
	}
	return []classpath.Entry{classpath.Binary(runner, "", true)}, nil
}

// locate caches a found runner. Misses are retried on every call.
func (h *Helper) locate() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.runner == "" {
		h.runner = h.findRunner()
	}
	return h.runner
}

func (h *Helper) findRunner() string {
	if h.binDir == "" {
		return ""
	}
	root := filepath.Join(h.binDir, filepath.FromSlash(runnerDir))
	var found string
	errStop := errors.New("stop")
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		depth := len(strings.Split(filepath.ToSlash(rel), "/"))
		if d.IsDir() && rel != "." && depth >= maxDepth {
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.HasSuffix(path, runnerSuffix) {
			found = path
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		slog.Debug("test runner search failed", "root", root, "error", err)
	}
	return found
}

// ExplicitTestDeps reports whether a bazelrc enables --explicit_java_test_deps.
func ExplicitTestDeps(bazelrc string) bool {
	f, err := os.Open(bazelrc)
	if err != nil {
		return false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		for _, field := range strings.Fields(line) {
			field = strings.TrimPrefix(field, "--")
			if field == "explicit_java_test_deps" || field == "explicit_java_test_deps=true" {
				return true
			}
		}
	}
	return false
}
