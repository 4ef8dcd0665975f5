// Package artifact locates build outputs on disk and indexes their contents.
package artifact

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"bazelcp/internal/shared/execx"
)

// Roots resolves relative artifact paths against an ordered list of
// directories. The first root containing the file wins.
type Roots struct {
	dirs []string
	stat func(string) (os.FileInfo, error)
}

func NewRoots(dirs ...string) *Roots {
	r := &Roots{stat: os.Stat}
	seen := make(map[string]bool)
	for _, d := range dirs {
		d = strings.TrimSpace(d)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		r.dirs = append(r.dirs, filepath.Clean(d))
	}
	return r
}

func (r *Roots) Dirs() []string {
	return append([]string(nil), r.dirs...)
}

// Resolve returns the first existing candidate, or path unchanged.
func (r *Roots) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	for _, dir := range r.dirs {
		candidate := filepath.Join(dir, filepath.FromSlash(path))
		if _, err := r.stat(candidate); err == nil {
			return candidate
		}
	}
	return path
}

// Discover asks bazel for the given info keys (for example "execution_root",
// "output_base") and returns them as roots followed by extra. Keys bazel
// cannot answer are skipped.
func Discover(ctx context.Context, exec execx.Executor, executable, workspaceRoot string, keys []string, extra ...string) *Roots {
	if executable == "" {
		executable = "bazel"
	}
	var dirs []string
	for _, key := range keys {
		out, err := exec.Run(ctx, execx.Command{
			Program: executable,
			Args:    []string{"info", key},
			Dir:     workspaceRoot,
		})
		if err != nil {
			slog.Warn("bazel info failed", "key", key, "error", err)
			continue
		}
		if lines := execx.Lines(out.Stdout); len(lines) > 0 {
			dirs = append(dirs, lines[0])
		}
	}
	return NewRoots(append(dirs, extra...)...)
}
