package artifact

import (
	"archive/zip"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"
)

// JarIndex maps Java packages to the jars that contain classes in them.
type JarIndex struct {
	mu       sync.RWMutex
	packages map[string][]string
	indexed  map[string]bool
}

func NewJarIndex() *JarIndex {
	return &JarIndex{
		packages: make(map[string][]string),
		indexed:  make(map[string]bool),
	}
}

// Add indexes each jar once. Unreadable jars are logged and skipped.
func (ix *JarIndex) Add(jars ...string) int {
	added := 0
	for _, jar := range jars {
		ix.mu.RLock()
		done := ix.indexed[jar]
		ix.mu.RUnlock()
		if done {
			continue
		}
		pkgs, err := listPackages(jar)
		if err != nil {
			slog.Debug("skipping jar", "jar", jar, "error", err)
			continue
		}
		ix.mu.Lock()
		ix.indexed[jar] = true
		for _, p := range pkgs {
			ix.packages[p] = append(ix.packages[p], jar)
		}
		ix.mu.Unlock()
		added++
	}
	return added
}

// JarsForPackage returns jars providing javaPackage, in indexing order.
func (ix *JarIndex) JarsForPackage(javaPackage string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]string(nil), ix.packages[javaPackage]...)
}

func (ix *JarIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.indexed)
}

func listPackages(jar string) ([]string, error) {
	r, err := zip.OpenReader(jar)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	seen := make(map[string]bool)
	for _, f := range r.File {
		if !strings.HasSuffix(f.Name, ".class") || strings.HasPrefix(f.Name, "META-INF/") {
			continue
		}
		dir := path.Dir(f.Name)
		if dir == "." {
			continue
		}
		seen[strings.ReplaceAll(dir, "/", ".")] = true
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
