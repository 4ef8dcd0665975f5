package strategy

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	domainerrors "bazelcp/internal/core/errors"
	"bazelcp/internal/core/ports"
	"bazelcp/internal/engine/classpath"
	"bazelcp/internal/engine/javasrc"

	ignore "github.com/sabhiram/go-gitignore"
)

const SourceName = "source"

var buildFileNames = []string{"BUILD", "BUILD.bazel"}

// Source derives a classpath from the import declarations of a target's Java
// files, matched against a package-to-jar index. It is the fallback when no
// aspect metadata exists.
type Source struct {
	workspace string
	parser    *javasrc.Parser
	jars      ports.PackageIndex
}

func NewSource(workspaceRoot string, parser *javasrc.Parser, jars ports.PackageIndex) *Source {
	return &Source{workspace: workspaceRoot, parser: parser, jars: jars}
}

func (s *Source) Name() string { return SourceName }

func (s *Source) Resolve(ctx context.Context, req Request, b *classpath.Builder) (bool, error) {
	files, err := s.sourceFiles(req)
	if err != nil {
		return false, err
	}
	if len(files) == 0 {
		return false, nil
	}

	own := make(map[string]bool)
	imported := make(map[string]bool)
	for _, path := range files {
		if err := domainerrors.FromContext(ctx, "source strategy"); err != nil {
			return false, err
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return false, domainerrors.AddContext(
				domainerrors.Wrap(err, domainerrors.CodeNotFound, "cannot read source"),
				domainerrors.CtxPath, path,
			)
		}
		f := s.parser.Parse(src)
		own[f.Package] = true
		for _, imp := range f.Imports {
			if pkg := imp.JavaPackage(); pkg != "" && !javasrc.IsPlatform(pkg) {
				imported[pkg] = true
			}
		}
	}

	pkgs := make([]string, 0, len(imported))
	for pkg := range imported {
		if !own[pkg] {
			pkgs = append(pkgs, pkg)
		}
	}
	sort.Strings(pkgs)

	testScope := req.Kind.IsTest()
	unresolved := 0
	for _, pkg := range pkgs {
		var jars []string
		if s.jars != nil {
			jars = s.jars.JarsForPackage(pkg)
		}
		if len(jars) == 0 {
			unresolved++
			slog.Debug("no jar provides imported package", "package", pkg, "target", req.Target.String())
			continue
		}
		b.Add(classpath.Binary(jars[0], "", testScope), testScope)
	}
	return unresolved == 0, nil
}

// sourceFiles prefers the sources recorded in metadata and otherwise walks
// the target's package directory.
func (s *Source) sourceFiles(req Request) ([]string, error) {
	if req.Index != nil {
		if rec, err := req.Index.Describe(req.Target); err == nil {
			var out []string
			for _, src := range rec.Sources() {
				if strings.HasSuffix(src, ".java") {
					out = append(out, filepath.Join(s.workspace, filepath.FromSlash(src)))
				}
			}
			if len(out) > 0 {
				return out, nil
			}
		} else if domainerrors.IsCode(err, domainerrors.CodeGraphInvariant) {
			return nil, err
		}
	}
	return s.walkPackage(filepath.Join(s.workspace, filepath.FromSlash(req.Target.Package())))
}

// walkPackage lists .java files under dir, stopping at nested packages and
// honoring the workspace .gitignore.
func (s *Source) walkPackage(dir string) ([]string, error) {
	matcher, err := ignore.CompileIgnoreFile(filepath.Join(s.workspace, ".gitignore"))
	if err != nil {
		matcher = ignore.CompileIgnoreLines()
	}

	var out []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		rel, relErr := filepath.Rel(s.workspace, path)
		if relErr == nil && rel != "." && matcher.MatchesPath(filepath.ToSlash(rel)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != dir && isPackageDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".java") {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeInternal, "walking package sources"),
			domainerrors.CtxPath, dir,
		)
	}
	sort.Strings(out)
	return out, nil
}

func isPackageDir(dir string) bool {
	for _, name := range buildFileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}
