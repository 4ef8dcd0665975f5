package artifact

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"bazelcp/internal/shared/execx"
)

func writeJar(t *testing.T, path string, entries ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	for _, e := range entries {
		if _, err := w.Create(e); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRootsFirstExistingWins(t *testing.T) {
	execRoot := t.TempDir()
	outputBase := t.TempDir()
	rel := "bazel-out/bin/a/liba.jar"
	writeJar(t, filepath.Join(outputBase, rel))
	writeJar(t, filepath.Join(execRoot, "external/maven/guava.jar"))

	roots := NewRoots(execRoot, outputBase, "", execRoot)
	if len(roots.Dirs()) != 2 {
		t.Fatalf("expected duplicate and empty roots dropped, got %v", roots.Dirs())
	}
	if got := roots.Resolve(rel); got != filepath.Join(outputBase, rel) {
		t.Errorf("expected output base candidate, got %s", got)
	}
	if got := roots.Resolve("external/maven/guava.jar"); got != filepath.Join(execRoot, "external/maven/guava.jar") {
		t.Errorf("expected execution root candidate, got %s", got)
	}
	if got := roots.Resolve("missing.jar"); got != "missing.jar" {
		t.Errorf("expected unresolved path unchanged, got %s", got)
	}
	if got := roots.Resolve("/abs/x.jar"); got != "/abs/x.jar" {
		t.Errorf("expected absolute path unchanged, got %s", got)
	}
}

type infoBazel map[string]string

func (b infoBazel) Run(_ context.Context, cmd execx.Command) (execx.Output, error) {
	return execx.Output{Stdout: []byte(b[cmd.Args[1]] + "\n")}, nil
}

func TestDiscover(t *testing.T) {
	bazel := infoBazel{"execution_root": "/exec", "output_base": "/base"}
	roots := Discover(context.Background(), bazel, "bazel", "/ws", []string{"execution_root", "output_base"}, "/ws")
	got := roots.Dirs()
	want := []string{"/exec", "/base", "/ws"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestJarIndex(t *testing.T) {
	dir := t.TempDir()
	guava := filepath.Join(dir, "guava.jar")
	writeJar(t, guava,
		"META-INF/MANIFEST.MF",
		"com/google/common/collect/ImmutableList.class",
		"com/google/common/base/Strings.class",
	)
	other := filepath.Join(dir, "other.jar")
	writeJar(t, other, "com/google/common/collect/Extra.class", "Root.class")

	ix := NewJarIndex()
	if n := ix.Add(guava, other, guava, filepath.Join(dir, "missing.jar")); n != 2 {
		t.Fatalf("expected 2 jars indexed, got %d", n)
	}
	if got := ix.JarsForPackage("com.google.common.collect"); len(got) != 2 || got[0] != guava {
		t.Errorf("unexpected providers %v", got)
	}
	if got := ix.JarsForPackage("com.google.common.base"); len(got) != 1 {
		t.Errorf("unexpected providers %v", got)
	}
	if got := ix.JarsForPackage("org.junit"); len(got) != 0 {
		t.Errorf("expected no providers, got %v", got)
	}
}
