package implicit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"bazelcp/internal/engine/label"
	"bazelcp/internal/engine/metadata"
)

func record(rule string) *metadata.Record {
	return metadata.NewRecord(metadata.Spec{Label: label.MustParse("//a:test"), Rule: rule})
}

func writeRunner(t *testing.T, binDir string) string {
	t.Helper()
	path := filepath.Join(binDir, runnerDir, "external", "remote_java_tools", "java_tools", runnerSuffix)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("jar"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImplicitDependencies(t *testing.T) {
	bin := t.TempDir()
	runner := writeRunner(t, bin)
	h := New("", bin, false)

	entries, err := h.ImplicitDependencies(context.Background(), record("java_test"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ArtifactPath() != runner || !entries[0].TestOnly() {
		t.Fatalf("unexpected entries %v", entries)
	}

	entries, err = h.ImplicitDependencies(context.Background(), record("java_library"))
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected nothing for non-test targets, got %v %v", entries, err)
	}
}

func TestImplicitDependenciesMissingRunner(t *testing.T) {
	bin := t.TempDir()
	h := New("", bin, false)
	entries, err := h.ImplicitDependencies(context.Background(), record("java_test"))
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected no entries, got %v %v", entries, err)
	}

	writeRunner(t, bin)
	entries, _ = h.ImplicitDependencies(context.Background(), record("java_test"))
	if len(entries) != 1 {
		t.Fatal("expected runner to be found once it exists")
	}
}

func TestExplicitTestDepsFromBazelrc(t *testing.T) {
	ws := t.TempDir()
	rc := "# comment --explicit_java_test_deps\nbuild --explicit_java_test_deps=true\n"
	if err := os.WriteFile(filepath.Join(ws, ".bazelrc"), []byte(rc), 0o644); err != nil {
		t.Fatal(err)
	}
	bin := t.TempDir()
	writeRunner(t, bin)

	h := New(ws, bin, false)
	entries, err := h.ImplicitDependencies(context.Background(), record("java_test"))
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected explicit test deps to disable the runner, got %v %v", entries, err)
	}
	if ExplicitTestDeps(filepath.Join(ws, "missing")) {
		t.Error("expected missing bazelrc to report false")
	}
}
