package metastore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bazelcp/internal/engine/label"
	"bazelcp/internal/engine/metadata"
)

func openStore(t *testing.T, key string) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "meta.db"), key)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRecords() []*metadata.Record {
	return []*metadata.Record{
		metadata.NewRecord(metadata.Spec{
			Label:   label.MustParse("//a:lib"),
			Rule:    "java_library",
			Sources: []string{"a/Main.java"},
			Deps:    []label.Label{label.MustParse("//b:lib")},
			Produced: []metadata.Artifact{
				{Binary: "bazel-out/bin/a/liblib.jar", Source: "bazel-out/bin/a/liblib-src.jar"},
			},
		}),
		metadata.NewRecord(metadata.Spec{
			Label:    label.MustParse("//b:lib"),
			Rule:     "java_import",
			Produced: []metadata.Artifact{{Binary: "b/lib.jar"}},
		}),
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, "ws")
	target := label.MustParse("//a:lib")

	if _, ok, err := store.LoadLastGood(ctx, target); err != nil || ok {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}
	if err := store.SaveLastGood(ctx, target, sampleRecords()); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := store.LoadLastGood(ctx, target)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[1].Kind() != metadata.KindImport || got[1].Produced()[0].Binary != "b/lib.jar" {
		t.Fatalf("unexpected second record %+v", got[1].Spec())
	}
	if deps := got[0].Deps(); len(deps) != 1 || deps[0] != label.MustParse("//b:lib") {
		t.Fatalf("deps not preserved: %v", deps)
	}
}

func TestStore_SaveReplacesPreviousRecords(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, "ws")
	target := label.MustParse("//a:lib")

	if err := store.SaveLastGood(ctx, target, sampleRecords()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveLastGood(ctx, target, sampleRecords()[1:]); err != nil {
		t.Fatalf("save again: %v", err)
	}

	got, _, err := store.LoadLastGood(ctx, target)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected replacement, got %d records", len(got))
	}
	paths, err := store.ArtifactPaths(ctx)
	if err != nil {
		t.Fatalf("artifacts: %v", err)
	}
	if len(paths) != 1 || paths[0] != "b/lib.jar" {
		t.Fatalf("expected stale artifacts removed, got %v", paths)
	}
}

func TestStore_LabelsArtifactsAndForget(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, "ws")
	a := label.MustParse("//a:lib")
	b := label.MustParse("//b:lib")

	if err := store.SaveLastGood(ctx, b, sampleRecords()[1:]); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveLastGood(ctx, a, sampleRecords()); err != nil {
		t.Fatal(err)
	}

	labels, err := store.Labels(ctx)
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	if got := label.Strings(labels); len(got) != 2 || got[0] != "//a:lib" || got[1] != "//b:lib" {
		t.Fatalf("unexpected labels %v", got)
	}

	paths, err := store.ArtifactPaths(ctx)
	if err != nil {
		t.Fatalf("artifacts: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 distinct artifacts, got %v", paths)
	}

	if err := store.Forget(ctx, a); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if _, ok, _ := store.LoadLastGood(ctx, a); ok {
		t.Fatal("expected forgotten label to be gone")
	}
	paths, err = store.ArtifactPaths(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 || paths[0] != "b/lib.jar" {
		t.Fatalf("expected artifacts cascade on forget, got %v", paths)
	}
}

func TestStore_WorkspacesArePartitioned(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")
	first, err := Open(path, "one")
	if err != nil {
		t.Fatal(err)
	}
	target := label.MustParse("//a:lib")
	if err := first.SaveLastGood(ctx, target, sampleRecords()); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second, err := Open(path, "two")
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	if _, ok, err := second.LoadLastGood(ctx, target); err != nil || ok {
		t.Fatalf("expected no records for other workspace, ok=%v err=%v", ok, err)
	}
}

func TestStore_OpenRejectsDirectoryPath(t *testing.T) {
	_, err := Open(t.TempDir(), "")
	if err == nil {
		t.Fatal("expected open error for directory path")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStore_OpenCorruptDBPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.db")
	if err := os.WriteFile(path, []byte("this is not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path, "")
	if err == nil {
		t.Fatal("expected sqlite open error")
	}
	if !IsCorruptError(err) && !strings.Contains(strings.ToLower(err.Error()), "schema") {
		t.Fatalf("expected corrupt/schema error, got: %v", err)
	}
}
