package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"bazelcp/internal/engine/metadata"
	"bazelcp/internal/shared/execx"
)

// workspaceBazel fakes bazel for a workspace where //a:lib depends on //b:lib.
type workspaceBazel struct {
	files []string
}

func (b *workspaceBazel) Run(_ context.Context, cmd execx.Command) (execx.Output, error) {
	switch {
	case slices.Contains(cmd.Args, "info"):
		return execx.Output{}, fmt.Errorf("no bazel server")
	case slices.Contains(cmd.Args, "query"):
		if strings.Contains(strings.Join(cmd.Args, " "), "//b:*") {
			return execx.Output{Stdout: []byte("java_library rule //b:lib\n")}, nil
		}
		return execx.Output{}, nil
	case slices.Contains(cmd.Args, "build"):
		var stderr strings.Builder
		for _, f := range b.files {
			fmt.Fprintf(&stderr, ">>>%s\n", f)
		}
		return execx.Output{Stderr: []byte(stderr.String())}, nil
	}
	return execx.Output{}, fmt.Errorf("unexpected command %v", cmd.Args)
}

const testConfig = `
[workspace]
root = "."

[[workspace.modules]]
name = "a"
package = "//a"
targets = ["//a:lib"]

[[workspace.modules]]
name = "b"
package = "//b"

[classpath]
strategies = ["aspect"]
artifact_roots = ["workspace"]
on_failure = "propagate"
`

func setupWorkspace(t *testing.T) (string, *workspaceBazel) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bazelcp.toml"), []byte(testConfig), 0o644); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}

	bazel := &workspaceBazel{}
	docs := map[string]string{
		"a_lib": `{"label":"//a:lib","kind":"java_library","dependencies":["//b:lib"],"jars":[{"jar":"bazel-out/bin/a/liblib.jar"}],"sources":["a/A.java"]}`,
		"b_lib": `{"label":"//b:lib","kind":"java_library","jars":[{"jar":"bazel-out/bin/b/liblib.jar"}],"sources":["b/B.java"]}`,
	}
	for name, doc := range docs {
		path := filepath.Join(dir, name+metadata.AspectFileSuffix)
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatalf("os.WriteFile() error = %v", err)
		}
		bazel.files = append(bazel.files, path)
	}
	return dir, bazel
}

func execute(t *testing.T, bazel *workspaceBazel, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(bazel)
	cmd.SetArgs(args)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, &workspaceBazel{}, "--version")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(out, "bazelcp version dev\n") {
		t.Fatalf("unexpected version output:\n%s", out)
	}
}

func TestResolveCommand(t *testing.T) {
	dir, bazel := setupWorkspace(t)
	config := filepath.Join(dir, "bazelcp.toml")

	out, err := execute(t, bazel, "--config", config, "resolve")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	want := "a (complete)\n  main:\n    module b\n  references: b\nb (complete)\n"
	if out != want {
		t.Fatalf("resolve output = %q, want %q", out, want)
	}
}

func TestResolveCommandWritesFile(t *testing.T) {
	dir, bazel := setupWorkspace(t)
	target := filepath.Join(dir, "out", "classpath.json")

	out, err := execute(t, bazel, "--config", filepath.Join(dir, "bazelcp.toml"), "resolve", "a", "--format", "json", "--output", target)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out != "" {
		t.Fatalf("expected no stdout when writing to a file, got %q", out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("os.ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), `"module": "b"`) {
		t.Fatalf("unexpected file content:\n%s", data)
	}
}

func TestResolveCommandUnknownUnit(t *testing.T) {
	dir, bazel := setupWorkspace(t)

	out, err := execute(t, bazel, "--config", filepath.Join(dir, "bazelcp.toml"), "resolve", "nope")
	if err == nil {
		t.Fatal("expected error for unknown unit")
	}
	if !strings.Contains(out, "nope (error:") {
		t.Fatalf("expected the failed unit in the output, got:\n%s", out)
	}
}

func TestResolveCommandRejectsFormat(t *testing.T) {
	dir, bazel := setupWorkspace(t)

	_, err := execute(t, bazel, "--config", filepath.Join(dir, "bazelcp.toml"), "resolve", "--format", "dot")
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Fatalf("expected unknown format error, got %v", err)
	}
}

func TestOrderCommand(t *testing.T) {
	dir, bazel := setupWorkspace(t)

	out, err := execute(t, bazel, "--config", filepath.Join(dir, "bazelcp.toml"), "order", "a", "b")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out != "b\na\n" {
		t.Fatalf("order output = %q", out)
	}
}

func TestGraphPathCommand(t *testing.T) {
	dir, bazel := setupWorkspace(t)

	out, err := execute(t, bazel, "--config", filepath.Join(dir, "bazelcp.toml"), "graph", "path", "//a:lib", "//b")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out != "//a:*\n//b:*\n" {
		t.Fatalf("graph path output = %q", out)
	}
}

func TestMetadataCommands(t *testing.T) {
	dir, bazel := setupWorkspace(t)
	config := filepath.Join(dir, "bazelcp.toml")

	if _, err := execute(t, bazel, "--config", config, "resolve"); err != nil {
		t.Fatalf("resolve error = %v", err)
	}

	out, err := execute(t, bazel, "--config", config, "metadata", "list")
	if err != nil {
		t.Fatalf("metadata list error = %v", err)
	}
	if out != "//a:lib\n//b:lib\n" {
		t.Fatalf("metadata list output = %q", out)
	}

	if _, err := execute(t, bazel, "--config", config, "metadata", "forget", "//a:lib"); err != nil {
		t.Fatalf("metadata forget error = %v", err)
	}
	out, err = execute(t, bazel, "--config", config, "metadata", "list")
	if err != nil {
		t.Fatalf("metadata list error = %v", err)
	}
	if out != "//b:lib\n" {
		t.Fatalf("metadata list after forget = %q", out)
	}
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, &workspaceBazel{}, "--config", filepath.Join(t.TempDir(), "absent.toml"), "order")
	if err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}
