package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizePatternPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "WorkspaceRoot", input: ".", expected: ""},
		{name: "Empty", input: "", expected: ""},
		{name: "SourceRoot", input: "  ./java/app/src/main/java/  ", expected: "java/app/src/main/java"},
		{name: "PackageDirWithParent", input: "java/app/../lib", expected: "java/lib"},
		{name: "WindowsSeparators", input: `java\app\src`, expected: "java/app/src"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizePatternPath(tc.input); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestHasPathPrefix(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		path     string
		prefix   string
		expected bool
	}{
		{name: "SourceUnderRoot", path: "java/app/src/main/java/com/acme/App.java", prefix: "java/app/src/main/java", expected: true},
		{name: "PackageDir", path: "java/app", prefix: "java/app", expected: true},
		{name: "SiblingPackage", path: "java/application/Main.java", prefix: "java/app", expected: false},
		{name: "ParentOfRoot", path: "java", prefix: "java/app", expected: false},
		{name: "EmptyPrefixMatchesOnlyEmpty", path: "java/app/Main.java", prefix: ".", expected: false},
		{name: "RelativeSource", path: "./java/app/Main.java", prefix: "java/app", expected: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HasPathPrefix(tc.path, tc.prefix); got != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestContainsPathSeparator(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		value    string
		expected bool
	}{
		{name: "ModuleName", value: "app-tests", expected: false},
		{name: "PackagePath", value: "java/app", expected: true},
		{name: "WindowsPath", value: `java\app`, expected: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ContainsPathSeparator(tc.value); got != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestSortedStringKeys(t *testing.T) {
	t.Parallel()

	refs := map[string][]string{"web": {"core"}, "api": {"core"}, "core": nil}
	keys := SortedStringKeys(refs)
	expected := []string{"api", "core", "web"}
	if len(keys) != len(expected) {
		t.Fatalf("expected %d keys, got %d", len(expected), len(keys))
	}
	for i, key := range expected {
		if keys[i] != key {
			t.Fatalf("expected %q at %d, got %q", key, i, keys[i])
		}
	}
}

func TestWriteFileWithDirs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "classpath", "app.json")
	content := []byte(`[{"unit":"app"}]`)

	if err := WriteFileWithDirs(path, content, 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("expected %q, got %q", string(content), string(got))
	}
}
