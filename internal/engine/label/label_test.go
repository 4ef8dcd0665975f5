package label

import (
	"testing"

	domainerrors "bazelcp/internal/core/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in       string
		want     string
		pattern  Pattern
		external bool
	}{
		{in: "//a:lib", want: "//a:lib", pattern: Concrete},
		{in: "a:lib", want: "//a:lib", pattern: Concrete},
		{in: "//a/b", want: "//a/b:b", pattern: Concrete},
		{in: "//a:*", want: "//a:*", pattern: AllTargets},
		{in: "//a:all", want: "//a:*", pattern: AllTargets},
		{in: "//a/...", want: "//a/...", pattern: Recursive},
		{in: "//a/...:all", want: "//a/...", pattern: Recursive},
		{in: "//...", want: "//...", pattern: Recursive},
		{in: "@maven//:guava", want: "@maven//:guava", pattern: Concrete, external: true},
		{in: "  //a:lib  ", want: "//a:lib", pattern: Concrete},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.in, err)
			}
			if got.String() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.String())
			}
			if got.Pattern() != tt.pattern {
				t.Errorf("expected pattern %s, got %s", tt.pattern, got.Pattern())
			}
			if got.IsExternal() != tt.external {
				t.Errorf("expected external=%v", tt.external)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "//a:", "//a:b:c", "@repo", "//a b:c", "//a/...:lib"} {
		if _, err := Parse(in); !domainerrors.IsCode(err, domainerrors.CodeValidationError) {
			t.Errorf("Parse(%q): expected VALIDATION_ERROR, got %v", in, err)
		}
	}
}

func TestEquality(t *testing.T) {
	if MustParse("//a:lib") != MustParse("a:lib") {
		t.Error("expected leading // to be insignificant")
	}
	if MustParse("//a") != New("a", "a") {
		t.Error("expected default target to normalize to //a:a")
	}
	if MustParse("//a:lib").Key() != "a:lib" {
		t.Errorf("unexpected key %q", MustParse("//a:lib").Key())
	}
}

func TestCovers(t *testing.T) {
	lib := MustParse("//a/b:lib")
	if !MustParse("//a/b:*").Covers(lib) {
		t.Error("expected package wildcard to cover //a/b:lib")
	}
	if MustParse("//a:*").Covers(lib) {
		t.Error("package wildcard must not cover subpackages")
	}
	if !MustParse("//a/...").Covers(lib) {
		t.Error("expected recursive wildcard to cover subpackage")
	}
	if MustParse("//ab/...").Covers(lib) {
		t.Error("recursive wildcard must match whole path segments")
	}
	if !lib.InPackage(MustParse("//a/b:other")) {
		t.Error("expected same package")
	}
}

func TestSetFingerprint(t *testing.T) {
	a := NewSet(MustParse("//a:x"), MustParse("//a:y"))
	b := NewSet(MustParse("//a:y"), MustParse("//a:x"), MustParse("//a:x"))
	if a.Fingerprint() != b.Fingerprint() {
		t.Errorf("expected order-insensitive fingerprint, got %q vs %q", a.Fingerprint(), b.Fingerprint())
	}
	if b.Len() != 2 {
		t.Errorf("expected duplicates to be ignored, got %d", b.Len())
	}
}

func TestUnmarshalText(t *testing.T) {
	var l Label
	if err := l.UnmarshalText([]byte("//x:y")); err != nil {
		t.Fatal(err)
	}
	if l.String() != "//x:y" {
		t.Errorf("got %s", l)
	}
}
