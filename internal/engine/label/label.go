// Package label models Bazel target labels as comparable values.
package label

import (
	"fmt"
	"sort"
	"strings"

	domainerrors "bazelcp/internal/core/errors"

	bzl "github.com/bazelbuild/bazel-gazelle/label"
)

// Pattern classifies a label as a single target or a wildcard.
type Pattern uint8

const (
	// Concrete names exactly one target.
	Concrete Pattern = iota
	// AllTargets is //pkg:* or //pkg:all.
	AllTargets
	// Recursive is //pkg/... (optionally with :* or :all).
	Recursive
)

// Label is a normalized Bazel label. The zero value is invalid.
//
// Two labels are equal when their normalized forms are equal, so Label is
// safe to use as a map key.
type Label struct {
	repo    string
	pkg     string
	name    string
	pattern Pattern
}

// Parse normalizes s. The leading "//" is optional; "@repo//" prefixes are kept.
// A bare package label such as "//a/b" names the default target "//a/b:b".
func Parse(s string) (Label, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Label{}, invalid(s, "empty label")
	}
	if strings.ContainsAny(raw, " \t\\") {
		return Label{}, invalid(s, "label contains whitespace or backslash")
	}

	rest := raw
	repo := ""
	if strings.HasPrefix(rest, "@") {
		i := strings.Index(rest, "//")
		if i < 0 {
			return Label{}, invalid(s, "external label missing //")
		}
		repo = strings.TrimLeft(rest[:i], "@")
		rest = rest[i:]
	}
	rest = strings.TrimPrefix(rest, "//")

	pkgPart, target, hasTarget := strings.Cut(rest, ":")
	if hasTarget && target == "" {
		return Label{}, invalid(s, "empty target name")
	}
	if strings.Contains(target, ":") {
		return Label{}, invalid(s, "more than one ':'")
	}

	if pkgPart == "..." || strings.HasSuffix(pkgPart, "/...") {
		if hasTarget && !isAllTargets(target) {
			return Label{}, invalid(s, "recursive pattern with concrete target")
		}
		pkg := strings.TrimSuffix(strings.TrimSuffix(pkgPart, "..."), "/")
		return Label{repo: repo, pkg: pkg, pattern: Recursive}, nil
	}
	if hasTarget && isAllTargets(target) {
		if strings.HasSuffix(pkgPart, "/") {
			return Label{}, invalid(s, "package path ends with '/'")
		}
		return Label{repo: repo, pkg: pkgPart, pattern: AllTargets}, nil
	}

	canonical := "//" + rest
	if repo != "" {
		canonical = "@" + repo + canonical
	}
	parsed, err := bzl.Parse(canonical)
	if err != nil {
		return Label{}, domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeValidationError, "invalid label"),
			domainerrors.CtxLabel, s,
		)
	}
	return Label{repo: parsed.Repo, pkg: parsed.Pkg, name: parsed.Name, pattern: Concrete}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Label {
	l, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return l
}

// ParseAll parses every element, stopping at the first invalid label.
func ParseAll(values []string) ([]Label, error) {
	out := make([]Label, 0, len(values))
	for _, v := range values {
		l, err := Parse(v)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// New builds a concrete label in the main repository.
func New(pkg, name string) Label {
	return Label{pkg: strings.Trim(pkg, "/"), name: name}
}

// PackageOf returns the ":*" wildcard covering every target in pkg.
func PackageOf(pkg string) Label {
	return Label{pkg: strings.Trim(pkg, "/"), pattern: AllTargets}
}

func isAllTargets(target string) bool {
	return target == "*" || target == "all" || target == "all-targets"
}

func invalid(s, reason string) error {
	return domainerrors.AddContext(
		domainerrors.New(domainerrors.CodeValidationError, "invalid label: "+reason),
		domainerrors.CtxLabel, s,
	)
}

func (l Label) IsZero() bool { return l == Label{} }

func (l Label) Repo() string { return l.repo }

// Package is the package path without leading slashes, "" for the root package.
func (l Label) Package() string { return l.pkg }

// Name is the target name; empty for wildcards.
func (l Label) Name() string { return l.name }

func (l Label) Pattern() Pattern { return l.pattern }

func (l Label) IsConcrete() bool { return l.pattern == Concrete && !l.IsZero() }

// IsExternal reports labels that live in another repository (the "@" prefix).
func (l Label) IsExternal() bool { return l.repo != "" }

// InPackage reports whether l lives directly in package other.Package().
func (l Label) InPackage(other Label) bool {
	return l.repo == other.repo && l.pkg == other.pkg
}

// Covers reports whether the pattern l matches the concrete label c.
func (l Label) Covers(c Label) bool {
	if l.repo != c.repo {
		return false
	}
	switch l.pattern {
	case Concrete:
		return l == c
	case AllTargets:
		return l.pkg == c.pkg
	default:
		return l.pkg == "" || c.pkg == l.pkg || strings.HasPrefix(c.pkg, l.pkg+"/")
	}
}

// PackageLabel collapses l onto its package wildcard.
func (l Label) PackageLabel() Label {
	return Label{repo: l.repo, pkg: l.pkg, pattern: AllTargets}
}

// Key is the normalized form with the leading "//" stripped.
func (l Label) Key() string {
	return strings.TrimPrefix(l.String(), "//")
}

func (l Label) String() string {
	if l.IsZero() {
		return ""
	}
	var b strings.Builder
	if l.repo != "" {
		b.WriteString("@")
		b.WriteString(l.repo)
	}
	b.WriteString("//")
	b.WriteString(l.pkg)
	switch l.pattern {
	case AllTargets:
		b.WriteString(":*")
	case Recursive:
		if l.pkg != "" {
			b.WriteString("/")
		}
		b.WriteString("...")
	default:
		b.WriteString(":")
		b.WriteString(l.name)
	}
	return b.String()
}

func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Sort orders labels by their normalized form.
func Sort(labels []Label) {
	sort.Slice(labels, func(i, j int) bool { return labels[i].String() < labels[j].String() })
}

// Strings renders labels in order.
func Strings(labels []Label) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = l.String()
	}
	return out
}

// Set is an insertion-ordered set of labels.
type Set struct {
	order []Label
	seen  map[Label]struct{}
}

func NewSet(labels ...Label) *Set {
	s := &Set{seen: make(map[Label]struct{}, len(labels))}
	for _, l := range labels {
		s.Add(l)
	}
	return s
}

// Add returns false when l was already present.
func (s *Set) Add(l Label) bool {
	if _, ok := s.seen[l]; ok {
		return false
	}
	s.seen[l] = struct{}{}
	s.order = append(s.order, l)
	return true
}

func (s *Set) Contains(l Label) bool {
	if s == nil {
		return false
	}
	_, ok := s.seen[l]
	return ok
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Labels returns a copy in insertion order.
func (s *Set) Labels() []Label {
	if s == nil {
		return nil
	}
	out := make([]Label, len(s.order))
	copy(out, s.order)
	return out
}

// Fingerprint is a stable string identifying the set contents regardless of order.
func (s *Set) Fingerprint() string {
	labels := s.Labels()
	Sort(labels)
	return strings.Join(Strings(labels), ",")
}

func (p Pattern) String() string {
	switch p {
	case Concrete:
		return "concrete"
	case AllTargets:
		return "all-targets"
	case Recursive:
		return "recursive"
	default:
		return fmt.Sprintf("pattern(%d)", uint8(p))
	}
}
