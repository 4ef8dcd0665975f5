// Package metadata holds per-target build metadata reported by the Bazel
// aspect and the index that groups it by requesting label.
package metadata

import (
	"slices"
	"strings"

	"bazelcp/internal/engine/label"
)

// Kind is the coarse rule category that drives classpath decisions.
type Kind uint8

const (
	KindOther Kind = iota
	KindLibrary
	KindBinary
	KindTest
	KindImport
)

// ParseKind maps a rule class such as "java_library" or "kt_jvm_test".
func ParseKind(rule string) Kind {
	rule = strings.TrimSpace(rule)
	switch {
	case rule == "":
		return KindOther
	case strings.HasSuffix(rule, "_import") || rule == "jvm_import":
		return KindImport
	case strings.HasSuffix(rule, "_test"):
		return KindTest
	case strings.HasSuffix(rule, "_binary"):
		return KindBinary
	case strings.HasSuffix(rule, "_library"):
		return KindLibrary
	default:
		return KindOther
	}
}

func (k Kind) IsTest() bool { return k == KindTest }

func (k Kind) String() string {
	switch k {
	case KindLibrary:
		return "library"
	case KindBinary:
		return "binary"
	case KindTest:
		return "test"
	case KindImport:
		return "import"
	default:
		return "other"
	}
}

// Artifact is a compiled jar with its optional source jar. Paths are as
// reported by Bazel, usually relative to the execution root.
type Artifact struct {
	Binary string
	Source string
}

// Spec carries the fields used to build a Record.
type Spec struct {
	Label     label.Label
	Rule      string
	Sources   []string
	Deps      []label.Label
	Produced  []Artifact
	Generated []Artifact
	BuildFile string
	MainClass string
}

// Record is immutable once built; accessors return copies.
type Record struct {
	label     label.Label
	rule      string
	kind      Kind
	sources   []string
	deps      []label.Label
	produced  []Artifact
	generated []Artifact
	buildFile string
	mainClass string
}

func NewRecord(s Spec) *Record {
	return &Record{
		label:     s.Label,
		rule:      s.Rule,
		kind:      ParseKind(s.Rule),
		sources:   slices.Clone(s.Sources),
		deps:      slices.Clone(s.Deps),
		produced:  slices.Clone(s.Produced),
		generated: slices.Clone(s.Generated),
		buildFile: s.BuildFile,
		mainClass: s.MainClass,
	}
}

func (r *Record) Label() label.Label { return r.label }

func (r *Record) Rule() string { return r.rule }

func (r *Record) Kind() Kind { return r.kind }

// Sources are workspace-relative source file paths.
func (r *Record) Sources() []string { return slices.Clone(r.sources) }

func (r *Record) Deps() []label.Label { return slices.Clone(r.deps) }

func (r *Record) Produced() []Artifact { return slices.Clone(r.produced) }

func (r *Record) Generated() []Artifact { return slices.Clone(r.generated) }

func (r *Record) BuildFile() string { return r.buildFile }

func (r *Record) MainClass() string { return r.mainClass }

// Spec returns the fields the record was built from.
func (r *Record) Spec() Spec {
	return Spec{
		Label:     r.label,
		Rule:      r.rule,
		Sources:   r.Sources(),
		Deps:      r.Deps(),
		Produced:  r.Produced(),
		Generated: r.Generated(),
		BuildFile: r.buildFile,
		MainClass: r.mainClass,
	}
}

// Artifacts lists generated artifacts followed by produced ones, the order
// they appear on a classpath.
func (r *Record) Artifacts() []Artifact {
	out := make([]Artifact, 0, len(r.generated)+len(r.produced))
	out = append(out, r.generated...)
	return append(out, r.produced...)
}

// Closure walks the dependency graph from root across byLabel and returns
// root followed by every reachable record, each once. Unknown deps are skipped.
func Closure(root *Record, byLabel map[label.Label]*Record) []*Record {
	out := []*Record{root}
	visited := map[label.Label]bool{root.label: true}
	queue := slices.Clone(root.deps)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if visited[next] {
			continue
		}
		visited[next] = true
		rec, ok := byLabel[next]
		if !ok {
			continue
		}
		out = append(out, rec)
		queue = append(queue, rec.deps...)
	}
	return out
}
