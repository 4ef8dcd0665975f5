// Package classpath accumulates and assembles the compile classpath of a
// build unit.
package classpath

import "fmt"

type EntryKind uint8

const (
	// EntryBinary points at a compiled artifact (a jar).
	EntryBinary EntryKind = iota
	// EntryModule references another build unit instead of its artifact.
	EntryModule
)

// Entry is one classpath element. Binary entries are keyed by artifact
// path, module references by module id.
type Entry struct {
	kind     EntryKind
	artifact string
	source   string
	testOnly bool
	module   string
}

func Binary(artifact, source string, testOnly bool) Entry {
	return Entry{kind: EntryBinary, artifact: artifact, source: source, testOnly: testOnly}
}

func ModuleRef(module string) Entry {
	return Entry{kind: EntryModule, module: module}
}

func (e Entry) Kind() EntryKind { return e.kind }

func (e Entry) ArtifactPath() string { return e.artifact }

func (e Entry) SourceArtifactPath() string { return e.source }

func (e Entry) TestOnly() bool { return e.testOnly }

func (e Entry) Module() string { return e.module }

// Key is the deduplication key: artifact path, or the module id for references.
func (e Entry) Key() string {
	if e.kind == EntryModule {
		return "module:" + e.module
	}
	return e.artifact
}

func (e Entry) withTestOnly(testOnly bool) Entry {
	e.testOnly = testOnly
	return e
}

func (e Entry) String() string {
	if e.kind == EntryModule {
		return fmt.Sprintf("module %s", e.module)
	}
	if e.testOnly {
		return e.artifact + " (test)"
	}
	return e.artifact
}
