// Package javasrc reads package and import declarations from Java sources.
package javasrc

import (
	"strings"
	"sync"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

// File is the header of one compilation unit.
type File struct {
	Package string
	Imports []Import
}

type Import struct {
	// Path is the dotted import path without "static" or a trailing ".*".
	Path     string
	Static   bool
	Wildcard bool
}

// JavaPackage returns the package the import refers to: the leading
// lower-case segments before the first type name.
func (i Import) JavaPackage() string {
	segments := strings.Split(i.Path, ".")
	end := len(segments)
	for idx, s := range segments {
		if s != "" && unicode.IsUpper([]rune(s)[0]) {
			end = idx
			break
		}
	}
	if end == len(segments) && !i.Wildcard && len(segments) > 1 {
		// All lower case, no wildcard: the last segment is the type.
		end = len(segments) - 1
	}
	return strings.Join(segments[:end], ".")
}

// Parser parses Java sources. Safe for concurrent use.
type Parser struct {
	lang *sitter.Language
	pool sync.Pool
}

func NewParser() *Parser {
	p := &Parser{lang: sitter.NewLanguage(tree_sitter_java.Language())}
	p.pool.New = func() any {
		sp := sitter.NewParser()
		_ = sp.SetLanguage(p.lang)
		return sp
	}
	return p
}

// Parse extracts the package and imports. Syntax errors elsewhere in the
// file do not prevent header extraction.
func (p *Parser) Parse(src []byte) File {
	sp := p.pool.Get().(*sitter.Parser)
	defer func() {
		sp.Reset()
		p.pool.Put(sp)
	}()

	tree := sp.Parse(src, nil)
	if tree == nil {
		return File{}
	}
	defer tree.Close()

	var f File
	root := tree.RootNode()
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "package_declaration":
			f.Package = strings.ReplaceAll(declarationBody(child.Utf8Text(src), "package"), " ", "")
		case "import_declaration":
			f.Imports = append(f.Imports, parseImport(child.Utf8Text(src)))
		}
	}
	return f
}

func parseImport(text string) Import {
	body := declarationBody(text, "import")
	imp := Import{}
	if rest, ok := strings.CutPrefix(body, "static "); ok {
		imp.Static = true
		body = strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutSuffix(body, ".*"); ok {
		imp.Wildcard = true
		body = rest
	}
	imp.Path = strings.ReplaceAll(body, " ", "")
	return imp
}

// declarationBody strips the keyword, the semicolon, annotations and whitespace.
func declarationBody(text, keyword string) string {
	fields := strings.Fields(strings.TrimSuffix(strings.TrimSpace(text), ";"))
	var out []string
	for _, f := range fields {
		if strings.HasPrefix(f, "@") {
			continue
		}
		out = append(out, f)
	}
	if len(out) > 0 && out[0] == keyword {
		out = out[1:]
	}
	return strings.Join(out, " ")
}

var platformPrefixes = []string{
	"java.", "jdk.", "sun.", "com.sun.",
	"javax.swing.", "javax.xml.", "javax.net.", "javax.crypto.", "javax.sql.",
	"javax.naming.", "javax.management.", "javax.security.", "javax.script.",
	"javax.tools.", "javax.lang.model.", "javax.annotation.processing.",
}

// IsPlatform reports packages provided by the JDK.
func IsPlatform(javaPackage string) bool {
	for _, prefix := range platformPrefixes {
		if strings.HasPrefix(javaPackage+".", prefix) {
			return true
		}
	}
	return false
}
