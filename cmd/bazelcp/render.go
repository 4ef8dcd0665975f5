package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"bazelcp/internal/engine/classpath"
	"bazelcp/internal/engine/coordinator"
	"bazelcp/internal/engine/graph"
	"bazelcp/internal/engine/label"
)

const (
	formatText = "text"
	formatJSON = "json"
)

func supportedFormats() string {
	return strings.Join([]string{formatText, formatJSON}, ", ")
}

type entryJSON struct {
	Path     string `json:"path,omitempty"`
	Source   string `json:"source,omitempty"`
	Module   string `json:"module,omitempty"`
	TestOnly bool   `json:"test_only,omitempty"`
}

type unitJSON struct {
	Unit       string      `json:"unit"`
	Complete   bool        `json:"complete"`
	Error      string      `json:"error,omitempty"`
	Main       []entryJSON `json:"main"`
	Test       []entryJSON `json:"test"`
	Implicit   []entryJSON `json:"implicit"`
	References []string    `json:"references"`
}

func renderClasspaths(w io.Writer, format string, results []coordinator.UnitResult) error {
	switch format {
	case formatText:
		return renderClasspathsText(w, results)
	case formatJSON:
		return renderClasspathsJSON(w, results)
	default:
		return fmt.Errorf("unknown format: %s (valid options: %s)", format, supportedFormats())
	}
}

func renderClasspathsText(w io.Writer, results []coordinator.UnitResult) error {
	var b strings.Builder
	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(&b, "%s (error: %v)\n", r.Unit, r.Err)
			continue
		case r.Result.Complete():
			fmt.Fprintf(&b, "%s (complete)\n", r.Unit)
		default:
			fmt.Fprintf(&b, "%s (incomplete)\n", r.Unit)
		}
		writeSection(&b, "main", r.Result.Main())
		writeSection(&b, "test", r.Result.Test())
		writeSection(&b, "implicit", r.Result.Implicit())
		if refs := r.Result.ModuleReferences(); len(refs) > 0 {
			fmt.Fprintf(&b, "  references: %s\n", strings.Join(refs, ", "))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeSection(b *strings.Builder, name string, entries []classpath.Entry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s:\n", name)
	for _, e := range entries {
		fmt.Fprintf(b, "    %s\n", e)
	}
}

func renderClasspathsJSON(w io.Writer, results []coordinator.UnitResult) error {
	out := make([]unitJSON, 0, len(results))
	for _, r := range results {
		u := unitJSON{
			Unit:       r.Unit,
			Main:       []entryJSON{},
			Test:       []entryJSON{},
			Implicit:   []entryJSON{},
			References: []string{},
		}
		if r.Err != nil {
			u.Error = r.Err.Error()
			out = append(out, u)
			continue
		}
		u.Complete = r.Result.Complete()
		u.Main = toEntryJSON(r.Result.Main())
		u.Test = toEntryJSON(r.Result.Test())
		u.Implicit = toEntryJSON(r.Result.Implicit())
		u.References = append(u.References, r.Result.ModuleReferences()...)
		out = append(out, u)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func toEntryJSON(entries []classpath.Entry) []entryJSON {
	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		if e.Kind() == classpath.EntryModule {
			out = append(out, entryJSON{Module: e.Module()})
			continue
		}
		out = append(out, entryJSON{
			Path:     e.ArtifactPath(),
			Source:   e.SourceArtifactPath(),
			TestOnly: e.TestOnly(),
		})
	}
	return out
}

func renderLines(w io.Writer, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

func renderGraphSummary(w io.Writer, g *graph.Graph, ignoreExternal bool) error {
	nodes, edges := g.Len()
	leaves := g.Leaves()
	if ignoreExternal {
		leaves = g.LeavesIgnoringExternals()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "nodes: %d\n", nodes)
	fmt.Fprintf(&b, "edges: %d\n", edges)
	writeLabels(&b, "roots", g.Roots())
	writeLabels(&b, "leaves", leaves)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeLabels(b *strings.Builder, name string, labels []label.Label) {
	fmt.Fprintf(b, "%s:\n", name)
	for _, l := range labels {
		fmt.Fprintf(b, "  %s\n", l)
	}
}

func renderCycles(w io.Writer, cycles [][]label.Label) error {
	if len(cycles) == 0 {
		_, err := io.WriteString(w, "no cycles\n")
		return err
	}
	var b strings.Builder
	for i, c := range cycles {
		fmt.Fprintf(&b, "cycle %d: %s\n", i+1, strings.Join(label.Strings(c), " -> "))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
