package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"

	"bazelcp/internal/engine/classpath"
	"bazelcp/internal/engine/coordinator"
	"bazelcp/internal/engine/graph"
	"bazelcp/internal/engine/label"
)

const runnerJar = "bazel-bin/external/bazel_tools/tools/jdk/_ijar/TestRunner/Runner_deploy-ijar.jar"

func sampleResults() []coordinator.UnitResult {
	b := classpath.NewBuilder()
	b.Add(classpath.Binary("external/maven/guava.jar", "external/maven/guava-src.jar", false), false)
	b.Add(classpath.ModuleRef("b"), false)
	b.AddModuleReference("b")
	b.Add(classpath.Binary("external/maven/junit.jar", "", true), true)
	b.AddImplicit(classpath.Binary(runnerJar, "", true))

	return []coordinator.UnitResult{
		{Unit: "a", Result: classpath.Assemble(b)},
		{Unit: "b", Result: classpath.Empty()},
		{Unit: "c", Err: errors.New("bazel server crashed")},
	}
}

func TestRenderClasspathsText(t *testing.T) {
	var buf bytes.Buffer
	if err := renderClasspaths(&buf, formatText, sampleResults()); err != nil {
		t.Fatalf("renderClasspaths() error = %v", err)
	}
	goldie.New(t).Assert(t, "classpath_text", buf.Bytes())
}

func TestRenderClasspathsJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := renderClasspaths(&buf, formatJSON, sampleResults()); err != nil {
		t.Fatalf("renderClasspaths() error = %v", err)
	}
	goldie.New(t).Assert(t, "classpath_json", buf.Bytes())
}

func TestRenderClasspathsUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := renderClasspaths(&buf, "dot", sampleResults()); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func sampleGraph() *graph.Graph {
	g := graph.New()
	g.AddEdge(label.MustParse("//app:*"), label.MustParse("//lib:*"))
	g.AddEdge(label.MustParse("//lib:*"), label.MustParse("@maven//:*"))
	g.AddEdge(label.MustParse("//tools:*"), label.MustParse("//lib:*"))
	return g
}

func TestRenderGraphSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := renderGraphSummary(&buf, sampleGraph(), false); err != nil {
		t.Fatalf("renderGraphSummary() error = %v", err)
	}
	goldie.New(t).Assert(t, "graph_summary", buf.Bytes())
}

func TestRenderGraphSummaryIgnoringExternals(t *testing.T) {
	var buf bytes.Buffer
	if err := renderGraphSummary(&buf, sampleGraph(), true); err != nil {
		t.Fatalf("renderGraphSummary() error = %v", err)
	}
	goldie.New(t).Assert(t, "graph_summary_internal", buf.Bytes())
}

func TestRenderCycles(t *testing.T) {
	g := sampleGraph()
	g.AddEdge(label.MustParse("//lib:*"), label.MustParse("//app:*"))
	cycles, err := g.Cycles()
	if err != nil {
		t.Fatalf("Cycles() error = %v", err)
	}

	var buf bytes.Buffer
	if err := renderCycles(&buf, cycles); err != nil {
		t.Fatalf("renderCycles() error = %v", err)
	}
	if got, want := buf.String(), "cycle 1: //app:* -> //lib:*\n"; got != want {
		t.Fatalf("renderCycles() = %q, want %q", got, want)
	}

	buf.Reset()
	if err := renderCycles(&buf, nil); err != nil {
		t.Fatalf("renderCycles() error = %v", err)
	}
	if got := buf.String(); got != "no cycles\n" {
		t.Fatalf("renderCycles(nil) = %q", got)
	}
}
