package javasrc

import (
	"sync"
	"testing"
)

const sample = `// header comment
package com.example.app;

import java.util.List;
import static org.junit.Assert.assertEquals;
import com.google.common.collect.*;
import com.example.api.Client;

public class App {
  List<Client> clients;
}
`

func TestParse(t *testing.T) {
	f := NewParser().Parse([]byte(sample))
	if f.Package != "com.example.app" {
		t.Fatalf("expected package com.example.app, got %q", f.Package)
	}
	if len(f.Imports) != 4 {
		t.Fatalf("expected 4 imports, got %+v", f.Imports)
	}

	static := f.Imports[1]
	if !static.Static || static.Path != "org.junit.Assert.assertEquals" {
		t.Errorf("unexpected static import %+v", static)
	}
	wildcard := f.Imports[2]
	if !wildcard.Wildcard || wildcard.Path != "com.google.common.collect" {
		t.Errorf("unexpected wildcard import %+v", wildcard)
	}
}

func TestImportJavaPackage(t *testing.T) {
	tests := []struct {
		imp  Import
		want string
	}{
		{Import{Path: "com.example.api.Client"}, "com.example.api"},
		{Import{Path: "com.example.api.Client.Inner"}, "com.example.api"},
		{Import{Path: "org.junit.Assert.assertEquals", Static: true}, "org.junit"},
		{Import{Path: "com.google.common.collect", Wildcard: true}, "com.google.common.collect"},
		{Import{Path: "lower.case.type"}, "lower.case"},
	}
	for _, tt := range tests {
		if got := tt.imp.JavaPackage(); got != tt.want {
			t.Errorf("JavaPackage(%+v) = %q, want %q", tt.imp, got, tt.want)
		}
	}
}

func TestIsPlatform(t *testing.T) {
	for pkg, want := range map[string]bool{
		"java.util":         true,
		"javax.xml.parsers": true,
		"javax.inject":      false,
		"com.google.common": false,
		"javaish.thing":     false,
	} {
		if got := IsPlatform(pkg); got != want {
			t.Errorf("IsPlatform(%q) = %v, want %v", pkg, got, want)
		}
	}
}

func TestParserConcurrent(t *testing.T) {
	p := NewParser()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := p.Parse([]byte(sample)).Package; got != "com.example.app" {
				t.Errorf("unexpected package %q", got)
			}
		}()
	}
	wg.Wait()
}
