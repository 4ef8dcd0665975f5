package ownership

import "testing"

func TestOwningModule(t *testing.T) {
	m := New([]Module{
		{Name: "app", Roots: []string{"app"}},
		{Name: "app-api", Roots: []string{"app/api", "./shared/api/"}},
		{Name: "lib", Roots: []string{"b"}},
	})

	tests := []struct {
		sources []string
		want    string
		ok      bool
	}{
		{sources: []string{"app/src/Main.java"}, want: "app", ok: true},
		{sources: []string{"app/api/Api.java"}, want: "app-api", ok: true},
		{sources: []string{"shared/api/X.java"}, want: "app-api", ok: true},
		{sources: []string{"external/x/Y.java", "b/lib/B.java"}, want: "lib", ok: true},
		{sources: []string{"bb/B.java"}, ok: false},
		{sources: nil, ok: false},
	}
	for _, tt := range tests {
		got, ok := m.OwningModule(tt.sources)
		if ok != tt.ok || got != tt.want {
			t.Errorf("OwningModule(%v) = %q, %v; want %q, %v", tt.sources, got, ok, tt.want, tt.ok)
		}
	}
}
