package domain

import (
	"strings"
	"testing"
)

func TestAllCoversTaxonomy(t *testing.T) {
	all := All()
	if len(all) != len(classes) {
		t.Fatalf("expected %d classes in display order, got %d", len(classes), len(all))
	}
	seen := map[Class]bool{}
	for _, c := range all {
		if !c.Valid() {
			t.Fatalf("class %q in order but not in taxonomy", c)
		}
		if seen[c] {
			t.Fatalf("class %q listed twice", c)
		}
		seen[c] = true
	}
}

func TestLabelFormat(t *testing.T) {
	cases := []struct {
		class Class
		want  string
	}{
		{ClassBarChart, "📊 Bar Chart"},
		{ClassPieChart, "🥧 Pie Chart"},
		{ClassUnknown, "❓ Unknown"},
		{ClassOrganizationalChart, "🗂️ Organizational Chart"},
	}
	for _, tc := range cases {
		if got := tc.class.Label(); got != tc.want {
			t.Errorf("Label(%q) = %q, want %q", tc.class, got, tc.want)
		}
	}
}

func TestKeywordsAreLowercase(t *testing.T) {
	for _, c := range All() {
		for _, kw := range c.Keywords() {
			if kw != strings.ToLower(kw) {
				t.Errorf("class %q keyword %q is not lowercase", c, kw)
			}
		}
	}
}

func TestParseClass(t *testing.T) {
	if c, ok := ParseClass(" Bar_Chart "); !ok || c != ClassBarChart {
		t.Fatalf("ParseClass(bar_chart) = %q, %v", c, ok)
	}
	if _, ok := ParseClass("hologram"); ok {
		t.Fatal("expected unknown class name to fail")
	}
}

func TestFallback(t *testing.T) {
	fb := Fallback("")
	if fb.Class != ClassUnknown {
		t.Fatalf("expected unknown class, got %q", fb.Class)
	}
	if fb.Confidence != FallbackConfidence {
		t.Fatalf("expected confidence %v, got %v", FallbackConfidence, fb.Confidence)
	}
	if fb.Method != MethodFallback {
		t.Fatalf("expected fallback method, got %q", fb.Method)
	}
	if fb.Reasoning == "" {
		t.Fatal("expected default reasoning")
	}
}
