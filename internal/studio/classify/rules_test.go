package classify

import (
	"context"
	"testing"

	"github.com/figdock/figdock/internal/studio/domain"
	"github.com/figdock/figdock/internal/studio/vision"
)

func TestDecideLadder(t *testing.T) {
	cases := []struct {
		name       string
		features   vision.Features
		wantClass  domain.Class
		wantConfid float64
	}{
		{
			name:       "dominant circle is a pie chart",
			features:   vision.Features{CircleRatio: 0.4},
			wantClass:  domain.ClassPieChart,
			wantConfid: 0.8,
		},
		{
			name:       "rectangles without text are bars",
			features:   vision.Features{RectangleRatio: 0.5, TextRatio: 0.1},
			wantClass:  domain.ClassBarChart,
			wantConfid: 0.7,
		},
		{
			name:       "lines without rectangles are a line graph",
			features:   vision.Features{LineDensity: 0.5, RectangleRatio: 0.1},
			wantClass:  domain.ClassLineGraph,
			wantConfid: 0.7,
		},
		{
			name:       "dense text is a table",
			features:   vision.Features{TextRatio: 0.5},
			wantClass:  domain.ClassTable,
			wantConfid: 0.6,
		},
		{
			name:       "edges plus rectangles are a flowchart",
			features:   vision.Features{EdgeDensity: 0.3, RectangleRatio: 0.25, TextRatio: 0.35},
			wantClass:  domain.ClassFlowchart,
			wantConfid: 0.6,
		},
		{
			name:       "smooth colorful content is a photograph",
			features:   vision.Features{EdgeDensity: 0.05, ColorDiversity: 0.2},
			wantClass:  domain.ClassPhotograph,
			wantConfid: 0.6,
		},
		{
			name:       "strong symmetry is a scientific diagram",
			features:   vision.Features{SymmetryH: 0.8},
			wantClass:  domain.ClassScientificDiagram,
			wantConfid: 0.6,
		},
		{
			name:       "many point marks are a scatter plot",
			features:   vision.Features{ScatterPoints: 30},
			wantClass:  domain.ClassScatterPlot,
			wantConfid: 0.7,
		},
		{
			name:       "irregular colored regions are a map",
			features:   vision.Features{ColorDiversity: 0.08, EdgeDensity: 0.2, SymmetryH: 0.1, SymmetryV: 0.1},
			wantClass:  domain.ClassMap,
			wantConfid: 0.6,
		},
		{
			name:       "nothing dominant falls to other diagram",
			features:   vision.Features{},
			wantClass:  domain.ClassDiagramOther,
			wantConfid: 0.4,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			class, confidence, _ := decide(tc.features)
			if class != tc.wantClass {
				t.Fatalf("decide() class = %q, want %q", class, tc.wantClass)
			}
			if confidence != tc.wantConfid {
				t.Fatalf("decide() confidence = %v, want %v", confidence, tc.wantConfid)
			}
		})
	}
}

func TestRuleClassifierResult(t *testing.T) {
	var rules RuleClassifier
	result, err := rules.Classify(context.Background(), &Input{
		Features: vision.Features{CircleRatio: 0.5},
	})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if result.Class != domain.ClassPieChart {
		t.Fatalf("expected pie chart, got %q", result.Class)
	}
	if result.Method != domain.MethodRules {
		t.Fatalf("expected rules method, got %q", result.Method)
	}
	if result.Label != domain.ClassPieChart.Label() {
		t.Fatalf("expected label %q, got %q", domain.ClassPieChart.Label(), result.Label)
	}
	if result.Description == "" || result.Reasoning == "" {
		t.Fatal("expected description and reasoning")
	}
}
