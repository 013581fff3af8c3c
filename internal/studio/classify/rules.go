package classify

import (
	"context"
	"fmt"

	"github.com/figdock/figdock/internal/studio/domain"
	"github.com/figdock/figdock/internal/studio/vision"
)

// scatterPointThreshold is how many small blobs read as a scatter plot.
const scatterPointThreshold = 20

// RuleClassifier decides a class from extracted visual features alone. It
// never declines, so it terminates the chain in local mode.
type RuleClassifier struct{}

// Method implements Classifier.
func (RuleClassifier) Method() domain.Method { return domain.MethodRules }

// Classify walks the feature decision ladder. Earlier rules encode
// stronger visual signatures and carry higher confidence.
func (RuleClassifier) Classify(_ context.Context, in *Input) (domain.Classification, error) {
	class, confidence, trigger := decide(in.Features)

	result := domain.NewClassification(class, confidence, domain.MethodRules)
	result.Description = class.Brief()
	result.Reasoning = fmt.Sprintf("Rule-based decision based on visual features: %s", trigger)
	result.VisualElements = elementsForClass(class, "")
	return result, nil
}

func decide(f vision.Features) (domain.Class, float64, string) {
	switch {
	case f.CircleRatio > 0.3:
		return domain.ClassPieChart, 0.8, "dominant circular region"
	case f.RectangleRatio > 0.4 && f.TextRatio < 0.3:
		return domain.ClassBarChart, 0.7, "rectangular bars without dense text"
	case f.LineDensity > 0.3 && f.RectangleRatio < 0.2:
		return domain.ClassLineGraph, 0.7, "line structures without rectangles"
	case f.TextRatio > 0.4:
		return domain.ClassTable, 0.6, "dense text bands"
	case f.EdgeDensity > 0.2 && f.RectangleRatio > 0.2:
		return domain.ClassFlowchart, 0.6, "connected boxes with many edges"
	case f.EdgeDensity < 0.1 && f.ColorDiversity > 0.1:
		return domain.ClassPhotograph, 0.6, "smooth color-rich content"
	case f.SymmetryH > 0.7 || f.SymmetryV > 0.7:
		return domain.ClassScientificDiagram, 0.6, "strong structural symmetry"
	case f.ScatterPoints > scatterPointThreshold:
		return domain.ClassScatterPlot, 0.7, "many small point marks"
	case isMapLike(f):
		return domain.ClassMap, 0.6, "irregular colored regions"
	default:
		return domain.ClassDiagramOther, 0.4, "no dominant visual signature"
	}
}

func isMapLike(f vision.Features) bool {
	return f.ColorDiversity > 0.05 &&
		f.EdgeDensity > 0.1 && f.EdgeDensity < 0.3 &&
		f.SymmetryH < 0.3 && f.SymmetryV < 0.3
}
