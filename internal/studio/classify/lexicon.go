package classify

import (
	"fmt"
	"strings"

	"github.com/figdock/figdock/internal/studio/domain"
	"github.com/figdock/figdock/internal/studio/vision"
)

// maxVisualElements bounds the element list attached to a result.
const maxVisualElements = 5

// scoreLexicon sums the lengths of every class keyword found in the
// caption. Longer matched keywords count for more, so "organizational
// chart" outweighs a bare "chart".
func scoreLexicon(caption string) map[domain.Class]int {
	lower := strings.ToLower(caption)
	scores := make(map[domain.Class]int)
	for _, class := range domain.All() {
		total := 0
		for _, kw := range class.Keywords() {
			if strings.Contains(lower, kw) {
				total += len(kw)
			}
		}
		if total > 0 {
			scores[class] = total
		}
	}
	return scores
}

// boostScores nudges caption scores with coarse visual evidence: square
// canvases favor axis charts, very wide ones favor timelines and
// flowcharts, color diversity separates photographs from plain charts.
func boostScores(scores map[domain.Class]int, f vision.Features) {
	boost := func(classes []domain.Class, amount int) {
		for _, c := range classes {
			if _, ok := scores[c]; ok {
				scores[c] += amount
			}
		}
	}
	if f.AspectRatio >= 0.8 && f.AspectRatio <= 1.5 {
		boost([]domain.Class{domain.ClassBarChart, domain.ClassLineGraph, domain.ClassScatterPlot}, 5)
	}
	if f.AspectRatio > 2 {
		boost([]domain.Class{domain.ClassTimeline, domain.ClassFlowchart}, 8)
	}
	if f.ColorDiversity > 0.1 {
		boost([]domain.Class{domain.ClassPhotograph, domain.ClassInfographic, domain.ClassMap}, 6)
	} else if f.ColorDiversity < 0.01 {
		boost([]domain.Class{domain.ClassBarChart, domain.ClassLineGraph}, 4)
	}
}

// classifyCaption turns a caption into a classification, or declines via
// visualFallback when no keyword matched.
func classifyCaption(caption string, f vision.Features, method domain.Method) domain.Classification {
	scores := scoreLexicon(caption)
	boostScores(scores, f)

	var best domain.Class
	bestScore := 0
	for _, class := range domain.All() {
		if score, ok := scores[class]; ok && score > bestScore {
			best, bestScore = class, score
		}
	}
	if bestScore == 0 {
		return visualFallback(f, caption, method)
	}

	confidence := 0.5 + float64(bestScore)/20
	if confidence > 0.95 {
		confidence = 0.95
	}
	result := domain.NewClassification(best, confidence, method)
	result.Description = describeClass(best, caption)
	result.Reasoning = fmt.Sprintf("Classified as %s using description %q", best, caption)
	result.VisualElements = elementsForClass(best, caption)
	return result
}

// visualFallback classifies from gross visual shape when the caption
// carried no lexicon signal.
func visualFallback(f vision.Features, caption string, method domain.Method) domain.Classification {
	var class domain.Class
	var confidence float64
	switch {
	case f.ColorDiversity > 0.1:
		class, confidence = domain.ClassPhotograph, 0.6
	case f.AspectRatio > 2:
		class, confidence = domain.ClassTimeline, 0.5
	case f.AspectRatio >= 0.8 && f.AspectRatio <= 1.2:
		class, confidence = domain.ClassChartOther, 0.5
	default:
		class, confidence = domain.ClassDiagramOther, 0.4
	}
	result := domain.NewClassification(class, confidence, method)
	result.Description = fmt.Sprintf("Visual analysis suggests a %s", strings.ReplaceAll(string(class), "_", " "))
	result.Reasoning = fmt.Sprintf("No matching description %q, classified by aspect ratio %.2f", caption, f.AspectRatio)
	result.VisualElements = []string{"visual content"}
	return result
}

func describeClass(class domain.Class, caption string) string {
	readable := strings.ReplaceAll(string(class), "_", " ")
	title := strings.ToUpper(readable[:1]) + readable[1:]
	caption = strings.TrimSpace(caption)
	if caption != "" && caption != "visual content" {
		return title + ". " + caption
	}
	return title
}

// elementsForClass lists the visual elements a class implies, enriched
// with caption hints.
func elementsForClass(class domain.Class, caption string) []string {
	var elements []string
	name := string(class)
	switch {
	case strings.Contains(name, "chart") || strings.Contains(name, "graph") ||
		strings.Contains(name, "plot") || strings.Contains(name, "histogram"):
		elements = append(elements, "data visualization", "axes", "labels")
	case strings.Contains(name, "diagram") || class == domain.ClassFlowchart:
		elements = append(elements, "shapes", "connectors")
	case class == domain.ClassPhotograph:
		elements = append(elements, "real objects", "natural lighting")
	}
	lower := strings.ToLower(caption)
	if strings.Contains(lower, "text") {
		elements = append(elements, "text content")
	}
	if strings.Contains(lower, "color") {
		elements = append(elements, "varied colors")
	}
	if strings.Contains(lower, "line") {
		elements = append(elements, "linear elements")
	}
	if len(elements) == 0 {
		return []string{"visual content"}
	}
	if len(elements) > maxVisualElements {
		elements = elements[:maxVisualElements]
	}
	return elements
}
