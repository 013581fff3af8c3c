package domain

// Method names the classifier that produced a result.
type Method string

const (
	MethodRules    Method = "rules"
	MethodLexicon  Method = "lexicon"
	MethodCaption  Method = "caption"
	MethodVLM      Method = "vlm"
	MethodFallback Method = "fallback"
)

// FallbackConfidence is the confidence reported when no classifier
// produced a usable result.
const FallbackConfidence = 0.30

// Classification is the result of classifying one figure.
type Classification struct {
	Class          Class    `json:"class"`
	Label          string   `json:"label"`
	Confidence     float64  `json:"confidence"`
	Description    string   `json:"description"`
	Reasoning      string   `json:"reasoning"`
	VisualElements []string `json:"visual_elements,omitempty"`
	Method         Method   `json:"method"`
}

// NewClassification builds a result with the label derived from the class.
func NewClassification(class Class, confidence float64, method Method) Classification {
	return Classification{
		Class:      class,
		Label:      class.Label(),
		Confidence: confidence,
		Method:     method,
	}
}

// Fallback is the terminal classification used when every classifier in
// the chain failed or declined.
func Fallback(reasoning string) Classification {
	if reasoning == "" {
		reasoning = "No meaningful description or features available"
	}
	return Classification{
		Class:          ClassUnknown,
		Label:          ClassUnknown.Label(),
		Confidence:     FallbackConfidence,
		Description:    "Could not classify figure reliably",
		Reasoning:      reasoning,
		VisualElements: []string{"visual content"},
		Method:         MethodFallback,
	}
}
