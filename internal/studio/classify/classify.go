// Package classify decides what kind of figure an image shows. Classifiers
// are arranged in a chain: a vision-LLM provider when keys are configured,
// remote captioning scored against the class lexicons, and a rule ladder
// over extracted visual features. Every failure falls through to the next
// classifier; the chain ends at a terminal fallback result.
package classify

import (
	"context"
	"image"
	"log"

	"github.com/figdock/figdock/internal/studio/domain"
	"github.com/figdock/figdock/internal/studio/vision"
)

// Mode selects which classifiers the chain consults.
type Mode string

const (
	// ModeAuto tries remote classifiers before the local rules.
	ModeAuto Mode = "auto"
	// ModeLocal classifies with the feature rules only.
	ModeLocal Mode = "local"
)

// Input carries the decoded figure and its extracted features through the
// chain. Classifiers read the fields they need.
type Input struct {
	Bytes    []byte
	Image    image.Image
	Format   string
	Features vision.Features
}

// Classifier produces a classification from a figure, or an error to pass
// the figure down the chain.
type Classifier interface {
	Method() domain.Method
	Classify(ctx context.Context, in *Input) (domain.Classification, error)
}

// Chain runs classifiers in order and falls back when all decline.
type Chain struct {
	classifiers []Classifier
	// Logf reports classifier fall-through. Nil falls back to log.Printf.
	Logf func(format string, args ...any)
}

// NewChain builds the classifier order for the mode. Nil classifiers are
// skipped, so an unconfigured VLM or captioning stage degrades the chain
// instead of breaking it.
func NewChain(mode Mode, vlm, caption, rules Classifier) *Chain {
	chain := &Chain{}
	if mode == ModeAuto {
		chain.add(vlm)
		chain.add(caption)
	}
	chain.add(rules)
	return chain
}

func (c *Chain) add(classifier Classifier) {
	if classifier == nil {
		return
	}
	c.classifiers = append(c.classifiers, classifier)
}

// Classify decodes the image, extracts features, and walks the chain.
// The returned features accompany the classification for storage and the
// API; the error reports decode failures only.
func (c *Chain) Classify(ctx context.Context, data []byte) (domain.Classification, vision.Features, error) {
	img, format, err := vision.Decode(data)
	if err != nil {
		return domain.Classification{}, vision.Features{}, err
	}
	features, err := vision.Extract(ctx, img)
	if err != nil {
		return domain.Classification{}, vision.Features{}, err
	}

	in := &Input{Bytes: data, Image: img, Format: format, Features: features}
	for _, classifier := range c.classifiers {
		result, err := classifier.Classify(ctx, in)
		if err != nil {
			c.logf("classifier %s declined: %v", classifier.Method(), err)
			continue
		}
		return result, features, nil
	}
	return domain.Fallback("every classifier in the chain declined"), features, nil
}

func (c *Chain) logf(format string, args ...any) {
	if c != nil && c.Logf != nil {
		c.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}
