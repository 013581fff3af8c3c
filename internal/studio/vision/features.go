package vision

import (
	"context"
	"image"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Features are the visual measurements the rule-based classifier scores.
// All densities and ratios are fractions of the working image area;
// Brightness, Contrast, and SaturationMean use the 0..255 channel scale.
type Features struct {
	AspectRatio    float64 `json:"aspect_ratio"`
	Brightness     float64 `json:"brightness"`
	Contrast       float64 `json:"contrast"`
	EdgeDensity    float64 `json:"edge_density"`
	ColorDiversity float64 `json:"color_diversity"`
	TextRatio      float64 `json:"text_ratio"`
	LineDensity    float64 `json:"line_density"`
	CircleRatio    float64 `json:"circle_ratio"`
	RectangleRatio float64 `json:"rectangle_ratio"`
	SymmetryH      float64 `json:"symmetry_horizontal"`
	SymmetryV      float64 `json:"symmetry_vertical"`
	DominantColors int     `json:"dominant_color_count"`
	SaturationMean float64 `json:"saturation_mean"`
	HueVariance    float64 `json:"hue_variance"`

	// ScatterPoints is the small-blob count backing the scatter-plot
	// probe. It is not one of the scored features.
	ScatterPoints int `json:"-"`
}

// Extract measures the image's visual features. The heavy passes run as
// independent groups; ctx cancels between groups.
func Extract(ctx context.Context, img image.Image) (Features, error) {
	rst := newRaster(img)
	if rst.w == 0 || rst.h == 0 {
		return Features{}, nil
	}

	g := rst.luma()
	edges := g.sobel(edgeThreshold)

	var features Features
	features.AspectRatio = float64(rst.w) / float64(rst.h)

	group, _ := errgroup.WithContext(ctx)

	group.Go(func() error {
		features.Brightness, features.Contrast = g.meanStddev()
		return nil
	})
	group.Go(func() error {
		features.EdgeDensity = edgeDensity(edges, g.w, g.h)
		features.TextRatio = textRatio(edges, g.w, g.h)
		features.LineDensity = lineDensity(edges, g.w, g.h)
		return nil
	})
	group.Go(func() error {
		features.CircleRatio = circleRatio(edges, g.w, g.h)
		features.ScatterPoints = scatterPointCount(edges, g.w, g.h)
		return nil
	})
	group.Go(func() error {
		features.RectangleRatio = rectangleRatio(g)
		return nil
	})
	group.Go(func() error {
		features.SymmetryH = symmetry(g, 0)
		features.SymmetryV = symmetry(g, 1)
		return nil
	})
	group.Go(func() error {
		pixels := samplePixels(rst)
		features.ColorDiversity = colorDiversity(pixels)
		features.DominantColors = dominantColorCount(pixels)
		features.SaturationMean, features.HueVariance = saturationHue(pixels)
		return nil
	})

	if err := group.Wait(); err != nil {
		return Features{}, err
	}
	if err := ctx.Err(); err != nil {
		return Features{}, err
	}
	return features, nil
}

// Describe renders a short caption-style description from the features,
// used when no remote captioning is available.
func (f Features) Describe() string {
	var parts []string
	if f.AspectRatio > 1.5 {
		parts = append(parts, "wide")
	} else if f.AspectRatio < 0.7 {
		parts = append(parts, "tall")
	}
	if f.ColorDiversity > 0.1 {
		parts = append(parts, "colorful")
	} else if f.ColorDiversity < 0.01 {
		parts = append(parts, "simple")
	}
	switch {
	case f.EdgeDensity > 0.2:
		parts = append(parts, "detailed diagram")
	case f.EdgeDensity > 0.1:
		parts = append(parts, "chart")
	default:
		parts = append(parts, "image")
	}
	if f.Brightness > 200 {
		parts = append(parts, "bright")
	} else if f.Brightness < 100 {
		parts = append(parts, "dark")
	}
	if len(parts) == 0 {
		return "visual content"
	}
	return strings.Join(parts, " ")
}
