package vision

import "math"

// edgeThreshold binarizes Sobel gradient magnitude into the edge map the
// shape detectors share.
const edgeThreshold = 128

// minLineLength is the shortest edge run counted as a line, scaled from
// the working resolution.
const minLineLength = 30

// edgeDensity is the fraction of pixels marked as edges.
func edgeDensity(edges []bool, w, h int) float64 {
	if w*h == 0 {
		return 0
	}
	count := 0
	for _, e := range edges {
		if e {
			count++
		}
	}
	return float64(count) / float64(w*h)
}

// textRatio estimates the area fraction covered by text-like bands:
// short horizontal runs of edge pixels clustered into rows, the texture
// printed text produces.
func textRatio(edges []bool, w, h int) float64 {
	if w*h == 0 {
		return 0
	}
	// Rows where edge pixels alternate densely read as text lines.
	textArea := 0
	bandHeight := 0
	for y := 0; y < h; y++ {
		transitions := 0
		covered := 0
		for x := 1; x < w; x++ {
			if edges[y*w+x] != edges[y*w+x-1] {
				transitions++
			}
			if edges[y*w+x] {
				covered++
			}
		}
		dense := transitions >= w/8 && covered >= w/10 && covered <= w*2/3
		if dense {
			bandHeight++
			continue
		}
		// A band taller than ~50px at original scale is a block, not text.
		if bandHeight > 0 && bandHeight < h/4 {
			textArea += bandHeight * w
		}
		bandHeight = 0
	}
	if bandHeight > 0 && bandHeight < h/4 {
		textArea += bandHeight * w
	}
	return float64(textArea) / float64(w*h)
}

// lineDensity counts straight horizontal and vertical edge runs of at
// least minLineLength pixels, normalized per 10000 pixels of area to stay
// resolution independent.
func lineDensity(edges []bool, w, h int) float64 {
	if w*h == 0 {
		return 0
	}
	lines := 0
	for y := 0; y < h; y++ {
		run := 0
		for x := 0; x < w; x++ {
			if edges[y*w+x] {
				run++
				continue
			}
			if run >= minLineLength {
				lines++
			}
			run = 0
		}
		if run >= minLineLength {
			lines++
		}
	}
	for x := 0; x < w; x++ {
		run := 0
		for y := 0; y < h; y++ {
			if edges[y*w+x] {
				run++
				continue
			}
			if run >= minLineLength {
				lines++
			}
			run = 0
		}
		if run >= minLineLength {
			lines++
		}
	}
	return float64(lines) / (float64(w*h) / 10000)
}

// circleRatio votes edge pixels into a coarse circular Hough accumulator
// and returns the detected circles' area as a fraction of the image.
func circleRatio(edges []bool, w, h int) float64 {
	return houghCircleArea(edges, w, h, 10, 100, 5, 0.5)
}

// scatterPointCount counts small circular blobs, the scatter-plot probe.
func scatterPointCount(edges []bool, w, h int) int {
	return houghCircleCount(edges, w, h, 2, 10, 1, 0.45)
}

// houghCircleArea accumulates circle votes for radii in [minR, maxR] and
// sums the area of centers whose perimeter support exceeds coverage.
func houghCircleArea(edges []bool, w, h, minR, maxR, radStep int, coverage float64) float64 {
	if w*h == 0 {
		return 0
	}
	var area float64
	for _, c := range houghCircles(edges, w, h, minR, maxR, radStep, coverage) {
		area += math.Pi * float64(c.r) * float64(c.r)
	}
	total := float64(w * h)
	if ratio := area / total; ratio < 1 {
		return ratio
	}
	return 1
}

func houghCircleCount(edges []bool, w, h, minR, maxR, radStep int, coverage float64) int {
	return len(houghCircles(edges, w, h, minR, maxR, radStep, coverage))
}

type circle struct {
	x, y, r int
}

// houghCircles is a deliberately coarse circle transform: for each
// candidate radius it samples the perimeter of every grid-aligned center
// and keeps centers whose sampled perimeter hits enough edge pixels.
// Overlapping detections collapse to the strongest radius per center cell.
func houghCircles(edges []bool, w, h, minR, maxR, radStep int, coverage float64) []circle {
	if w < 2*minR || h < 2*minR {
		return nil
	}
	const samples = 24
	// Center grid at quarter-radius pitch keeps the accumulator small.
	var found []circle
	taken := make(map[int]bool)
	for r := maxR; r >= minR; r -= radStep {
		if 2*r >= w || 2*r >= h {
			continue
		}
		pitch := max(2, r/2)
		for cy := r; cy < h-r; cy += pitch {
			for cx := r; cx < w-r; cx += pitch {
				hits := 0
				for s := 0; s < samples; s++ {
					angle := 2 * math.Pi * float64(s) / samples
					px := cx + int(math.Round(float64(r)*math.Cos(angle)))
					py := cy + int(math.Round(float64(r)*math.Sin(angle)))
					if px >= 0 && px < w && py >= 0 && py < h && edges[py*w+px] {
						hits++
					}
				}
				if float64(hits)/samples < coverage {
					continue
				}
				// One detection per neighborhood; the largest radius wins
				// because radii iterate downward.
				cell := (cy/max(1, maxR))*w + cx/max(1, maxR)
				if taken[cell] {
					continue
				}
				taken[cell] = true
				found = append(found, circle{x: cx, y: cy, r: r})
			}
		}
	}
	return found
}

// rectangleRatio finds connected components whose pixels fill their
// bounding box and sums those boxes as an area fraction. Filled bars and
// panel outlines both register; organic regions do not.
func rectangleRatio(g *gray) float64 {
	w, h := g.w, g.h
	if w*h == 0 {
		return 0
	}

	// Binarize at the mean and take the minority side as foreground, so
	// dark-on-light and light-on-dark figures both produce components
	// instead of one background blob.
	mean, _ := g.meanStddev()
	dark := make([]bool, w*h)
	darkCount := 0
	for i, v := range g.pix {
		if float64(v) < mean {
			dark[i] = true
			darkCount++
		}
	}
	fg := dark
	if darkCount > w*h/2 {
		fg = make([]bool, w*h)
		for i, d := range dark {
			fg[i] = !d
		}
	}

	visited := make([]bool, w*h)
	var rectangleArea float64
	var stack []int
	for start := range fg {
		if !fg[start] || visited[start] {
			continue
		}
		minX, minY, maxX, maxY := w, h, 0, 0
		size := 0
		stack = append(stack[:0], start)
		visited[start] = true
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := idx%w, idx/w
			size++
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
			for _, next := range [4]int{idx - 1, idx + 1, idx - w, idx + w} {
				if next < 0 || next >= w*h || visited[next] || !fg[next] {
					continue
				}
				// Reject horizontal wrap between row ends.
				if abs(next%w-x) > 1 {
					continue
				}
				visited[next] = true
				stack = append(stack, next)
			}
		}

		boxW, boxH := maxX-minX+1, maxY-minY+1
		if boxW < 4 || boxH < 4 {
			continue
		}
		fill := float64(size) / float64(boxW*boxH)
		if fill >= 0.85 {
			rectangleArea += float64(boxW * boxH)
		}
	}
	return rectangleArea / float64(w*h)
}

// symmetry correlates one half of the image with the mirrored other
// half. axis 0 folds top/bottom, axis 1 folds left/right. Negative
// correlations clamp to zero.
func symmetry(g *gray, axis int) float64 {
	w, h := g.w, g.h
	if w < 2 || h < 2 {
		return 0
	}
	var a, b []float64
	if axis == 0 {
		rows := h / 2
		a = make([]float64, 0, rows*w)
		b = make([]float64, 0, rows*w)
		for y := 0; y < rows; y++ {
			for x := 0; x < w; x++ {
				a = append(a, g.at(x, y))
				b = append(b, g.at(x, h-1-y))
			}
		}
	} else {
		cols := w / 2
		a = make([]float64, 0, cols*h)
		b = make([]float64, 0, cols*h)
		for y := 0; y < h; y++ {
			for x := 0; x < cols; x++ {
				a = append(a, g.at(x, y))
				b = append(b, g.at(w-1-x, y))
			}
		}
	}
	corr := correlation(a, b)
	if corr < 0 || math.IsNaN(corr) {
		return 0
	}
	return corr
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
