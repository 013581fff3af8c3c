package vision

import (
	"image"
	"math"
)

// workingSize bounds the long side of the raster used for the heavy
// feature passes. Downsampling keeps extraction cost independent of the
// source resolution without moving the classifier thresholds.
const workingSize = 256

// raster is a dense RGB buffer extraction operates on.
type raster struct {
	w, h int
	// r, g, b hold 8-bit channel values row-major.
	r, g, b []uint8
}

// gray is a dense luma buffer.
type gray struct {
	w, h int
	pix  []uint8
}

// newRaster samples img into a working-resolution RGB raster using
// nearest-neighbor selection.
func newRaster(img image.Image) *raster {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW <= 0 || srcH <= 0 {
		return &raster{}
	}

	w, h := srcW, srcH
	if long := max(srcW, srcH); long > workingSize {
		scale := float64(workingSize) / float64(long)
		w = max(1, int(math.Round(float64(srcW)*scale)))
		h = max(1, int(math.Round(float64(srcH)*scale)))
	}

	rst := &raster{
		w: w, h: h,
		r: make([]uint8, w*h),
		g: make([]uint8, w*h),
		b: make([]uint8, w*h),
	}
	for y := 0; y < h; y++ {
		srcY := bounds.Min.Y + y*srcH/h
		for x := 0; x < w; x++ {
			srcX := bounds.Min.X + x*srcW/w
			r16, g16, b16, _ := img.At(srcX, srcY).RGBA()
			idx := y*w + x
			rst.r[idx] = uint8(r16 >> 8)
			rst.g[idx] = uint8(g16 >> 8)
			rst.b[idx] = uint8(b16 >> 8)
		}
	}
	return rst
}

// luma converts the raster to grayscale with Rec. 601 weights.
func (r *raster) luma() *gray {
	g := &gray{w: r.w, h: r.h, pix: make([]uint8, r.w*r.h)}
	for i := range g.pix {
		v := 0.299*float64(r.r[i]) + 0.587*float64(r.g[i]) + 0.114*float64(r.b[i])
		g.pix[i] = uint8(math.Round(v))
	}
	return g
}

// meanStddev returns the mean and standard deviation of the luma values.
func (g *gray) meanStddev() (float64, float64) {
	if len(g.pix) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range g.pix {
		sum += float64(v)
	}
	mean := sum / float64(len(g.pix))

	var varSum float64
	for _, v := range g.pix {
		d := float64(v) - mean
		varSum += d * d
	}
	return mean, math.Sqrt(varSum / float64(len(g.pix)))
}

// at returns the luma at (x, y) clamped to the image bounds.
func (g *gray) at(x, y int) float64 {
	if x < 0 {
		x = 0
	} else if x >= g.w {
		x = g.w - 1
	}
	if y < 0 {
		y = 0
	} else if y >= g.h {
		y = g.h - 1
	}
	return float64(g.pix[y*g.w+x])
}

// sobel computes a binary edge map: gradient magnitude above threshold.
func (g *gray) sobel(threshold float64) []bool {
	edges := make([]bool, g.w*g.h)
	if g.w < 3 || g.h < 3 {
		return edges
	}
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			gx := -g.at(x-1, y-1) + g.at(x+1, y-1) +
				-2*g.at(x-1, y) + 2*g.at(x+1, y) +
				-g.at(x-1, y+1) + g.at(x+1, y+1)
			gy := -g.at(x-1, y-1) - 2*g.at(x, y-1) - g.at(x+1, y-1) +
				g.at(x-1, y+1) + 2*g.at(x, y+1) + g.at(x+1, y+1)
			if math.Hypot(gx, gy) > threshold {
				edges[y*g.w+x] = true
			}
		}
	}
	return edges
}

// correlation computes the Pearson correlation of two equal-length
// samples, or 0 when either side has no variance.
func correlation(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	n := float64(len(a))
	var sumA, sumB float64
	for i := range a {
		sumA += a[i]
		sumB += b[i]
	}
	meanA, meanB := sumA/n, sumB/n

	var cov, varA, varB float64
	for i := range a {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}
