package vision

import (
	"math"
	"math/rand"
	"sort"

	colors "gopkg.in/go-playground/colors.v1"
)

// colorSampleCap bounds how many pixels the color passes examine.
const colorSampleCap = 4096

// kmeansSeed fixes cluster initialization so dominant-color counts are
// deterministic for a given image.
const kmeansSeed = 42

type rgb struct {
	r, g, b float64
}

// samplePixels strides over the raster collecting at most colorSampleCap
// pixels.
func samplePixels(rst *raster) []rgb {
	total := rst.w * rst.h
	if total == 0 {
		return nil
	}
	stride := 1
	if total > colorSampleCap {
		stride = total / colorSampleCap
	}
	out := make([]rgb, 0, total/stride+1)
	for i := 0; i < total; i += stride {
		out = append(out, rgb{float64(rst.r[i]), float64(rst.g[i]), float64(rst.b[i])})
	}
	return out
}

// colorDiversity is the unique-color count over the pixel count, with
// colors quantized to 4-bit channels to absorb compression noise.
func colorDiversity(pixels []rgb) float64 {
	if len(pixels) == 0 {
		return 0
	}
	unique := make(map[uint16]struct{}, len(pixels))
	for _, p := range pixels {
		key := uint16(p.r)>>4<<8 | uint16(p.g)>>4<<4 | uint16(p.b)>>4
		unique[key] = struct{}{}
	}
	return float64(len(unique)) / float64(len(pixels))
}

// dominantColorCount clusters sampled pixels with fixed-seed k-means
// (k <= 8) and counts clusters that retained members and stayed apart
// from their neighbors.
func dominantColorCount(pixels []rgb) int {
	if len(pixels) == 0 {
		return 0
	}
	k := 8
	if d := distinctCount(pixels, k); d < k {
		k = d
	}
	if k <= 1 {
		return max(1, k)
	}

	rng := rand.New(rand.NewSource(kmeansSeed))
	centers := make([]rgb, k)
	for i := range centers {
		centers[i] = pixels[rng.Intn(len(pixels))]
	}

	assign := make([]int, len(pixels))
	for iter := 0; iter < 10; iter++ {
		changed := false
		for i, p := range pixels {
			best, bestDist := 0, math.MaxFloat64
			for c, center := range centers {
				if d := colorDist(p, center); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		counts := make([]int, k)
		sums := make([]rgb, k)
		for i, p := range pixels {
			c := assign[i]
			counts[c]++
			sums[c].r += p.r
			sums[c].g += p.g
			sums[c].b += p.b
		}
		for c := range centers {
			if counts[c] == 0 {
				continue
			}
			centers[c] = rgb{
				sums[c].r / float64(counts[c]),
				sums[c].g / float64(counts[c]),
				sums[c].b / float64(counts[c]),
			}
		}
		if !changed {
			break
		}
	}

	// Merge centers closer than a perceptual step so near-duplicate
	// clusters count once.
	populated := make([]rgb, 0, k)
	counts := make([]int, k)
	for _, c := range assign {
		counts[c]++
	}
	for c, center := range centers {
		if counts[c] == 0 {
			continue
		}
		merged := false
		for _, kept := range populated {
			if colorDist(center, kept) < 24*24 {
				merged = true
				break
			}
		}
		if !merged {
			populated = append(populated, center)
		}
	}
	return len(populated)
}

func distinctCount(pixels []rgb, limit int) int {
	seen := make(map[rgb]struct{}, limit+1)
	for _, p := range pixels {
		seen[p] = struct{}{}
		if len(seen) > limit {
			return limit
		}
	}
	return len(seen)
}

func colorDist(a, b rgb) float64 {
	dr, dg, db := a.r-b.r, a.g-b.g, a.b-b.b
	return dr*dr + dg*dg + db*db
}

// saturationHue returns the mean saturation (0..255) and hue variance
// (hue on the 0..180 half-circle scale) of the sampled pixels.
func saturationHue(pixels []rgb) (float64, float64) {
	if len(pixels) == 0 {
		return 0, 0
	}
	var satSum float64
	hues := make([]float64, 0, len(pixels))
	for _, p := range pixels {
		h, s := hsv(p)
		satSum += s
		hues = append(hues, h)
	}
	satMean := satSum / float64(len(pixels))

	var hueSum float64
	for _, h := range hues {
		hueSum += h
	}
	hueMean := hueSum / float64(len(hues))
	var hueVar float64
	for _, h := range hues {
		d := h - hueMean
		hueVar += d * d
	}
	return satMean, hueVar / float64(len(hues))
}

// hsv converts an rgb pixel to hue on 0..180 and saturation on 0..255.
func hsv(p rgb) (float64, float64) {
	maxC := math.Max(p.r, math.Max(p.g, p.b))
	minC := math.Min(p.r, math.Min(p.g, p.b))
	delta := maxC - minC

	var hue float64
	switch {
	case delta == 0:
	case maxC == p.r:
		hue = 60 * math.Mod((p.g-p.b)/delta, 6)
	case maxC == p.g:
		hue = 60 * ((p.b-p.r)/delta + 2)
	default:
		hue = 60 * ((p.r-p.g)/delta + 4)
	}
	if hue < 0 {
		hue += 360
	}

	var sat float64
	if maxC > 0 {
		sat = delta / maxC * 255
	}
	return hue / 2, sat
}

// DominantColorNames maps the strongest sampled colors to friendly hex
// strings for the UI. Count bounds the list.
func DominantColorNames(rst *raster, count int) []string {
	pixels := samplePixels(rst)
	if len(pixels) == 0 || count <= 0 {
		return nil
	}
	freq := make(map[uint16]int)
	for _, p := range pixels {
		key := uint16(p.r)>>4<<8 | uint16(p.g)>>4<<4 | uint16(p.b)>>4
		freq[key]++
	}
	type bucket struct {
		key uint16
		n   int
	}
	ranked := make([]bucket, 0, len(freq))
	for key, n := range freq {
		ranked = append(ranked, bucket{key, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].n != ranked[j].n {
			return ranked[i].n > ranked[j].n
		}
		return ranked[i].key < ranked[j].key
	})
	if len(ranked) > count {
		ranked = ranked[:count]
	}

	names := make([]string, 0, len(ranked))
	for _, b := range ranked {
		r := uint8(b.key>>8) << 4
		g := uint8(b.key>>4&0xF) << 4
		bl := uint8(b.key&0xF) << 4
		hex, err := colors.RGB(r, g, bl)
		if err != nil {
			continue
		}
		names = append(names, hex.ToHEX().String())
	}
	return names
}
