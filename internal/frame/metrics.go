package frame

import "math"

// edgeThreshold is the Sobel gradient magnitude above which a pixel counts
// as an edge for the density measure.
const edgeThreshold = 100.0

// laplacianVariance applies a 3x3 Laplacian kernel over the interior of the
// plane and returns the variance of the response. The classic blur proxy:
// blurred images have weak second derivatives everywhere.
func laplacianVariance(p *Plane) float64 {
	if p.W < 3 || p.H < 3 {
		return 0
	}
	n := 0
	mean := 0.0
	m2 := 0.0
	for y := 1; y < p.H-1; y++ {
		for x := 1; x < p.W-1; x++ {
			v := p.At(x, y-1) + p.At(x-1, y) + p.At(x+1, y) + p.At(x, y+1) - 4*p.At(x, y)
			n++
			delta := v - mean
			mean += delta / float64(n)
			m2 += delta * (v - mean)
		}
	}
	if n < 2 {
		return 0
	}
	return m2 / float64(n)
}

// meanBrightness returns the average gray level of the plane.
func meanBrightness(p *Plane) float64 {
	if len(p.Pix) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range p.Pix {
		sum += v
	}
	return sum / float64(len(p.Pix))
}

// edgeDensity returns the fraction of interior pixels whose Sobel gradient
// magnitude exceeds the edge threshold.
func edgeDensity(p *Plane) float64 {
	if p.W < 3 || p.H < 3 {
		return 0
	}
	edges := 0
	total := 0
	for y := 1; y < p.H-1; y++ {
		for x := 1; x < p.W-1; x++ {
			gx := -p.At(x-1, y-1) + p.At(x+1, y-1) +
				-2*p.At(x-1, y) + 2*p.At(x+1, y) +
				-p.At(x-1, y+1) + p.At(x+1, y+1)
			gy := -p.At(x-1, y-1) - 2*p.At(x, y-1) - p.At(x+1, y-1) +
				p.At(x-1, y+1) + 2*p.At(x, y+1) + p.At(x+1, y+1)
			if math.Sqrt(gx*gx+gy*gy) > edgeThreshold {
				edges++
			}
			total++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(edges) / float64(total)
}
