// Package frame defines the extracted video frame and its derived quality
// metrics. Metrics are computed once on a downscaled grayscale copy and
// travel with the frame through filtering, segmentation and selection.
package frame

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// analysisWidth is the width frames are downscaled to before metric
// computation. Metrics are relative measures, so a fixed working size keeps
// them comparable across source resolutions.
const analysisWidth = 256

// sharpnessScale normalizes raw Laplacian variance into [0,1] for scoring.
// Variance at or above this value counts as fully sharp.
const sharpnessScale = 500.0

// Frame is one extracted still. Index is the position in the extracted
// sequence and is preserved through every downstream stage.
type Frame struct {
	Index   int
	Path    string
	Metrics Metrics
}

// Metrics holds the derived quality measures of a frame.
type Metrics struct {
	// Sharpness is the raw variance of the Laplacian response. Higher is
	// sharper; values near zero indicate blur.
	Sharpness float64
	// Brightness is the mean gray level in [0,255].
	Brightness float64
	// EdgeDensity is the fraction of pixels with a strong Sobel response,
	// in [0,1].
	EdgeDensity float64
}

// SharpnessNorm maps raw sharpness into [0,1].
func (m Metrics) SharpnessNorm() float64 {
	v := m.Sharpness / sharpnessScale
	if v > 1 {
		return 1
	}
	return v
}

// BrightnessBalance scores closeness to the mid gray point: 1.0 at 127.5,
// 0.0 at pure black or pure white.
func (m Metrics) BrightnessBalance() float64 {
	const mid = 127.5
	d := m.Brightness - mid
	if d < 0 {
		d = -d
	}
	return 1 - d/mid
}

// Analyze opens the image at path and computes its metrics.
func Analyze(path string) (Metrics, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to open frame %s: %w", path, err)
	}
	return AnalyzeImage(img), nil
}

// AnalyzeImage computes metrics for an already-decoded image.
func AnalyzeImage(img image.Image) Metrics {
	gray := Grayscale(img)
	return Metrics{
		Sharpness:   laplacianVariance(gray),
		Brightness:  meanBrightness(gray),
		EdgeDensity: edgeDensity(gray),
	}
}

// Grayscale downscales img to the analysis size and returns its luminance
// plane as a row-major float slice.
func Grayscale(img image.Image) *Plane {
	small := imaging.Resize(img, analysisWidth, 0, imaging.Box)
	gray := imaging.Grayscale(small)
	b := gray.Bounds()
	p := &Plane{W: b.Dx(), H: b.Dy(), Pix: make([]float64, b.Dx()*b.Dy())}
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			// NRGBA after Grayscale has R==G==B.
			p.Pix[y*p.W+x] = float64(gray.NRGBAAt(b.Min.X+x, b.Min.Y+y).R)
		}
	}
	return p
}

// Plane is a single-channel image used for metric kernels.
type Plane struct {
	W, H int
	Pix  []float64
}

// At returns the value at (x, y) without bounds checking.
func (p *Plane) At(x, y int) float64 { return p.Pix[y*p.W+x] }
