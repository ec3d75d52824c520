package detect

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var annotationColor = color.NRGBA{R: 220, G: 40, B: 40, A: 255}

const boxBorder = 2

// Annotate draws detection boxes and labels onto the image at path and
// writes the result back in place. Detections whose boxes fall outside the
// image are skipped.
func Annotate(path string, detections []Detection) error {
	if len(detections) == 0 {
		return nil
	}

	img, err := imaging.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image for annotation: %w", err)
	}

	canvas := imaging.Clone(img)
	bounds := canvas.Bounds()

	for _, d := range detections {
		r := image.Rect(d.Box.XMin, d.Box.YMin, d.Box.XMax, d.Box.YMax)
		if !r.In(bounds) {
			continue
		}
		drawBorder(canvas, r)
		drawLabel(canvas, d, r)
	}

	if err := imaging.Save(canvas, path); err != nil {
		return fmt.Errorf("failed to save annotated image: %w", err)
	}
	return nil
}

func drawBorder(dst draw.Image, r image.Rectangle) {
	for i := 0; i < boxBorder; i++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			dst.Set(x, r.Min.Y+i, annotationColor)
			dst.Set(x, r.Max.Y-1-i, annotationColor)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			dst.Set(r.Min.X+i, y, annotationColor)
			dst.Set(r.Max.X-1-i, y, annotationColor)
		}
	}
}

func drawLabel(dst draw.Image, d Detection, r image.Rectangle) {
	label := fmt.Sprintf("%s %.2f", d.Label, d.Confidence)
	y := r.Min.Y - 4
	if y < basicfont.Face7x13.Height {
		y = r.Min.Y + basicfont.Face7x13.Height + 2
	}
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(annotationColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(r.Min.X, y),
	}
	drawer.DrawString(label)
}
