package detect_test

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halverson/homewalk/internal/detect"
)

func whiteImage(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.White)
		}
	}
	path := filepath.Join(t.TempDir(), "frame_00001.jpg")
	require.NoError(t, imaging.Save(img, path))
	return path
}

func TestAnnotate_DrawsBoxInPlace(t *testing.T) {
	path := whiteImage(t)
	detections := []detect.Detection{
		{Label: "oven", Confidence: 0.91, Box: detect.Box{XMin: 20, YMin: 30, XMax: 80, YMax: 70}},
	}

	require.NoError(t, detect.Annotate(path, detections))

	annotated, err := imaging.Open(path)
	require.NoError(t, err)

	r, g, _, _ := annotated.At(50, 30).RGBA()
	assert.Greater(t, r>>8, uint32(150), "top border pixel should be red")
	assert.Less(t, g>>8, uint32(150), "top border pixel should not stay white")

	r, _, _, _ = annotated.At(50, 50).RGBA()
	assert.Greater(t, r>>8, uint32(200), "box interior stays untouched")
}

func TestAnnotate_OutOfBoundsBoxSkipped(t *testing.T) {
	path := whiteImage(t)
	detections := []detect.Detection{
		{Label: "oven", Confidence: 0.91, Box: detect.Box{XMin: -10, YMin: 0, XMax: 500, YMax: 500}},
	}

	assert.NoError(t, detect.Annotate(path, detections), "boxes outside the image are skipped, not errors")
}

func TestAnnotate_NoDetectionsIsNoop(t *testing.T) {
	assert.NoError(t, detect.Annotate("/nonexistent.jpg", nil),
		"nothing to draw means the file is never touched")
}
