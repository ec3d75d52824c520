package segment_test

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halverson/homewalk/internal/frame"
	"github.com/halverson/homewalk/internal/segment"
)

func solidFrame(t *testing.T, dir string, index int, c color.Color) frame.Frame {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(dir, fmt.Sprintf("frame_%05d.jpg", index))
	require.NoError(t, imaging.Save(img, path), "writing test frame")
	return frame.Frame{Index: index, Path: path}
}

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func TestSplit_BoundaryOnColorChange(t *testing.T) {
	dir := t.TempDir()
	frames := []frame.Frame{
		solidFrame(t, dir, 0, red),
		solidFrame(t, dir, 1, red),
		solidFrame(t, dir, 2, blue),
		solidFrame(t, dir, 3, blue),
	}

	s := segment.New(0.70, nil)
	segments := s.Split(frames)

	require.Len(t, segments, 2, "color change should open a new segment")
	assert.Len(t, segments[0].Frames, 2)
	assert.Len(t, segments[1].Frames, 2)
	assert.Equal(t, 2, segments[1].Frames[0].Index, "second segment starts at the boundary frame")
}

func TestSplit_SimilarFramesStayTogether(t *testing.T) {
	dir := t.TempDir()
	frames := []frame.Frame{
		solidFrame(t, dir, 0, red),
		solidFrame(t, dir, 1, red),
		solidFrame(t, dir, 2, red),
	}

	s := segment.New(0.70, nil)
	segments := s.Split(frames)

	require.Len(t, segments, 1, "a uniform sequence forms one segment")
	assert.Len(t, segments[0].Frames, 3)
}

func TestSplit_PartitionsInputExactly(t *testing.T) {
	dir := t.TempDir()
	var frames []frame.Frame
	colors := []color.Color{red, red, blue, red, blue, blue}
	for i, c := range colors {
		frames = append(frames, solidFrame(t, dir, i, c))
	}

	s := segment.New(0.70, nil)
	segments := s.Split(frames)

	var flattened []frame.Frame
	for _, seg := range segments {
		require.NotEmpty(t, seg.Frames, "no segment may be empty")
		flattened = append(flattened, seg.Frames...)
	}
	require.Len(t, flattened, len(frames), "no frame gained or lost")
	for i := range frames {
		assert.Equal(t, frames[i].Index, flattened[i].Index,
			"concatenated segments must reproduce the input order")
	}
}

func TestSplit_UnreadableFrameExtendsCurrentSegment(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "frame_00001.jpg")
	require.NoError(t, os.WriteFile(bad, []byte("not a jpeg"), 0o644))

	frames := []frame.Frame{
		solidFrame(t, dir, 0, red),
		{Index: 1, Path: bad},
		solidFrame(t, dir, 2, red),
	}

	s := segment.New(0.70, nil)
	segments := s.Split(frames)

	require.Len(t, segments, 1, "a frame without a signature never opens a segment")
	assert.Len(t, segments[0].Frames, 3, "the unreadable frame stays in the partition")
}

func TestSplit_EmptyInput(t *testing.T) {
	s := segment.New(0.70, nil)
	assert.Nil(t, s.Split(nil), "no frames means no segments")
}

func TestSplit_SingleFrame(t *testing.T) {
	dir := t.TempDir()
	frames := []frame.Frame{solidFrame(t, dir, 0, red)}

	s := segment.New(0.70, nil)
	segments := s.Split(frames)

	require.Len(t, segments, 1)
	assert.Len(t, segments[0].Frames, 1)
}
