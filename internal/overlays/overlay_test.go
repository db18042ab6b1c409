package overlays

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/motionbeat/internal/motion"
)

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func peakRecord() motion.MotionRecord {
	return motion.MotionRecord{
		MotionSample: motion.MotionSample{
			FrameIndex: 12,
			Timestamp:  0.5,
			Position:   motion.Vec2{X: 15, Y: 15},
			Regions:    []motion.Region{{Box: image.Rect(10, 10, 20, 20), Area: 100}},
		},
		DopamineHitScore: 0.5,
		IsPeakMoment:     true,
	}
}

func TestAnnotateScalesRegions(t *testing.T) {
	style := DefaultStyle()
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))

	out := NewAnnotator(style, 0).Annotate(src, peakRecord(), image.Pt(50, 50))
	require.Equal(t, image.Rect(0, 0, 100, 100), out.Bounds())

	assert.Equal(t, style.Box, rgbaAt(out, 20, 30), "left edge of the scaled box")
	assert.Equal(t, style.Box, rgbaAt(out, 39, 30), "right edge of the scaled box")
	assert.Equal(t, style.Centroid, rgbaAt(out, 30, 30))
	assert.Equal(t, color.RGBA{}, rgbaAt(out, 60, 60))

	assert.Equal(t, style.PeakBar, rgbaAt(out, 10, 2))
	assert.Equal(t, color.RGBA{}, rgbaAt(out, 60, 2), "bar covers half the width")
	assert.Equal(t, color.RGBA{}, src.RGBAAt(20, 30), "source untouched")
}

func TestAnnotateDownscales(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 100))
	out := NewAnnotator(DefaultStyle(), 100).Annotate(src, peakRecord(), image.Pt(200, 100))
	assert.Equal(t, 100, out.Bounds().Dx())
	assert.Equal(t, 50, out.Bounds().Dy())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{Default, Heat, Mono}, r.List())

	s, ok := r.Get(Heat)
	require.True(t, ok)
	assert.Equal(t, 3, s.Thickness)

	r.Register("custom", Style{Thickness: 5})
	_, ok = r.Get("custom")
	assert.True(t, ok)
	_, ok = r.Get("missing")
	assert.False(t, ok)
}

type fakeGrabber struct {
	calls []time.Duration
}

func (f *fakeGrabber) Snapshot(_ context.Context, _ string, ts time.Duration) (image.Image, error) {
	f.calls = append(f.calls, ts)
	return image.NewRGBA(image.Rect(0, 0, 64, 48)), nil
}

func TestWritePeaks(t *testing.T) {
	tbl := motion.NewTable()
	for i := 1; i <= 20; i++ {
		r := motion.MotionRecord{MotionSample: motion.MotionSample{FrameIndex: i, Timestamp: float64(i) / 10}}
		r.IsPeakMoment = i == 5 || i == 15
		require.NoError(t, tbl.Append(r))
	}
	require.NoError(t, tbl.Freeze(motion.Diagnostics{}))

	grabber := &fakeGrabber{}
	w := NewSnapshotWriter(zerolog.Nop(), grabber, NewAnnotator(DefaultStyle(), 0))

	dir := filepath.Join(t.TempDir(), "snaps")
	paths, err := w.WritePeaks(context.Background(), "in.mp4", tbl, image.Pt(64, 48), dir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "peak_000005.png"),
		filepath.Join(dir, "peak_000015.png"),
	}, paths)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 1500 * time.Millisecond}, grabber.calls)

	for _, p := range paths {
		st, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, st.Size())
	}
}
