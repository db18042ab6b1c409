package motion

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/kikiluvv/motionbeat/internal/video"
)

// Extractor turns a frame pair into a MotionSample. It holds no per-stream
// state and is safe for concurrent use.
type Extractor struct {
	cfg ExtractorConfig
}

// NewExtractor validates cfg.
func NewExtractor(cfg ExtractorConfig) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{cfg: cfg}, nil
}

// Config returns the extractor settings.
func (e *Extractor) Config() ExtractorConfig {
	return e.cfg
}

// Extract measures the motion between prev and cur. index is the 1-based
// pair index and fps the stream rate used for the timestamp.
func (e *Extractor) Extract(prev, cur *video.Frame, index int, fps float64) (MotionSample, error) {
	if !prev.SameSize(cur) {
		return MotionSample{}, fmt.Errorf("%w: %dx%d vs %dx%d", video.ErrFrameSize, prev.Width, prev.Height, cur.Width, cur.Height)
	}
	if index < 1 {
		return MotionSample{}, fmt.Errorf("%w: frame_index %d", ErrInvalidRecord, index)
	}
	if !(fps > 0) {
		return MotionSample{}, fmt.Errorf("%w: fps %g", ErrInvalidRecord, fps)
	}

	mask := absDiffGray(prev, cur)
	mask = gaussianBlur(mask, e.cfg.BlurKernel)
	mask = threshold(mask, uint8(e.cfg.Threshold))
	mask = dilate(mask, e.cfg.DilateIterations)
	regions := findRegions(mask)

	frameArea := float64(cur.Width * cur.Height)
	var total float64
	var kept []Region
	for _, r := range regions {
		total += r.Area
		if r.Area >= e.cfg.MinContourArea {
			kept = append(kept, r)
		}
	}

	return MotionSample{
		FrameIndex:      index,
		Timestamp:       float64(index) / fps,
		Position:        centroid(kept, cur),
		MotionIntensity: min(total/frameArea*100, 100),
		OpticalFlow:     denseFlow(toGray(prev), toGray(cur), e.cfg.Flow),
		RegionCount:     len(regions),
		Regions:         kept,
	}, nil
}

// centroid is the area-weighted mean of region box centres, or the frame
// centre when there are none.
func centroid(regions []Region, f *video.Frame) Vec2 {
	if len(regions) == 0 {
		return Vec2{X: float64(f.Width) / 2, Y: float64(f.Height) / 2}
	}
	xs := make([]float64, len(regions))
	ys := make([]float64, len(regions))
	ws := make([]float64, len(regions))
	for i, r := range regions {
		c := r.Center()
		xs[i], ys[i], ws[i] = c.X, c.Y, r.Area
	}
	return Vec2{X: stat.Mean(xs, ws), Y: stat.Mean(ys, ws)}
}
