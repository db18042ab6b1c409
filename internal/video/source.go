package video

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrDecodeExhausted marks a source that ended before its declared frame count.
	ErrDecodeExhausted = errors.New("frame source exhausted before declared frame count")
	// ErrPartialFrame is returned when a raw stream ends in the middle of a frame.
	ErrPartialFrame = errors.New("partial frame at end of stream")
	// ErrFrameSize is returned when consecutive frames differ in dimensions.
	ErrFrameSize = errors.New("frame size mismatch")
)

// Info describes a decoded stream.
type Info struct {
	Width          int
	Height         int
	FPS            float64
	DeclaredFrames int // zero when the container does not report a count
	// Estimated marks a DeclaredFrames derived from duration × fps. Such a
	// count may overshoot the decoder by one frame.
	Estimated bool
}

// FrameSize returns the byte size of one RGB24 frame.
func (i Info) FrameSize() int {
	return i.Width * i.Height * 3
}

// Duration returns the declared duration in seconds.
func (i Info) Duration() float64 {
	if i.FPS <= 0 {
		return 0
	}
	return float64(i.DeclaredFrames) / i.FPS
}

// Validate checks that the stream can be analyzed.
func (i Info) Validate() error {
	if i.Width <= 0 || i.Height <= 0 {
		return fmt.Errorf("invalid frame dimensions %dx%d", i.Width, i.Height)
	}
	if i.FPS <= 0 {
		return fmt.Errorf("invalid frame rate %f", i.FPS)
	}
	if i.DeclaredFrames < 0 {
		return fmt.Errorf("invalid declared frame count %d", i.DeclaredFrames)
	}
	return nil
}

// Source yields decoded frames in order. Next returns io.EOF once exhausted.
type Source interface {
	Info() Info
	Next(ctx context.Context) (*Frame, error)
}

// SliceSource serves frames from memory.
type SliceSource struct {
	info   Info
	frames []*Frame
	pos    int
}

// NewSliceSource creates a source over frames. A zero DeclaredFrames is
// replaced by len(frames).
func NewSliceSource(info Info, frames []*Frame) *SliceSource {
	if info.DeclaredFrames == 0 {
		info.DeclaredFrames = len(frames)
	}
	return &SliceSource{info: info, frames: frames}
}

// Info returns the stream description given to NewSliceSource.
func (s *SliceSource) Info() Info { return s.info }

// Next returns the next frame or io.EOF.
func (s *SliceSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

// Pair is two consecutive frames. Index starts at 1 for the first pair.
type Pair struct {
	Index int
	Prev  *Frame
	Cur   *Frame
}

// Stats summarizes how a stream ended.
type Stats struct {
	Decoded   int
	Declared  int
	Truncated bool
	Cause     error
}

// PairReader turns a frame source into a stream of consecutive pairs.
// Decode failures end the stream and are reported through Stats.
type PairReader struct {
	src     Source
	prev    *Frame
	decoded int
	done    bool
	stats   Stats
}

// NewPairReader wraps src.
func NewPairReader(src Source) *PairReader {
	return &PairReader{src: src}
}

// Next returns the next pair, or io.EOF at end of stream. Only context
// errors are returned as-is.
func (r *PairReader) Next(ctx context.Context) (Pair, error) {
	for {
		if r.done {
			return Pair{}, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return Pair{}, err
		}

		f, err := r.src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Pair{}, ctx.Err()
			}
			r.finish(err)
			return Pair{}, io.EOF
		}
		r.decoded++

		if r.prev == nil {
			r.prev = f
			continue
		}
		if !f.SameSize(r.prev) {
			r.finish(fmt.Errorf("%w: %dx%d after %dx%d", ErrFrameSize, f.Width, f.Height, r.prev.Width, r.prev.Height))
			return Pair{}, io.EOF
		}

		p := Pair{Index: r.decoded - 1, Prev: r.prev, Cur: f}
		r.prev = f
		return p, nil
	}
}

// Stats is meaningful once Next has returned io.EOF.
func (r *PairReader) Stats() Stats {
	return r.stats
}

func (r *PairReader) finish(cause error) {
	r.done = true
	r.prev = nil

	info := r.src.Info()
	declared := info.DeclaredFrames
	r.stats = Stats{Decoded: r.decoded, Declared: declared}

	expected := declared
	if info.Estimated {
		expected--
	}

	switch {
	case errors.Is(cause, io.EOF):
		if declared > 0 && r.decoded < expected {
			r.stats.Truncated = true
			r.stats.Cause = fmt.Errorf("%w: decoded %d of %d", ErrDecodeExhausted, r.decoded, declared)
		}
	default:
		r.stats.Truncated = true
		r.stats.Cause = cause
	}
}
