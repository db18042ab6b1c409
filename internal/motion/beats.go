package motion

import (
	"fmt"
	"math"
	"sort"
)

// BeatAligner matches timestamps to the nearest beat. It is immutable after
// construction and safe for concurrent use.
type BeatAligner struct {
	beats  []float64
	window float64
}

// NewBeatAligner copies beats, which must be finite and ascending. An empty
// list is valid and yields no alignments.
func NewBeatAligner(beats []float64, cfg BeatConfig) (*BeatAligner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for i, b := range beats {
		if !finite(b) {
			return nil, fmt.Errorf("%w: beat %d is %g", ErrUnsortedBeats, i, b)
		}
		if i > 0 && b < beats[i-1] {
			return nil, fmt.Errorf("%w: beat %d (%g) precedes beat %d (%g)", ErrUnsortedBeats, i, b, i-1, beats[i-1])
		}
	}
	return &BeatAligner{
		beats:  append([]float64(nil), beats...),
		window: cfg.MaxAlignmentWindow,
	}, nil
}

// Empty reports whether no beats were supplied.
func (a *BeatAligner) Empty() bool {
	return len(a.beats) == 0
}

// Len returns the number of beats.
func (a *BeatAligner) Len() int {
	return len(a.beats)
}

// Nearest returns the beat closest to t; ties go to the earlier beat.
func (a *BeatAligner) Nearest(t float64) (float64, bool) {
	if len(a.beats) == 0 {
		return 0, false
	}
	i := sort.SearchFloat64s(a.beats, t)
	switch {
	case i == 0:
		return a.beats[0], true
	case i == len(a.beats):
		return a.beats[i-1], true
	}
	before, after := a.beats[i-1], a.beats[i]
	if t-before <= after-t {
		return before, true
	}
	return after, true
}

// Score decays linearly from 1 at the beat to 0 at the window edge.
func (a *BeatAligner) Score(t, beat float64) float64 {
	return math.Max(0, 1-math.Abs(t-beat)/a.window)
}

// Align fills the beat fields of rec.
func (a *BeatAligner) Align(rec MotionRecord) MotionRecord {
	beat, ok := a.Nearest(rec.Timestamp)
	if !ok {
		rec.AlignedBeat = nil
		rec.BeatAlignmentScore = 0
		return rec
	}
	rec.AlignedBeat = &beat
	rec.BeatAlignmentScore = a.Score(rec.Timestamp, beat)
	return rec
}
