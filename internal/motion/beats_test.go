package motion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeatAlignerNearest(t *testing.T) {
	a, err := NewBeatAligner([]float64{1.0, 3.0}, BeatConfig{MaxAlignmentWindow: 1.0})
	require.NoError(t, err)

	tests := []struct {
		name      string
		timestamp float64
		wantBeat  float64
		wantScore float64
	}{
		{"closer to first", 1.9, 1.0, 0.1},
		{"closer to second", 2.1, 3.0, 0.1},
		{"exactly on beat", 3.0, 3.0, 1.0},
		{"tie prefers earlier", 2.0, 1.0, 0.0},
		{"before first beat", 0.2, 1.0, 0.2},
		{"after last beat", 9.0, 3.0, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.Align(MotionRecord{MotionSample: MotionSample{FrameIndex: 1, Timestamp: tt.timestamp}})
			require.True(t, rec.HasBeat())
			assert.Equal(t, tt.wantBeat, *rec.AlignedBeat)
			assert.InDelta(t, tt.wantScore, rec.BeatAlignmentScore, 1e-9)
		})
	}
}

func TestBeatAlignerEmpty(t *testing.T) {
	a, err := NewBeatAligner(nil, BeatConfig{MaxAlignmentWindow: 0.5})
	require.NoError(t, err)
	assert.True(t, a.Empty())

	for _, ts := range []float64{0, 0.5, 10} {
		rec := a.Align(MotionRecord{
			MotionSample:     MotionSample{FrameIndex: 1, Timestamp: ts, MotionIntensity: 80},
			DopamineHitScore: 1,
			IsPeakMoment:     true,
		})
		assert.Nil(t, rec.AlignedBeat)
		assert.Zero(t, rec.BeatAlignmentScore)
	}
}

func TestBeatAlignerRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		beats []float64
		cfg   BeatConfig
		want  error
	}{
		{"unsorted", []float64{2, 1}, BeatConfig{MaxAlignmentWindow: 1}, ErrUnsortedBeats},
		{"nan", []float64{1, math.NaN()}, BeatConfig{MaxAlignmentWindow: 1}, ErrUnsortedBeats},
		{"zero window", []float64{1}, BeatConfig{}, ErrInvalidConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBeatAligner(tt.beats, tt.cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBeatAlignerCopiesInput(t *testing.T) {
	beats := []float64{1, 2}
	a, err := NewBeatAligner(beats, BeatConfig{MaxAlignmentWindow: 1})
	require.NoError(t, err)

	beats[0] = 100
	b, ok := a.Nearest(0)
	require.True(t, ok)
	assert.Equal(t, 1.0, b)
}

func TestBeatAlignerDuplicateBeats(t *testing.T) {
	a, err := NewBeatAligner([]float64{1, 1, 2}, BeatConfig{MaxAlignmentWindow: 1})
	require.NoError(t, err)

	b, ok := a.Nearest(1.2)
	require.True(t, ok)
	assert.Equal(t, 1.0, b)
}
