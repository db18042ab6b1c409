package highlight

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/motionbeat/internal/clips"
	"github.com/kikiluvv/motionbeat/internal/motion"
)

type peak struct {
	score     float64
	beat      float64
	alignment float64 // zero leaves the peak unaligned
}

// buildTable returns a frozen table of n records at 10 fps with a
// background hit score of 0.1 and the given peaks keyed by frame index.
func buildTable(t *testing.T, n int, peaks map[int]peak) *motion.Table {
	t.Helper()
	tbl := motion.NewTable()
	for i := 1; i <= n; i++ {
		r := motion.MotionRecord{
			MotionSample:     motion.MotionSample{FrameIndex: i, Timestamp: float64(i) / 10},
			DopamineHitScore: 0.1,
		}
		if p, ok := peaks[i]; ok {
			r.IsPeakMoment = true
			r.DopamineHitScore = p.score
			if p.alignment > 0 {
				beat := p.beat
				r.AlignedBeat = &beat
				r.BeatAlignmentScore = p.alignment
			}
		}
		require.NoError(t, tbl.Append(r))
	}
	require.NoError(t, tbl.Freeze(motion.Diagnostics{DecodedFrames: n + 1, DeclaredFrames: n + 1}))
	return tbl
}

func newDetector(t *testing.T, cfg Config) *Detector {
	t.Helper()
	d, err := NewDefaultDetector(zerolog.Nop(), cfg)
	require.NoError(t, err)
	return d
}

func TestDetectSnapsToBeat(t *testing.T) {
	tbl := buildTable(t, 100, map[int]peak{
		50: {score: 0.9, beat: 4.9, alignment: 0.6},
	})

	got, err := newDetector(t, DefaultConfig()).Detect(context.Background(), tbl, "in.mp4")
	require.NoError(t, err)
	require.Len(t, got, 1)

	c := got[0]
	assert.True(t, c.OnBeat)
	assert.InDelta(t, 4.9, c.Start.Seconds(), 1e-6)
	assert.InDelta(t, 7.0, c.End.Seconds(), 1e-6)
	assert.Equal(t, 50, c.PeakFrame)
	assert.Equal(t, "in.mp4", c.SourceURL)
	assert.Equal(t, 1, c.Stats.Peaks)
	assert.InDelta(t, 0.6, c.Stats.BeatSync, 1e-9)
	assert.InDelta(t, 0.9, c.Stats.MaxScore, 1e-9)
	assert.Greater(t, c.Score, 0.0)
	assert.Contains(t, c.Metadata, "beat_sync")
}

func TestDetectMergesNearbyPeaks(t *testing.T) {
	tbl := buildTable(t, 100, map[int]peak{
		30: {score: 0.5},
		40: {score: 0.8},
	})

	got, err := newDetector(t, DefaultConfig()).Detect(context.Background(), tbl, "in.mp4")
	require.NoError(t, err)
	require.Len(t, got, 1)

	c := got[0]
	assert.False(t, c.OnBeat)
	assert.InDelta(t, 2.0, c.Start.Seconds(), 1e-6)
	assert.InDelta(t, 6.0, c.End.Seconds(), 1e-6)
	assert.Equal(t, 40, c.PeakFrame, "merged clip keeps the stronger peak")
	assert.Equal(t, 2, c.Stats.Peaks)
	assert.InDelta(t, 0.5, c.Stats.PeakRate, 1e-9)
}

func TestDetectRespectsMaxLengthWhenMerging(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLength = 3.5

	tbl := buildTable(t, 100, map[int]peak{
		30: {score: 0.5},
		45: {score: 0.8},
	})

	got, err := newDetector(t, cfg).Detect(context.Background(), tbl, "in.mp4")
	require.NoError(t, err)

	// [2,5] and [3.5,6.5] would merge into 4.5s. They stay apart and the
	// weaker one overlaps the stronger and is dropped.
	require.Len(t, got, 1)
	assert.Equal(t, 30, got[0].PeakFrame)
	assert.Equal(t, 2, got[0].Stats.Peaks)
	assert.InDelta(t, 3.0, got[0].Duration.Seconds(), 1e-6)
}

func TestDetectClampsToTableSpan(t *testing.T) {
	tbl := buildTable(t, 100, map[int]peak{
		3:  {score: 0.7},
		99: {score: 0.7},
	})

	got, err := newDetector(t, DefaultConfig()).Detect(context.Background(), tbl, "in.mp4")
	require.NoError(t, err)
	require.Len(t, got, 2)

	byPeak := map[int]*clips.Clip{}
	for _, c := range got {
		byPeak[c.PeakFrame] = c
	}

	require.Contains(t, byPeak, 3)
	assert.InDelta(t, 0.1, byPeak[3].Start.Seconds(), 1e-6)
	assert.InDelta(t, 2.3, byPeak[3].End.Seconds(), 1e-6)

	require.Contains(t, byPeak, 99)
	assert.InDelta(t, 8.0, byPeak[99].Start.Seconds(), 1e-6, "short tail window grows backwards")
	assert.InDelta(t, 10.0, byPeak[99].End.Seconds(), 1e-6)
}

func TestDetectMergesWindowsAtTableEnd(t *testing.T) {
	tbl := buildTable(t, 100, map[int]peak{
		95: {score: 0.6},
		99: {score: 0.9},
	})

	got, err := newDetector(t, DefaultConfig()).Detect(context.Background(), tbl, "in.mp4")
	require.NoError(t, err)

	// Both tail windows grow backwards to [8,10] and merge into one clip.
	require.Len(t, got, 1)
	assert.Equal(t, 99, got[0].PeakFrame)
	assert.Equal(t, 2, got[0].Stats.Peaks)
	assert.InDelta(t, 8.0, got[0].Start.Seconds(), 1e-6)
	assert.InDelta(t, 10.0, got[0].End.Seconds(), 1e-6)
}

func TestFitLengthsKeepsStartOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinLength = 4
	d := newDetector(t, cfg)

	fitted := d.fitLengths([]candidate{
		{start: 6.5, end: 10.6, peakFrame: 70},
		{start: 6.8, end: 7.0, peakFrame: 69},
	}, 0, 10)

	require.Len(t, fitted, 2)
	assert.Equal(t, 69, fitted[0].peakFrame)
	assert.InDelta(t, 6.0, fitted[0].start, 1e-9)
	assert.Equal(t, 70, fitted[1].peakFrame)
	for i := 1; i < len(fitted); i++ {
		assert.LessOrEqual(t, fitted[i-1].start, fitted[i].start)
	}
}

func TestDetectRanksAndLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TopN = 2

	tbl := buildTable(t, 300, map[int]peak{
		30:  {score: 0.4},
		130: {score: 1.0, beat: 13.0, alignment: 1.0},
		230: {score: 0.7},
	})

	got, err := newDetector(t, cfg).Detect(context.Background(), tbl, "in.mp4")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 130, got[0].PeakFrame)
	assert.Equal(t, 230, got[1].PeakFrame)
	assert.GreaterOrEqual(t, got[0].Score, got[1].Score)
}

func TestDetectMinScore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinScore = 0.99

	tbl := buildTable(t, 100, map[int]peak{50: {score: 0.5}})
	got, err := newDetector(t, cfg).Detect(context.Background(), tbl, "in.mp4")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetectWithoutPeaks(t *testing.T) {
	tbl := buildTable(t, 50, nil)
	got, err := newDetector(t, DefaultConfig()).Detect(context.Background(), tbl, "in.mp4")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = newDetector(t, DefaultConfig()).Detect(context.Background(), nil, "in.mp4")
	assert.Error(t, err)
}

type failingScorer struct{}

func (failingScorer) Score(context.Context, *clips.Clip) (float64, error) {
	return 0, errors.New("boom")
}
func (failingScorer) Close() error { return nil }

func TestDetectScorerFailureScoresZero(t *testing.T) {
	d, err := NewDetector(zerolog.Nop(), failingScorer{}, DefaultConfig())
	require.NoError(t, err)

	tbl := buildTable(t, 100, map[int]peak{50: {score: 0.5}})
	got, err := d.Detect(context.Background(), tbl, "in.mp4")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Zero(t, got[0].Score)
}

func TestDetectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tbl := buildTable(t, 100, map[int]peak{50: {score: 0.5}})
	_, err := newDetector(t, DefaultConfig()).Detect(ctx, tbl, "in.mp4")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"negative pre roll", func(c *Config) { c.PreRoll = -1 }, "highlight.pre_roll"},
		{"zero min length", func(c *Config) { c.MinLength = 0 }, "highlight.min_length"},
		{"max below min", func(c *Config) { c.MaxLength = 1 }, "highlight.max_length"},
		{"zero top n", func(c *Config) { c.TopN = 0 }, "highlight.top_n"},
		{"min score above one", func(c *Config) { c.MinScore = 2 }, "highlight.min_score"},
	}

	require.NoError(t, DefaultConfig().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.ErrorIs(t, err, motion.ErrInvalidConfiguration)

			var cerr *motion.ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}
