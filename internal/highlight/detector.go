package highlight

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kikiluvv/motionbeat/internal/clips"
	"github.com/kikiluvv/motionbeat/internal/motion"
)

// Detector turns the peak moments of a motion table into ranked clips
type Detector struct {
	logger zerolog.Logger
	scorer Scorer
	config Config
}

var _ clips.Detector = (*Detector)(nil)

// NewDetector creates a detector with a custom scorer
func NewDetector(logger zerolog.Logger, scorer Scorer, cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if scorer == nil {
		return nil, fmt.Errorf("scorer is required")
	}
	return &Detector{
		logger: logger.With().Str("component", "highlight").Logger(),
		scorer: scorer,
		config: cfg,
	}, nil
}

// NewDefaultDetector creates a detector with heuristic scoring
func NewDefaultDetector(logger zerolog.Logger, cfg Config) (*Detector, error) {
	return NewDetector(logger, NewHeuristicScorer(), cfg)
}

// Detect builds, scores and ranks clips. Clips in the result never overlap
// and are ordered by descending score.
func (d *Detector) Detect(ctx context.Context, table *motion.Table, source string) ([]*clips.Clip, error) {
	if table == nil {
		return nil, fmt.Errorf("motion table is required")
	}

	records := table.Records()
	peaks := table.Peaks()
	d.logger.Info().
		Str("source", source).
		Int("records", len(records)).
		Int("peaks", len(peaks)).
		Msg("starting highlight detection")

	if len(peaks) == 0 {
		d.logger.Warn().Msg("no peak moments, nothing to cut")
		return nil, nil
	}

	spanStart, spanEnd := table.Span()

	// Step 1: one window per peak, snapped to its beat
	candidates := d.generateCandidates(peaks, spanStart, spanEnd)

	// Step 2: bring every window within [MinLength, MaxLength]
	candidates = d.fitLengths(candidates, spanStart, spanEnd)

	// Step 3: merge windows closer than MergeGap
	candidates = d.mergeCandidates(candidates)

	// Step 4: features and scores
	manager := clips.NewManager()
	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		clip := &clips.Clip{
			ID:        fmt.Sprintf("clip_%d", i),
			Start:     clips.Seconds(c.start),
			End:       clips.Seconds(c.end),
			Duration:  clips.Seconds(c.end - c.start),
			SourceURL: source,
			PeakFrame: c.peakFrame,
			OnBeat:    c.onBeat,
			Stats:     d.stats(records, c),
			Metadata:  map[string]interface{}{},
		}

		score, err := d.scorer.Score(ctx, clip)
		if err != nil {
			d.logger.Warn().Err(err).Str("clip_id", clip.ID).Msg("scoring failed, using 0")
			score = 0.0
		}
		clip.Score = score

		d.logger.Debug().
			Str("clip", clip.ID).
			Dur("start", clip.Start).
			Dur("duration", clip.Duration).
			Bool("on_beat", clip.OnBeat).
			Float64("score", clip.Score).
			Msg("scored clip")

		if score < d.config.MinScore {
			continue
		}
		manager.Add(clip)
	}

	// Step 5: best first, skipping overlaps
	top := d.rankAndFilter(manager)

	d.logger.Info().
		Int("candidates", len(candidates)).
		Int("top_clips", len(top)).
		Msg("highlight detection complete")

	return top, nil
}

// Close releases scorer resources
func (d *Detector) Close() error {
	return d.scorer.Close()
}

type candidate struct {
	start, end float64
	peakFrame  int
	peakScore  float64
	onBeat     bool
}

func (c candidate) length() float64 { return c.end - c.start }

// generateCandidates places a window around each peak. Peaks with a
// positive beat alignment start exactly on their beat.
func (d *Detector) generateCandidates(peaks []motion.MotionRecord, spanStart, spanEnd float64) []candidate {
	candidates := make([]candidate, 0, len(peaks))

	for _, p := range peaks {
		c := candidate{
			start:     p.Timestamp - d.config.PreRoll,
			end:       p.Timestamp + d.config.PostRoll,
			peakFrame: p.FrameIndex,
			peakScore: p.DopamineHitScore,
		}
		if p.HasBeat() && p.BeatAlignmentScore > 0 {
			c.start = *p.AlignedBeat
			c.onBeat = true
		}
		if c.start < spanStart {
			c.start = spanStart
			c.onBeat = false
		}
		c.end = math.Min(c.end, spanEnd)
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].start < candidates[j].start
	})
	return candidates
}

// fitLengths extends short windows forward, then backward when the table
// ends, and trims long ones at the end.
func (d *Detector) fitLengths(candidates []candidate, spanStart, spanEnd float64) []candidate {
	fitted := candidates[:0]
	for _, c := range candidates {
		if c.length() < d.config.MinLength {
			c.end = math.Min(c.start+d.config.MinLength, spanEnd)
		}
		if c.length() < d.config.MinLength {
			start := math.Max(c.end-d.config.MinLength, spanStart)
			if start != c.start {
				c.start = start
				c.onBeat = false
			}
		}
		if c.length() > d.config.MaxLength {
			c.end = c.start + d.config.MaxLength
		}
		if c.length() <= 0 {
			continue
		}
		fitted = append(fitted, c)
	}
	// Windows pulled back from the table end may now start earlier.
	sort.SliceStable(fitted, func(i, j int) bool {
		return fitted[i].start < fitted[j].start
	})
	return fitted
}

// mergeCandidates joins neighbours closer than MergeGap as long as the
// union stays within MaxLength. Input must be sorted by start. The merged
// window keeps the earlier start.
func (d *Detector) mergeCandidates(candidates []candidate) []candidate {
	if len(candidates) == 0 {
		return candidates
	}

	merged := []candidate{candidates[0]}
	for _, next := range candidates[1:] {
		cur := &merged[len(merged)-1]
		end := math.Max(cur.end, next.end)
		if next.start-cur.end <= d.config.MergeGap && end-cur.start <= d.config.MaxLength {
			cur.end = end
			if next.peakScore > cur.peakScore {
				cur.peakFrame = next.peakFrame
				cur.peakScore = next.peakScore
			}
			continue
		}
		merged = append(merged, next)
	}
	return merged
}

// stats summarizes the records inside a window.
func (d *Detector) stats(records []motion.MotionRecord, c candidate) clips.Stats {
	first := sort.Search(len(records), func(i int) bool {
		return records[i].Timestamp >= c.start
	})

	var scores, sync []float64
	peaks := 0
	for _, r := range records[first:] {
		if r.Timestamp > c.end {
			break
		}
		scores = append(scores, r.DopamineHitScore)
		if r.IsPeakMoment {
			peaks++
			sync = append(sync, r.BeatAlignmentScore)
		}
	}

	s := clips.Stats{
		Frames: len(scores),
		Peaks:  peaks,
	}
	if len(scores) > 0 {
		s.Energy = stat.Mean(scores, nil)
		s.MaxScore = floats.Max(scores)
	}
	if len(sync) > 0 {
		s.BeatSync = stat.Mean(sync, nil)
	}
	if c.length() > 0 {
		s.PeakRate = float64(peaks) / c.length()
	}
	preferred := d.config.preferredLength()
	s.DurationFit = clamp01(1 - math.Abs(c.length()-preferred)/preferred)
	return s
}

// rankAndFilter returns up to TopN clips by score, dropping any clip that
// overlaps a better one.
func (d *Detector) rankAndFilter(manager *clips.Manager) []*clips.Clip {
	var selected []*clips.Clip
	for _, clip := range manager.Top(-1) {
		if len(selected) == d.config.TopN {
			break
		}
		overlaps := false
		for _, s := range selected {
			if clip.Start < s.End && s.Start < clip.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			selected = append(selected, clip)
		}
	}
	return selected
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
