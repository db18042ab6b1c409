package highlight

import (
	"context"
	"fmt"

	"github.com/kikiluvv/motionbeat/internal/clips"
)

// Scorer evaluates how strong a clip is as a highlight, in [0,1]
type Scorer interface {
	Score(ctx context.Context, clip *clips.Clip) (float64, error)
	Close() error
}

// Weights for different heuristic factors
type Weights struct {
	Energy      float64 `yaml:"energy" mapstructure:"energy"`
	PeakDensity float64 `yaml:"peak_density" mapstructure:"peak_density"`
	BeatSync    float64 `yaml:"beat_sync" mapstructure:"beat_sync"`
	DurationFit float64 `yaml:"duration_fit" mapstructure:"duration_fit"`
}

// DefaultWeights favours sustained motion and hits on the beat.
func DefaultWeights() Weights {
	return Weights{
		Energy:      0.4,
		PeakDensity: 0.2,
		BeatSync:    0.3,
		DurationFit: 0.1,
	}
}

func (w Weights) sum() float64 {
	return w.Energy + w.PeakDensity + w.BeatSync + w.DurationFit
}

// PeakRateCeiling is the peak rate, in peaks per second, that saturates the
// density factor.
const PeakRateCeiling = 2.0

// HeuristicScorer scores clips from their motion statistics
type HeuristicScorer struct {
	weights Weights
}

// NewHeuristicScorer creates a heuristic scorer with the default weights
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{weights: DefaultWeights()}
}

// NewWeightedHeuristicScorer creates a heuristic scorer with custom weights
func NewWeightedHeuristicScorer(w Weights) (*HeuristicScorer, error) {
	if w.Energy < 0 || w.PeakDensity < 0 || w.BeatSync < 0 || w.DurationFit < 0 {
		return nil, fmt.Errorf("heuristic weights must be non-negative")
	}
	if w.sum() <= 0 {
		return nil, fmt.Errorf("heuristic weights must not all be zero")
	}
	return &HeuristicScorer{weights: w}, nil
}

// Score calculates a weighted mean of the clip's factors and records each
// factor in the clip metadata.
func (h *HeuristicScorer) Score(ctx context.Context, clip *clips.Clip) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s := clip.Stats
	factors := map[string]float64{
		"energy":       clamp01(s.Energy),
		"peak_density": clamp01(s.PeakRate / PeakRateCeiling),
		"beat_sync":    clamp01(s.BeatSync),
		"duration_fit": clamp01(s.DurationFit),
	}

	w := h.weights
	total := w.Energy*factors["energy"] +
		w.PeakDensity*factors["peak_density"] +
		w.BeatSync*factors["beat_sync"] +
		w.DurationFit*factors["duration_fit"]
	score := clamp01(total / w.sum())

	if clip.Metadata == nil {
		clip.Metadata = make(map[string]interface{})
	}
	for k, v := range factors {
		clip.Metadata[k] = v
	}
	clip.Metadata["heuristic_score"] = score

	return score, nil
}

// Close is a no-op for heuristic scorer
func (h *HeuristicScorer) Close() error {
	return nil
}

// IntensityScorer rates a clip by its single strongest hit
type IntensityScorer struct{}

// Score returns the clip's maximum hit score.
func (IntensityScorer) Score(ctx context.Context, clip *clips.Clip) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return clamp01(clip.Stats.MaxScore), nil
}

// Close is a no-op
func (IntensityScorer) Close() error {
	return nil
}

// CompositeScorer combines multiple scorers
type CompositeScorer struct {
	scorers []Scorer
	weights []float64
	total   float64
}

// NewCompositeScorer creates a scorer that combines multiple scorers
func NewCompositeScorer(scorers []Scorer, weights []float64) (*CompositeScorer, error) {
	if len(scorers) == 0 {
		return nil, fmt.Errorf("composite scorer needs at least one scorer")
	}
	if len(scorers) != len(weights) {
		return nil, fmt.Errorf("got %d scorers and %d weights", len(scorers), len(weights))
	}
	total := 0.0
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("weight %d is negative", i)
		}
		total += w
	}
	if total <= 0 {
		return nil, fmt.Errorf("composite weights must not all be zero")
	}
	return &CompositeScorer{
		scorers: scorers,
		weights: weights,
		total:   total,
	}, nil
}

// Score calculates a weighted average of all scorers
func (c *CompositeScorer) Score(ctx context.Context, clip *clips.Clip) (float64, error) {
	sum := 0.0
	for i, scorer := range c.scorers {
		if c.weights[i] == 0 {
			continue
		}
		s, err := scorer.Score(ctx, clip)
		if err != nil {
			return 0, fmt.Errorf("scorer %d: %w", i, err)
		}
		sum += c.weights[i] * s
	}
	return clamp01(sum / c.total), nil
}

// Close closes all underlying scorers
func (c *CompositeScorer) Close() error {
	for _, scorer := range c.scorers {
		if err := scorer.Close(); err != nil {
			return err
		}
	}
	return nil
}
