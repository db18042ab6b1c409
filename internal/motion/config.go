package motion

import "math"

// DegenerateEpsilon is the smallest time step treated as a real advance.
const DegenerateEpsilon = 1e-9

// Config bundles every recognized analysis option.
type Config struct {
	Extractor ExtractorConfig `yaml:"extractor" mapstructure:"extractor"`
	Peak      PeakConfig      `yaml:"peak" mapstructure:"peak"`
	Beat      BeatConfig      `yaml:"beat" mapstructure:"beat"`
}

// ExtractorConfig controls frame differencing and optical flow.
type ExtractorConfig struct {
	BlurKernel       int        `yaml:"blur_kernel" mapstructure:"blur_kernel"`
	Threshold        int        `yaml:"threshold" mapstructure:"threshold"`
	DilateIterations int        `yaml:"dilate_iterations" mapstructure:"dilate_iterations"`
	MinContourArea   float64    `yaml:"min_contour_area" mapstructure:"min_contour_area"`
	Flow             FlowConfig `yaml:"flow" mapstructure:"flow"`
}

// FlowConfig controls dense optical flow. Scale is the working resolution
// relative to the source frame.
type FlowConfig struct {
	Scale      float64 `yaml:"scale" mapstructure:"scale"`
	Window     int     `yaml:"window" mapstructure:"window"`
	Iterations int     `yaml:"iterations" mapstructure:"iterations"`
}

// PeakConfig controls hit scoring and peak detection.
type PeakConfig struct {
	Window    int      `yaml:"window" mapstructure:"window"`
	Threshold float64  `yaml:"threshold" mapstructure:"threshold"`
	Ceilings  Ceilings `yaml:"ceilings" mapstructure:"ceilings"`
	Weights   Weights  `yaml:"weights" mapstructure:"weights"`
}

// Ceilings are the values at which each signal saturates to 1.
type Ceilings struct {
	Intensity    float64 `yaml:"intensity" mapstructure:"intensity"`       // percent of frame
	Speed        float64 `yaml:"speed" mapstructure:"speed"`               // px/s
	Acceleration float64 `yaml:"acceleration" mapstructure:"acceleration"` // px/s²
	Flow         float64 `yaml:"flow" mapstructure:"flow"`                 // px/frame
}

// Weights combine the normalized signals.
type Weights struct {
	Intensity    float64 `yaml:"intensity" mapstructure:"intensity"`
	Speed        float64 `yaml:"speed" mapstructure:"speed"`
	Acceleration float64 `yaml:"acceleration" mapstructure:"acceleration"`
	Flow         float64 `yaml:"flow" mapstructure:"flow"`
}

// BeatConfig controls beat alignment.
type BeatConfig struct {
	MaxAlignmentWindow float64 `yaml:"max_alignment_window" mapstructure:"max_alignment_window"` // seconds
}

// DefaultConfig returns the stock analysis settings.
func DefaultConfig() Config {
	return Config{
		Extractor: DefaultExtractorConfig(),
		Peak: PeakConfig{
			Window:    15,
			Threshold: 0.35,
			Ceilings: Ceilings{
				Intensity:    25,
				Speed:        800,
				Acceleration: 20000,
				Flow:         8,
			},
			Weights: Weights{
				Intensity:    0.4,
				Speed:        0.3,
				Acceleration: 0.2,
				Flow:         0.1,
			},
		},
		Beat: BeatConfig{MaxAlignmentWindow: 0.25},
	}
}

// DefaultExtractorConfig returns the extractor section of DefaultConfig.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		BlurKernel:       5,
		Threshold:        20,
		DilateIterations: 3,
		MinContourArea:   500,
		Flow: FlowConfig{
			Scale:      0.5,
			Window:     15,
			Iterations: 3,
		},
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	if err := c.Extractor.Validate(); err != nil {
		return err
	}
	if err := c.Peak.Validate(); err != nil {
		return err
	}
	return c.Beat.Validate()
}

// Validate checks the differencing settings and the flow section.
func (c ExtractorConfig) Validate() error {
	switch {
	case c.BlurKernel < 1 || c.BlurKernel%2 == 0:
		return invalid("extractor.blur_kernel", "must be a positive odd number, got %d", c.BlurKernel)
	case c.Threshold <= 0 || c.Threshold >= 255:
		return invalid("extractor.threshold", "must be in (0,255), got %d", c.Threshold)
	case c.DilateIterations < 0:
		return invalid("extractor.dilate_iterations", "must not be negative, got %d", c.DilateIterations)
	case c.MinContourArea < 0 || !finite(c.MinContourArea):
		return invalid("extractor.min_contour_area", "must not be negative, got %g", c.MinContourArea)
	}
	return c.Flow.Validate()
}

// Validate checks the working scale and Lucas-Kanade parameters.
func (c FlowConfig) Validate() error {
	switch {
	case !(c.Scale > 0 && c.Scale <= 1):
		return invalid("extractor.flow.scale", "must be in (0,1], got %g", c.Scale)
	case c.Window < 3:
		return invalid("extractor.flow.window", "must be at least 3, got %d", c.Window)
	case c.Iterations < 1:
		return invalid("extractor.flow.iterations", "must be at least 1, got %d", c.Iterations)
	}
	return nil
}

// Validate checks the window and threshold, then every ceiling and weight.
func (c PeakConfig) Validate() error {
	if c.Window < 1 {
		return invalid("peak.window", "must be at least 1 frame, got %d", c.Window)
	}
	if !(c.Threshold > 0 && c.Threshold < 1) {
		return invalid("peak.threshold", "must be in (0,1), got %g", c.Threshold)
	}

	ceilings := []struct {
		name string
		v    float64
	}{
		{"peak.ceilings.intensity", c.Ceilings.Intensity},
		{"peak.ceilings.speed", c.Ceilings.Speed},
		{"peak.ceilings.acceleration", c.Ceilings.Acceleration},
		{"peak.ceilings.flow", c.Ceilings.Flow},
	}
	for _, ce := range ceilings {
		if !(ce.v > 0) || !finite(ce.v) {
			return invalid(ce.name, "must be positive, got %g", ce.v)
		}
	}

	weights := []struct {
		name string
		v    float64
	}{
		{"peak.weights.intensity", c.Weights.Intensity},
		{"peak.weights.speed", c.Weights.Speed},
		{"peak.weights.acceleration", c.Weights.Acceleration},
		{"peak.weights.flow", c.Weights.Flow},
	}
	var sum float64
	for _, w := range weights {
		if w.v < 0 || !finite(w.v) {
			return invalid(w.name, "must not be negative, got %g", w.v)
		}
		sum += w.v
	}
	if sum == 0 {
		return invalid("peak.weights", "must not all be zero")
	}
	return nil
}

// Validate requires a positive finite alignment window.
func (c BeatConfig) Validate() error {
	if !(c.MaxAlignmentWindow > 0) || !finite(c.MaxAlignmentWindow) {
		return invalid("beat.max_alignment_window", "must be positive, got %g", c.MaxAlignmentWindow)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
