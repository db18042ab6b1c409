package highlight

import (
	"fmt"
	"math"

	"github.com/kikiluvv/motionbeat/internal/motion"
)

// Config controls highlight selection. Durations are in seconds.
type Config struct {
	PreRoll   float64 `yaml:"pre_roll" mapstructure:"pre_roll"`
	PostRoll  float64 `yaml:"post_roll" mapstructure:"post_roll"`
	MinLength float64 `yaml:"min_length" mapstructure:"min_length"`
	MaxLength float64 `yaml:"max_length" mapstructure:"max_length"`
	MergeGap  float64 `yaml:"merge_gap" mapstructure:"merge_gap"`
	TopN      int     `yaml:"top_n" mapstructure:"top_n"`
	MinScore  float64 `yaml:"min_score" mapstructure:"min_score"`
}

// DefaultConfig returns settings tuned for short social clips.
func DefaultConfig() Config {
	return Config{
		PreRoll:   1.0,
		PostRoll:  2.0,
		MinLength: 2.0,
		MaxLength: 8.0,
		MergeGap:  0.5,
		TopN:      5,
		MinScore:  0,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"highlight.pre_roll", c.PreRoll},
		{"highlight.post_roll", c.PostRoll},
		{"highlight.merge_gap", c.MergeGap},
	} {
		if f.v < 0 || math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &motion.ConfigError{Field: f.name, Reason: fmt.Sprintf("must be a non-negative number, got %g", f.v)}
		}
	}
	if !(c.MinLength > 0) {
		return &motion.ConfigError{Field: "highlight.min_length", Reason: "must be positive"}
	}
	if !(c.MaxLength >= c.MinLength) || math.IsInf(c.MaxLength, 0) {
		return &motion.ConfigError{Field: "highlight.max_length", Reason: "must be finite and at least min_length"}
	}
	if c.TopN < 1 {
		return &motion.ConfigError{Field: "highlight.top_n", Reason: "must be at least 1"}
	}
	if c.MinScore < 0 || c.MinScore > 1 || math.IsNaN(c.MinScore) {
		return &motion.ConfigError{Field: "highlight.min_score", Reason: "must be within [0,1]"}
	}
	return nil
}

// preferredLength is the clip length with a duration fit of 1.
func (c Config) preferredLength() float64 {
	return (c.MinLength + c.MaxLength) / 2
}
