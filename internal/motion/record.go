// Package motion turns consecutive video frames into an ordered table of
// per-frame motion records: frame differencing, centroid kinematics, hit
// scoring with windowed peak detection, and alignment against music beats.
package motion

import (
	"fmt"
	"image"
	"math"
)

// Vec2 is a 2D vector in pixels (or pixels per second).
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v * k.
func (v Vec2) Scale(k float64) Vec2 { return Vec2{v.X * k, v.Y * k} }

// Norm returns the Euclidean length.
func (v Vec2) Norm() float64 { return math.Hypot(v.X, v.Y) }

// Flow is the frame-level aggregate of a dense flow field.
type Flow struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Magnitude float64 `json:"magnitude"`
}

// Region is a connected component of motion pixels.
type Region struct {
	Box  image.Rectangle `json:"box"`
	Area float64         `json:"area"`
}

// Center returns the midpoint of the bounding box.
func (r Region) Center() Vec2 {
	return Vec2{
		X: float64(r.Box.Min.X+r.Box.Max.X) / 2,
		Y: float64(r.Box.Min.Y+r.Box.Max.Y) / 2,
	}
}

// MotionSample is the raw measurement for one frame pair.
type MotionSample struct {
	FrameIndex      int
	Timestamp       float64
	Position        Vec2
	MotionIntensity float64 // percent of frame area, 0-100
	OpticalFlow     Flow

	// RegionCount counts every connected region, including those below
	// the minimum area. Regions holds only the ones at or above it.
	RegionCount int
	Regions     []Region
}

// Validate checks the sample's fixed schema.
func (s MotionSample) Validate() error {
	switch {
	case s.FrameIndex < 1:
		return fmt.Errorf("%w: frame_index %d", ErrInvalidRecord, s.FrameIndex)
	case !finite(s.Timestamp) || s.Timestamp < 0:
		return fmt.Errorf("%w: timestamp %g", ErrInvalidRecord, s.Timestamp)
	case !finite(s.MotionIntensity) || s.MotionIntensity < 0 || s.MotionIntensity > 100:
		return fmt.Errorf("%w: motion_intensity %g", ErrInvalidRecord, s.MotionIntensity)
	case !finite(s.Position.X) || !finite(s.Position.Y):
		return fmt.Errorf("%w: position %v", ErrInvalidRecord, s.Position)
	case !finite(s.OpticalFlow.X) || !finite(s.OpticalFlow.Y) || !finite(s.OpticalFlow.Magnitude):
		return fmt.Errorf("%w: optical_flow %v", ErrInvalidRecord, s.OpticalFlow)
	}
	return nil
}

// MotionRecord is a fully enriched row. Stages copy records by value and
// only fill in their own fields.
type MotionRecord struct {
	MotionSample

	Velocity              Vec2
	Speed                 float64
	Acceleration          Vec2
	AccelerationMagnitude float64
	TimeDegenerate        bool

	DopamineHitScore float64
	IsPeakMoment     bool

	AlignedBeat        *float64
	BeatAlignmentScore float64
}

// Validate checks every field's bounds.
func (r MotionRecord) Validate() error {
	if err := r.MotionSample.Validate(); err != nil {
		return err
	}
	for name, v := range map[string]float64{
		"velocity_x":     r.Velocity.X,
		"velocity_y":     r.Velocity.Y,
		"speed":          r.Speed,
		"acceleration_x": r.Acceleration.X,
		"acceleration_y": r.Acceleration.Y,
		"acceleration":   r.AccelerationMagnitude,
	} {
		if !finite(v) {
			return fmt.Errorf("%w: %s %g", ErrInvalidRecord, name, v)
		}
	}
	if r.DopamineHitScore < 0 || r.DopamineHitScore > 1 || math.IsNaN(r.DopamineHitScore) {
		return fmt.Errorf("%w: dopamine_hit_score %g", ErrInvalidRecord, r.DopamineHitScore)
	}
	if r.BeatAlignmentScore < 0 || r.BeatAlignmentScore > 1 || math.IsNaN(r.BeatAlignmentScore) {
		return fmt.Errorf("%w: beat_alignment_score %g", ErrInvalidRecord, r.BeatAlignmentScore)
	}
	if r.AlignedBeat == nil && r.BeatAlignmentScore != 0 {
		return fmt.Errorf("%w: beat_alignment_score %g without aligned_beat", ErrInvalidRecord, r.BeatAlignmentScore)
	}
	return nil
}

// HasBeat reports whether a beat was aligned.
func (r MotionRecord) HasBeat() bool {
	return r.AlignedBeat != nil
}
