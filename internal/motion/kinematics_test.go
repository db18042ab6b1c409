package motion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAt(index int, fps float64, pos Vec2) MotionSample {
	return MotionSample{
		FrameIndex: index,
		Timestamp:  float64(index) / fps,
		Position:   pos,
	}
}

func TestKinematicsConstantVelocity(t *testing.T) {
	const fps = 10.0
	step := Vec2{X: 2, Y: -1}
	tracker := NewKinematicsTracker(0)

	var records []MotionRecord
	for i := 1; i <= 8; i++ {
		pos := Vec2{X: 100 + step.X*float64(i), Y: 50 + step.Y*float64(i)}
		records = append(records, tracker.Update(sampleAt(i, fps, pos)))
	}

	assert.Equal(t, Vec2{}, records[0].Velocity, "first record has no velocity")
	assert.Zero(t, records[0].Speed)
	for i, r := range records {
		if i > 0 {
			assert.InDelta(t, 20, r.Velocity.X, 1e-6, "frame %d", r.FrameIndex)
			assert.InDelta(t, -10, r.Velocity.Y, 1e-6, "frame %d", r.FrameIndex)
			assert.InDelta(t, 22.3606797749979, r.Speed, 1e-6)
		}
		assert.InDelta(t, 0, r.Acceleration.X, 1e-6, "frame %d", r.FrameIndex)
		assert.InDelta(t, 0, r.Acceleration.Y, 1e-6, "frame %d", r.FrameIndex)
		assert.InDelta(t, 0, r.AccelerationMagnitude, 1e-6)
		assert.False(t, r.TimeDegenerate)
	}
}

func TestKinematicsAcceleration(t *testing.T) {
	tracker := NewKinematicsTracker(0)

	// x = t², sampled once per second: v = 1, 3, 5 and a = 2.
	xs := []float64{1, 4, 9, 16}
	var records []MotionRecord
	for i, x := range xs {
		records = append(records, tracker.Update(sampleAt(i+1, 1, Vec2{X: x})))
	}

	assert.Equal(t, Vec2{}, records[1].Acceleration, "second record has no acceleration")
	assert.InDelta(t, 3, records[1].Velocity.X, 1e-9)
	assert.InDelta(t, 5, records[2].Velocity.X, 1e-9)
	assert.InDelta(t, 2, records[2].Acceleration.X, 1e-9)
	assert.InDelta(t, 2, records[3].AccelerationMagnitude, 1e-9)
}

func TestKinematicsDegenerateTimestamp(t *testing.T) {
	tracker := NewKinematicsTracker(0)

	in := []MotionSample{
		{FrameIndex: 1, Timestamp: 0.1, Position: Vec2{X: 0}},
		{FrameIndex: 2, Timestamp: 0.2, Position: Vec2{X: 1}},
		{FrameIndex: 3, Timestamp: 0.2, Position: Vec2{X: 5}},
		{FrameIndex: 4, Timestamp: 0.15, Position: Vec2{X: 6}},
		{FrameIndex: 5, Timestamp: 0.3, Position: Vec2{X: 7}},
	}
	var out []MotionRecord
	for _, s := range in {
		out = append(out, tracker.Update(s))
	}

	require.Len(t, out, 5)
	assert.False(t, out[1].TimeDegenerate)
	assert.True(t, out[2].TimeDegenerate)
	assert.True(t, out[3].TimeDegenerate, "non-increasing timestamps are degenerate")
	assert.Equal(t, out[1].Velocity, out[2].Velocity)
	assert.Equal(t, out[1].Velocity, out[3].Velocity)

	assert.False(t, out[4].TimeDegenerate)
	assert.InDelta(t, 10, out[4].Velocity.X, 1e-9, "dt is measured from the latest valid timestamp")
}

func TestKinematicsReset(t *testing.T) {
	tracker := NewKinematicsTracker(0)
	tracker.Update(sampleAt(1, 1, Vec2{}))
	tracker.Update(sampleAt(2, 1, Vec2{X: 10}))
	tracker.Reset()

	r := tracker.Update(sampleAt(1, 1, Vec2{X: 50}))
	assert.Zero(t, r.Speed)
}
