package motion

import "gonum.org/v1/gonum/floats"

// KinematicsTracker derives velocity and acceleration by finite differences.
// It keeps only the previous record's state; use one tracker per stream.
type KinematicsTracker struct {
	epsilon float64
	count   int

	prevPosition  Vec2
	prevVelocity  Vec2
	prevAccel     Vec2
	prevTimestamp float64
}

// NewKinematicsTracker treats steps with dt <= epsilon as degenerate. A
// non-positive epsilon selects DegenerateEpsilon.
func NewKinematicsTracker(epsilon float64) *KinematicsTracker {
	if epsilon <= 0 {
		epsilon = DegenerateEpsilon
	}
	return &KinematicsTracker{epsilon: epsilon}
}

// Update enriches s with kinematics. Degenerate steps keep the previous
// velocity and acceleration and are flagged TimeDegenerate.
func (k *KinematicsTracker) Update(s MotionSample) MotionRecord {
	rec := MotionRecord{MotionSample: s}

	if k.count > 0 {
		dt := s.Timestamp - k.prevTimestamp
		if dt <= k.epsilon {
			rec.TimeDegenerate = true
			rec.Velocity = k.prevVelocity
			rec.Acceleration = k.prevAccel
		} else {
			rec.Velocity = s.Position.Sub(k.prevPosition).Scale(1 / dt)
			if k.count > 1 {
				rec.Acceleration = rec.Velocity.Sub(k.prevVelocity).Scale(1 / dt)
			}
		}
	}
	rec.Speed = norm(rec.Velocity)
	rec.AccelerationMagnitude = norm(rec.Acceleration)

	if k.count == 0 || s.Timestamp > k.prevTimestamp {
		k.prevTimestamp = s.Timestamp
	}
	k.count++
	k.prevPosition = s.Position
	k.prevVelocity = rec.Velocity
	k.prevAccel = rec.Acceleration
	return rec
}

// Reset forgets all state.
func (k *KinematicsTracker) Reset() {
	*k = KinematicsTracker{epsilon: k.epsilon}
}

func norm(v Vec2) float64 {
	return floats.Norm([]float64{v.X, v.Y}, 2)
}
