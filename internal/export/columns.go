// Package export writes frozen motion tables for downstream tools.
package export

import (
	"strconv"

	"github.com/kikiluvv/motionbeat/internal/motion"
)

// Columns is the row schema shared by CSV and JSON output. The first 18
// columns are the motion record; the last two are per-frame diagnostics.
var Columns = []string{
	"frame_index",
	"timestamp",
	"position_x",
	"position_y",
	"velocity_x",
	"velocity_y",
	"speed",
	"acceleration_x",
	"acceleration_y",
	"acceleration",
	"motion_intensity",
	"dopamine_hit_score",
	"is_peak_moment",
	"aligned_beat",
	"beat_alignment_score",
	"optical_flow_x",
	"optical_flow_y",
	"optical_flow_magnitude",
	"time_degenerate",
	"region_count",
}

// Frame is one exported row.
type Frame struct {
	FrameIndex           int      `json:"frame_index"`
	Timestamp            float64  `json:"timestamp"`
	PositionX            float64  `json:"position_x"`
	PositionY            float64  `json:"position_y"`
	VelocityX            float64  `json:"velocity_x"`
	VelocityY            float64  `json:"velocity_y"`
	Speed                float64  `json:"speed"`
	AccelerationX        float64  `json:"acceleration_x"`
	AccelerationY        float64  `json:"acceleration_y"`
	Acceleration         float64  `json:"acceleration"`
	MotionIntensity      float64  `json:"motion_intensity"`
	DopamineHitScore     float64  `json:"dopamine_hit_score"`
	IsPeakMoment         bool     `json:"is_peak_moment"`
	AlignedBeat          *float64 `json:"aligned_beat"`
	BeatAlignmentScore   float64  `json:"beat_alignment_score"`
	OpticalFlowX         float64  `json:"optical_flow_x"`
	OpticalFlowY         float64  `json:"optical_flow_y"`
	OpticalFlowMagnitude float64  `json:"optical_flow_magnitude"`
	TimeDegenerate       bool     `json:"time_degenerate"`
	RegionCount          int      `json:"region_count"`
}

// FrameOf flattens a record.
func FrameOf(r motion.MotionRecord) Frame {
	return Frame{
		FrameIndex:           r.FrameIndex,
		Timestamp:            r.Timestamp,
		PositionX:            r.Position.X,
		PositionY:            r.Position.Y,
		VelocityX:            r.Velocity.X,
		VelocityY:            r.Velocity.Y,
		Speed:                r.Speed,
		AccelerationX:        r.Acceleration.X,
		AccelerationY:        r.Acceleration.Y,
		Acceleration:         r.AccelerationMagnitude,
		MotionIntensity:      r.MotionIntensity,
		DopamineHitScore:     r.DopamineHitScore,
		IsPeakMoment:         r.IsPeakMoment,
		AlignedBeat:          r.AlignedBeat,
		BeatAlignmentScore:   r.BeatAlignmentScore,
		OpticalFlowX:         r.OpticalFlow.X,
		OpticalFlowY:         r.OpticalFlow.Y,
		OpticalFlowMagnitude: r.OpticalFlow.Magnitude,
		TimeDegenerate:       r.TimeDegenerate,
		RegionCount:          r.RegionCount,
	}
}

// Record rebuilds the motion record. Regions are not exported.
func (f Frame) Record() motion.MotionRecord {
	return motion.MotionRecord{
		MotionSample: motion.MotionSample{
			FrameIndex:      f.FrameIndex,
			Timestamp:       f.Timestamp,
			Position:        motion.Vec2{X: f.PositionX, Y: f.PositionY},
			MotionIntensity: f.MotionIntensity,
			OpticalFlow:     motion.Flow{X: f.OpticalFlowX, Y: f.OpticalFlowY, Magnitude: f.OpticalFlowMagnitude},
			RegionCount:     f.RegionCount,
		},
		Velocity:              motion.Vec2{X: f.VelocityX, Y: f.VelocityY},
		Speed:                 f.Speed,
		Acceleration:          motion.Vec2{X: f.AccelerationX, Y: f.AccelerationY},
		AccelerationMagnitude: f.Acceleration,
		TimeDegenerate:        f.TimeDegenerate,
		DopamineHitScore:      f.DopamineHitScore,
		IsPeakMoment:          f.IsPeakMoment,
		AlignedBeat:           f.AlignedBeat,
		BeatAlignmentScore:    f.BeatAlignmentScore,
	}
}

// row formats f in Columns order. An absent beat is an empty cell.
func (f Frame) row() []string {
	beat := ""
	if f.AlignedBeat != nil {
		beat = formatFloat(*f.AlignedBeat)
	}
	return []string{
		strconv.Itoa(f.FrameIndex),
		formatFloat(f.Timestamp),
		formatFloat(f.PositionX),
		formatFloat(f.PositionY),
		formatFloat(f.VelocityX),
		formatFloat(f.VelocityY),
		formatFloat(f.Speed),
		formatFloat(f.AccelerationX),
		formatFloat(f.AccelerationY),
		formatFloat(f.Acceleration),
		formatFloat(f.MotionIntensity),
		formatFloat(f.DopamineHitScore),
		strconv.FormatBool(f.IsPeakMoment),
		beat,
		formatFloat(f.BeatAlignmentScore),
		formatFloat(f.OpticalFlowX),
		formatFloat(f.OpticalFlowY),
		formatFloat(f.OpticalFlowMagnitude),
		strconv.FormatBool(f.TimeDegenerate),
		strconv.Itoa(f.RegionCount),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
