package pipeline

import (
	"runtime"
	"time"

	"github.com/kikiluvv/motionbeat/internal/ffmpeg"
	"github.com/kikiluvv/motionbeat/internal/metrics"
	"github.com/kikiluvv/motionbeat/internal/motion"
	"github.com/kikiluvv/motionbeat/internal/video"
)

// Config holds pipeline-specific configuration
type Config struct {
	Workers   int `yaml:"workers" mapstructure:"workers"`       // extraction goroutines
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size"` // capacity of each channel between stages
}

// DefaultConfig sizes the worker pool to the machine.
func DefaultConfig() *Config {
	return &Config{
		Workers:   runtime.NumCPU(),
		QueueSize: 64,
	}
}

// AnalyzeOptions configures analysis of a video file
type AnalyzeOptions struct {
	Beats []float64

	// Width and Height rescale frames before analysis; zero keeps the source size.
	Width  int
	Height int
}

// Result is the outcome of analyzing one video file
type Result struct {
	RunID     string
	Input     string
	Info      video.Info
	Video     *ffmpeg.VideoInfo
	Table     *motion.Table
	StartedAt time.Time
	Elapsed   time.Duration
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithFFmpeg enables Analyze on video files.
func WithFFmpeg(exec *ffmpeg.Executor) Option {
	return func(p *Pipeline) { p.ffmpeg = exec }
}

// WithMetrics records run and stage metrics.
func WithMetrics(m *metrics.PipelineMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}
