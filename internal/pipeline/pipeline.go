package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/motionbeat/internal/ffmpeg"
	"github.com/kikiluvv/motionbeat/internal/metrics"
	"github.com/kikiluvv/motionbeat/internal/motion"
	"github.com/kikiluvv/motionbeat/internal/video"
)

// Pipeline runs frame pairs through extraction, kinematics, peak scoring and
// beat alignment into a frozen motion table.
type Pipeline struct {
	logger    zerolog.Logger
	config    *Config
	motion    motion.Config
	extractor *motion.Extractor
	ffmpeg    *ffmpeg.Executor
	metrics   *metrics.PipelineMetrics
}

// New validates every analysis option before any frame is read.
func New(logger zerolog.Logger, cfg *Config, motionCfg motion.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}

	if err := motionCfg.Validate(); err != nil {
		return nil, err
	}
	extractor, err := motion.NewExtractor(motionCfg.Extractor)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		logger:    logger.With().Str("component", "pipeline").Logger(),
		config:    cfg,
		motion:    motionCfg,
		extractor: extractor,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Analyze decodes a video file with ffmpeg and runs it through the pipeline.
func (p *Pipeline) Analyze(ctx context.Context, input string, opts AnalyzeOptions) (*Result, error) {
	if input == "" {
		return nil, fmt.Errorf("input path cannot be empty")
	}
	if p.ffmpeg == nil {
		return nil, fmt.Errorf("no ffmpeg executor configured")
	}

	p.logger.Info().
		Str("input", input).
		Int("beats", len(opts.Beats)).
		Msg("starting analysis")

	started := time.Now()
	stream, err := p.ffmpeg.OpenFrames(ctx, input, ffmpeg.DecodeOptions{
		Width:  opts.Width,
		Height: opts.Height,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}
	defer stream.Close()

	table, err := p.Run(ctx, stream, opts.Beats)
	if err != nil {
		return nil, err
	}

	return &Result{
		RunID:     uuid.NewString(),
		Input:     input,
		Info:      stream.Info(),
		Video:     stream.VideoInfo(),
		Table:     table,
		StartedAt: started,
		Elapsed:   time.Since(started),
	}, nil
}

// Run consumes src to the end and returns the frozen table. Decode failures
// truncate the table; only cancellation and invalid input return an error.
func (p *Pipeline) Run(ctx context.Context, src video.Source, beats []float64) (table *motion.Table, err error) {
	info := src.Info()
	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("invalid source: %w", err)
	}
	aligner, err := motion.NewBeatAligner(beats, p.motion.Beat)
	if err != nil {
		return nil, err
	}
	scorer, err := motion.NewPeakScorer(p.motion.Peak)
	if err != nil {
		return nil, err
	}
	if aligner.Empty() {
		p.logger.Warn().Msg("empty beat list, beat alignment scores default to 0")
	}

	started := time.Now()
	p.metrics.RunStarted()
	defer func() {
		p.metrics.RunFinished(time.Since(started), table != nil && table.Truncated(), err)
	}()

	p.logger.Debug().
		Int("width", info.Width).
		Int("height", info.Height).
		Float64("fps", info.FPS).
		Int("declared_frames", info.DeclaredFrames).
		Int("workers", p.config.Workers).
		Msg("pipeline started")

	reader := video.NewPairReader(src)
	out := motion.NewTable()
	if err := p.runStages(ctx, reader, info.FPS, scorer, aligner, out); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			p.logger.Warn().Err(err).Int("records", out.Len()).Msg("analysis cancelled")
		}
		return nil, err
	}

	stats := reader.Stats()
	diag := motion.Diagnostics{
		Truncated:      stats.Truncated,
		DecodedFrames:  stats.Decoded,
		DeclaredFrames: stats.Declared,
		BeatsSupplied:  aligner.Len(),
	}
	if stats.Cause != nil {
		diag.Cause = stats.Cause.Error()
	}
	if err := out.Freeze(diag); err != nil {
		return nil, err
	}

	final := out.Diagnostics()
	if final.Truncated {
		p.logger.Warn().
			Int("decoded", final.DecodedFrames).
			Int("declared", final.DeclaredFrames).
			Str("cause", final.Cause).
			Msg("frame source ended early, table truncated")
	}
	if final.Degenerate > 0 {
		p.logger.Warn().Int("records", final.Degenerate).Msg("degenerate timestamps, kinematics held")
	}

	p.logger.Info().
		Int("records", out.Len()).
		Int("peaks", len(out.Peaks())).
		Bool("truncated", final.Truncated).
		Dur("elapsed", time.Since(started)).
		Msg("pipeline complete")

	return out, nil
}
