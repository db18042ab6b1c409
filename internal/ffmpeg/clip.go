package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/kikiluvv/motionbeat/pkg/util"
)

// ClipOptions defines clip extraction parameters
type ClipOptions struct {
	Start        time.Duration
	End          time.Duration
	Output       string
	CopyCodec    bool // stream copy; cuts snap to keyframes
	VideoCodec   string
	AudioCodec   string
	CRF          int // Quality (0-51, lower = better)
	ProgressFunc ProgressFunc
}

// ExtractClip cuts [Start, End) from input. Re-encoding is the default so
// cuts land on the requested beat rather than the nearest keyframe.
func (e *Executor) ExtractClip(ctx context.Context, input string, opts ClipOptions) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if opts.Start < 0 {
		return fmt.Errorf("invalid clip start %s", opts.Start)
	}
	duration := opts.End - opts.Start
	if duration <= 0 {
		return fmt.Errorf("invalid clip duration: end must be after start")
	}

	e.logger.Info().
		Str("input", input).
		Str("output", opts.Output).
		Dur("start", opts.Start).
		Dur("duration", duration).
		Bool("copy_codec", opts.CopyCodec).
		Msg("extracting clip")

	args := []string{
		"-ss", util.FormatDuration(opts.Start),
		"-i", input,
		"-t", util.FormatDuration(duration),
	}
	args = append(args, encodeArgs(!opts.CopyCodec, opts.VideoCodec, opts.AudioCodec, opts.CRF)...)
	args = append(args, "-avoid_negative_ts", "make_zero", opts.Output)

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("clip extraction")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("clip extraction failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("clip extraction complete")
	return nil
}

// encodeArgs returns codec arguments, falling back to the package defaults.
func encodeArgs(reencode bool, videoCodec, audioCodec string, crf int) []string {
	if !reencode {
		return []string{"-c", "copy"}
	}
	if videoCodec == "" {
		videoCodec = DefaultVideoCodec
	}
	if audioCodec == "" {
		audioCodec = DefaultAudioCodec
	}
	if crf == 0 {
		crf = DefaultCRF
	}
	return []string{"-c:v", videoCodec, "-c:a", audioCodec, "-crf", fmt.Sprintf("%d", crf)}
}
