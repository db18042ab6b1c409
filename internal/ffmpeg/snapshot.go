package ffmpeg

import (
	"context"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"time"

	"github.com/kikiluvv/motionbeat/pkg/util"
)

// GenerateThumbnail writes the frame at timestamp to output. The image
// format follows the output extension.
func (e *Executor) GenerateThumbnail(ctx context.Context, input, output string, timestamp time.Duration, progressFunc ProgressFunc) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Debug().
		Str("input", input).
		Str("output", output).
		Dur("timestamp", timestamp).
		Msg("generating thumbnail")

	args := []string{
		"-ss", util.FormatDuration(timestamp),
		"-i", input,
		"-frames:v", "1",
		"-an",
	}
	if util.GetExtension(output) == ".jpg" || util.GetExtension(output) == ".jpeg" {
		args = append(args, "-q:v", "2")
	}
	args = append(args, output)

	opts := RunOptions{
		Args:            args,
		ProgressHandler: progressFunc,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("thumbnail generation")
		},
	}

	if err := e.Run(ctx, opts); err != nil {
		return fmt.Errorf("thumbnail at %s failed: %w", util.FormatDuration(timestamp), err)
	}
	return nil
}

// Snapshot decodes the frame at timestamp into memory.
func (e *Executor) Snapshot(ctx context.Context, input string, timestamp time.Duration) (image.Image, error) {
	tmp, err := util.TempFile("", "motionbeat-snapshot-", ".png")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer util.CleanupFiles(path)

	if err := e.GenerateThumbnail(ctx, input, path, timestamp, nil); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return img, nil
}
