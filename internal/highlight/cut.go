package highlight

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/motionbeat/internal/clips"
	"github.com/kikiluvv/motionbeat/internal/ffmpeg"
	"github.com/kikiluvv/motionbeat/pkg/util"
)

// Cutter writes selected clips to disk and joins them into a reel
type Cutter struct {
	logger zerolog.Logger
	ffmpeg *ffmpeg.Executor
	crf    int
}

// NewCutter creates a cutter. A zero crf uses the encoder default.
func NewCutter(logger zerolog.Logger, exec *ffmpeg.Executor, crf int) *Cutter {
	return &Cutter{
		logger: logger.With().Str("component", "cutter").Logger(),
		ffmpeg: exec,
		crf:    crf,
	}
}

// Export re-encodes each clip from source into dir and returns the output
// paths in the order of cs.
func (c *Cutter) Export(ctx context.Context, source string, cs []*clips.Clip, dir string) ([]string, error) {
	if err := util.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(source), util.GetExtension(source))
	paths := make([]string, 0, len(cs))
	for i, clip := range cs {
		out := filepath.Join(dir, fmt.Sprintf("%s_%02d_%s.mp4", base, i+1, clip.ID))
		err := c.ffmpeg.ExtractClip(ctx, source, ffmpeg.ClipOptions{
			Start:  clip.Start,
			End:    clip.End,
			Output: out,
			CRF:    c.crf,
			ProgressFunc: func(p *ffmpeg.Progress) {
				c.logger.Debug().
					Str("clip", clip.ID).
					Int("frame", p.Frame).
					Str("time", p.Time).
					Str("speed", p.Speed).
					Msg("encoding")
			},
		})
		if err != nil {
			return paths, fmt.Errorf("clip %s: %w", clip.ID, err)
		}
		paths = append(paths, out)
	}

	c.logger.Info().Int("clips", len(paths)).Str("dir", dir).Msg("clips exported")
	return paths, nil
}

// Reel joins exported clips into output. paths[i] must hold cs[i], as
// returned by Export.
func (c *Cutter) Reel(ctx context.Context, cs []*clips.Clip, paths []string, output string) error {
	if len(cs) != len(paths) {
		return fmt.Errorf("reel has %d clips but %d files", len(cs), len(paths))
	}
	if err := util.EnsureDir(filepath.Dir(output)); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	segments := make([]ffmpeg.ReelSegment, len(cs))
	for i, clip := range cs {
		segments[i] = ffmpeg.ReelSegment{Path: paths[i], Label: clip.ID}
	}
	return c.ffmpeg.Concat(ctx, ffmpeg.ConcatOptions{
		Segments: segments,
		Output:   output,
		CRF:      c.crf,
	})
}
