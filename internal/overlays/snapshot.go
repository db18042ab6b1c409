package overlays

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/motionbeat/internal/clips"
	"github.com/kikiluvv/motionbeat/internal/motion"
	"github.com/kikiluvv/motionbeat/pkg/util"
)

// FrameGrabber returns the source frame at a timestamp
type FrameGrabber interface {
	Snapshot(ctx context.Context, input string, timestamp time.Duration) (image.Image, error)
}

// SnapshotWriter saves an annotated still for every peak moment
type SnapshotWriter struct {
	logger    zerolog.Logger
	grabber   FrameGrabber
	annotator *Annotator
}

// NewSnapshotWriter creates a snapshot writer
func NewSnapshotWriter(logger zerolog.Logger, grabber FrameGrabber, annotator *Annotator) *SnapshotWriter {
	return &SnapshotWriter{
		logger:    logger.With().Str("component", "snapshots").Logger(),
		grabber:   grabber,
		annotator: annotator,
	}
}

// WritePeaks writes peak_<frame>.png into dir for each peak in table and
// returns the written paths. analysis is the frame size the table was
// computed at.
func (w *SnapshotWriter) WritePeaks(ctx context.Context, source string, table *motion.Table, analysis image.Point, dir string) ([]string, error) {
	if err := util.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	var paths []string
	for _, rec := range table.Peaks() {
		img, err := w.grabber.Snapshot(ctx, source, clips.Seconds(rec.Timestamp))
		if err != nil {
			return paths, fmt.Errorf("snapshot of frame %d: %w", rec.FrameIndex, err)
		}

		path := filepath.Join(dir, fmt.Sprintf("peak_%06d.png", rec.FrameIndex))
		if err := writePNG(path, w.annotator.Annotate(img, rec, analysis)); err != nil {
			return paths, err
		}
		paths = append(paths, path)

		w.logger.Debug().
			Int("frame_index", rec.FrameIndex).
			Float64("score", rec.DopamineHitScore).
			Str("path", path).
			Msg("wrote peak snapshot")
	}

	w.logger.Info().Int("snapshots", len(paths)).Str("dir", dir).Msg("peak snapshots written")
	return paths, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
