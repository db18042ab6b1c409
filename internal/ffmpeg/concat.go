package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// ReelSegment is one cut clip in a reel. Label names it in the concat list
// and in errors, usually the clip ID.
type ReelSegment struct {
	Path  string
	Label string
}

// ConcatOptions defines how a reel is joined
type ConcatOptions struct {
	Segments []ReelSegment
	Output   string
	// ReEncode forces a re-encode. Without it segments are stream-copied
	// when their video streams match and re-encoded otherwise.
	ReEncode     bool
	CRF          int
	ProgressFunc ProgressFunc
}

// Concat joins segments into one reel in the given order.
func (e *Executor) Concat(ctx context.Context, opts ConcatOptions) error {
	if err := validateSegments(opts.Segments); err != nil {
		return err
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	reencode := opts.ReEncode
	if !reencode {
		infos := make([]*VideoInfo, len(opts.Segments))
		for i, seg := range opts.Segments {
			info, err := e.ProbeVideo(ctx, seg.Path)
			if err != nil {
				return fmt.Errorf("segment %s: %w", seg.Label, err)
			}
			infos[i] = info
		}
		if i, reason := mismatchedSegment(infos); i >= 0 {
			e.logger.Warn().
				Str("segment", opts.Segments[i].Label).
				Str("reason", reason).
				Msg("segments differ, re-encoding reel")
			reencode = true
		}
	}

	e.logger.Info().
		Int("segments", len(opts.Segments)).
		Str("output", opts.Output).
		Bool("reencode", reencode).
		Msg("joining reel")

	list, err := os.CreateTemp("", "motionbeat-reel-*.txt")
	if err != nil {
		return fmt.Errorf("failed to create concat list: %w", err)
	}
	defer os.Remove(list.Name())
	if err := writeConcatList(list, opts.Segments); err != nil {
		list.Close()
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	if err := list.Close(); err != nil {
		return err
	}

	args := []string{"-f", "concat", "-safe", "0", "-i", list.Name()}
	args = append(args, encodeArgs(reencode, "", "", opts.CRF)...)
	args = append(args, "-movflags", "+faststart", opts.Output)

	return e.Run(ctx, RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("joining reel")
		},
	})
}

func validateSegments(segments []ReelSegment) error {
	if len(segments) == 0 {
		return fmt.Errorf("reel has no segments")
	}
	seen := make(map[string]string, len(segments))
	for i, seg := range segments {
		if seg.Path == "" {
			return fmt.Errorf("segment %d (%s) has no path", i, seg.Label)
		}
		abs, err := filepath.Abs(seg.Path)
		if err != nil {
			return err
		}
		if prev, ok := seen[abs]; ok {
			return fmt.Errorf("segment %s repeats the file of segment %s", seg.Label, prev)
		}
		seen[abs] = seg.Label
	}
	return nil
}

// mismatchedSegment returns the index of the first segment whose video
// stream cannot be stream-copied after the first one, or -1.
func mismatchedSegment(infos []*VideoInfo) (int, string) {
	if len(infos) == 0 {
		return -1, ""
	}
	ref := infos[0]
	for i, info := range infos[1:] {
		switch {
		case info.VideoCodec != ref.VideoCodec:
			return i + 1, fmt.Sprintf("codec %s, want %s", info.VideoCodec, ref.VideoCodec)
		case info.Width != ref.Width || info.Height != ref.Height:
			return i + 1, fmt.Sprintf("size %dx%d, want %dx%d", info.Width, info.Height, ref.Width, ref.Height)
		case math.Abs(info.FPS-ref.FPS) > 0.01:
			return i + 1, fmt.Sprintf("frame rate %.3f, want %.3f", info.FPS, ref.FPS)
		case info.HasAudio != ref.HasAudio:
			return i + 1, "audio stream presence differs"
		}
	}
	return -1, ""
}

// writeConcatList writes the concat demuxer script. Single quotes in paths
// are escaped as '\''.
func writeConcatList(w io.Writer, segments []ReelSegment) error {
	if _, err := io.WriteString(w, "ffconcat version 1.0\n"); err != nil {
		return err
	}
	for _, seg := range segments {
		abs, err := filepath.Abs(seg.Path)
		if err != nil {
			return err
		}
		if seg.Label != "" {
			if _, err := fmt.Fprintf(w, "# %s\n", seg.Label); err != nil {
				return err
			}
		}
		quoted := strings.ReplaceAll(abs, "'", `'\''`)
		if _, err := fmt.Fprintf(w, "file '%s'\n", quoted); err != nil {
			return err
		}
	}
	return nil
}
