package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/motionbeat/internal/video"
)

// DecodeOptions controls the rawvideo decode used for analysis
type DecodeOptions struct {
	// Width and Height bound the decoded frame size. Aspect ratio is kept and
	// the result rounded to even dimensions. Zero keeps the source size.
	Width  int
	Height int
	// FPS resamples the stream when positive.
	FPS float64
}

// FrameStream is a running ffmpeg process decoding one video to rgb24
// frames. It implements video.Source.
type FrameStream struct {
	logger zerolog.Logger
	info   video.Info
	probe  *VideoInfo
	cmd    *exec.Cmd
	cancel context.CancelFunc
	raw    *video.RawReader

	stderrDone chan struct{}
	lastLine   string

	waitOnce sync.Once
	waitErr  error
}

// OpenFrames probes input and starts decoding it. The caller must Close the
// returned stream.
func (e *Executor) OpenFrames(ctx context.Context, input string, opts DecodeOptions) (*FrameStream, error) {
	if input == "" {
		return nil, fmt.Errorf("input path is required")
	}

	probe, err := e.ProbeVideo(ctx, input)
	if err != nil {
		return nil, err
	}

	width, height := fitSize(probe.Width, probe.Height, opts.Width, opts.Height)
	fps := probe.FPS
	declared := probe.FrameCount
	estimated := probe.FrameCountEstimated
	if opts.FPS > 0 && probe.FPS > 0 {
		declared = int(float64(declared) * opts.FPS / probe.FPS)
		fps = opts.FPS
		estimated = declared > 0
	}

	filters := NewFilterBuilder()
	if width != probe.Width || height != probe.Height {
		filters.Scale(width, height)
	}
	if opts.FPS > 0 {
		filters.FPS(opts.FPS)
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if e.threads > 0 {
		args = append(args, "-threads", strconv.Itoa(e.threads))
	}
	args = append(args, "-i", input, "-map", "0:v:0", "-an")
	if vf := filters.Build(); vf != "" {
		args = append(args, "-vf", vf)
	}
	args = append(args, "-f", "rawvideo", "-pix_fmt", "rgb24", "pipe:1")

	info := video.Info{
		Width:          width,
		Height:         height,
		FPS:            fps,
		DeclaredFrames: declared,
		Estimated:      estimated,
	}
	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("unsupported video %s: %w", input, err)
	}

	e.logger.Debug().
		Strs("args", args).
		Int("width", width).
		Int("height", height).
		Int("declared_frames", declared).
		Bool("estimated", estimated).
		Msg("starting frame decode")

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, e.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	raw, err := video.NewRawReader(stdout, info)
	if err != nil {
		cancel()
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	fs := &FrameStream{
		logger:     e.logger,
		info:       info,
		probe:      probe,
		cmd:        cmd,
		cancel:     cancel,
		raw:        raw,
		stderrDone: make(chan struct{}),
	}
	go fs.drainStderr(stderr)

	return fs, nil
}

func (fs *FrameStream) drainStderr(r io.Reader) {
	defer close(fs.stderrDone)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		fs.lastLine = line
		fs.logger.Debug().Str("ffmpeg", line).Msg("decode")
	}
}

// Info returns the decoded frame geometry and declared frame count.
func (fs *FrameStream) Info() video.Info { return fs.info }

// VideoInfo returns the probe result for the input file.
func (fs *FrameStream) VideoInfo() *VideoInfo { return fs.probe }

// Next returns the next decoded frame. At the end of the stream it reports
// io.EOF when ffmpeg exited cleanly and the process error otherwise.
func (fs *FrameStream) Next(ctx context.Context) (*video.Frame, error) {
	f, err := fs.raw.Next(ctx)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, io.EOF) {
		return nil, err
	}
	if werr := fs.wait(); werr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, werr
	}
	return nil, io.EOF
}

// Close stops ffmpeg and releases the pipes.
func (fs *FrameStream) Close() error {
	fs.cancel()
	err := fs.wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// killed by cancel
		return nil
	}
	return err
}

func (fs *FrameStream) wait() error {
	fs.waitOnce.Do(func() {
		<-fs.stderrDone
		if err := fs.cmd.Wait(); err != nil {
			if fs.lastLine != "" {
				fs.waitErr = fmt.Errorf("ffmpeg decode failed: %w: %s", err, fs.lastLine)
			} else {
				fs.waitErr = fmt.Errorf("ffmpeg decode failed: %w", err)
			}
		}
	})
	return fs.waitErr
}

// fitSize scales srcW x srcH down to fit maxW x maxH, keeping aspect ratio
// and even dimensions. A zero bound is unconstrained.
func fitSize(srcW, srcH, maxW, maxH int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return srcW, srcH
	}
	scale := 1.0
	if maxW > 0 && srcW > maxW {
		scale = float64(maxW) / float64(srcW)
	}
	if maxH > 0 && float64(srcH)*scale > float64(maxH) {
		scale = float64(maxH) / float64(srcH)
	}
	if scale >= 1 {
		return srcW, srcH
	}
	w := int(float64(srcW)*scale) &^ 1
	h := int(float64(srcH)*scale) &^ 1
	return max(w, 2), max(h, 2)
}
