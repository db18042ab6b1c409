package video

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/smallnest/ringbuffer"
)

const rawChunkSize = 64 * 1024

// RawReader slices an rgb24 rawvideo byte stream into frames.
type RawReader struct {
	r         io.Reader
	info      Info
	frameSize int
	ring      *ringbuffer.RingBuffer
	chunk     []byte
	next      int
	eof       bool
}

// NewRawReader reads frames of info's dimensions from r.
func NewRawReader(r io.Reader, info Info) (*RawReader, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	frameSize := info.FrameSize()
	return &RawReader{
		r:         r,
		info:      info,
		frameSize: frameSize,
		ring:      ringbuffer.New(2*frameSize + rawChunkSize),
		chunk:     make([]byte, rawChunkSize),
	}, nil
}

// Info returns the frame geometry the reader slices by.
func (rr *RawReader) Info() Info { return rr.info }

// Next blocks until a full frame is buffered.
func (rr *RawReader) Next(ctx context.Context) (*Frame, error) {
	for rr.ring.Length() < rr.frameSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if rr.eof {
			if rr.ring.Length() > 0 {
				return nil, fmt.Errorf("%w: %d of %d bytes", ErrPartialFrame, rr.ring.Length(), rr.frameSize)
			}
			return nil, io.EOF
		}
		if err := rr.fill(); err != nil {
			return nil, err
		}
	}

	f := NewFrame(rr.next, rr.info.Width, rr.info.Height)
	if _, err := io.ReadFull(rr.ring, f.Pix); err != nil {
		return nil, fmt.Errorf("read frame %d: %w", rr.next, err)
	}
	rr.next++
	return f, nil
}

func (rr *RawReader) fill() error {
	n := min(len(rr.chunk), rr.ring.Free())
	k, err := rr.r.Read(rr.chunk[:n])
	if k > 0 {
		if _, werr := rr.ring.Write(rr.chunk[:k]); werr != nil {
			if errors.Is(werr, ringbuffer.ErrIsFull) {
				return fmt.Errorf("frame buffer overflow: %w", werr)
			}
			return werr
		}
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			rr.eof = true
			return nil
		}
		return err
	}
	return nil
}
