package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kikiluvv/motionbeat/internal/motion"
	"github.com/kikiluvv/motionbeat/internal/video"
)

// runStages connects decode, extract, kinematics, peaks and align with
// bounded channels. Closing a channel is the end-of-stream signal.
func (p *Pipeline) runStages(ctx context.Context, reader *video.PairReader, fps float64,
	scorer *motion.PeakScorer, aligner *motion.BeatAligner, table *motion.Table) error {

	q := p.config.QueueSize
	pairs := make(chan video.Pair, q)
	samples := make(chan motion.MotionSample, q)
	tracked := make(chan motion.MotionRecord, q)
	scored := make(chan motion.MotionRecord, q)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(pairs)
		for {
			pair, err := reader.Next(ctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := send(ctx, pairs, pair); err != nil {
				return err
			}
		}
	})

	g.Go(func() error {
		return p.extract(ctx, pairs, samples, fps)
	})

	g.Go(func() error {
		defer close(tracked)
		tracker := motion.NewKinematicsTracker(motion.DegenerateEpsilon)
		for s := range samples {
			start := time.Now()
			rec := tracker.Update(s)
			p.metrics.RecordStage("kinematics", time.Since(start))
			if err := send(ctx, tracked, rec); err != nil {
				return err
			}
		}
		return nil
	})

	g.Go(func() error {
		defer close(scored)
		for rec := range tracked {
			start := time.Now()
			done, ok := scorer.Push(rec)
			p.metrics.RecordStage("peaks", time.Since(start))
			if !ok {
				continue
			}
			if err := send(ctx, scored, done); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, rec := range scorer.Flush() {
			if err := send(ctx, scored, rec); err != nil {
				return err
			}
		}
		return nil
	})

	g.Go(func() error {
		for rec := range scored {
			start := time.Now()
			rec = aligner.Align(rec)
			if err := table.Append(rec); err != nil {
				return fmt.Errorf("append frame %d: %w", rec.FrameIndex, err)
			}
			p.metrics.RecordStage("align", time.Since(start))
			p.metrics.RecordFrame(rec.IsPeakMoment, rec.TimeDegenerate)
		}
		return ctx.Err()
	})

	return g.Wait()
}

type extraction struct {
	index  int
	sample motion.MotionSample
	err    error
}

// extract fans pairs out to the worker pool and emits samples in dispatch
// order by queueing one result channel per pair.
func (p *Pipeline) extract(ctx context.Context, in <-chan video.Pair, out chan<- motion.MotionSample, fps float64) error {
	defer close(out)

	type job struct {
		pair   video.Pair
		result chan extraction
	}
	jobs := make(chan job, p.config.Workers)
	pending := make(chan chan extraction, p.config.QueueSize)

	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < p.config.Workers; i++ {
		g.Go(func() error {
			for j := range jobs {
				start := time.Now()
				s, err := p.extractor.Extract(j.pair.Prev, j.pair.Cur, j.pair.Index, fps)
				p.metrics.RecordStage("extract", time.Since(start))
				j.result <- extraction{index: j.pair.Index, sample: s, err: err}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)
		defer close(pending)
		for {
			var pair video.Pair
			select {
			case next, ok := <-in:
				if !ok {
					return nil
				}
				pair = next
			case <-ctx.Done():
				return ctx.Err()
			}

			result := make(chan extraction, 1)
			if err := send(ctx, pending, result); err != nil {
				return err
			}
			if err := send(ctx, jobs, job{pair: pair, result: result}); err != nil {
				return err
			}
		}
	})

	g.Go(func() error {
		for result := range pending {
			var r extraction
			select {
			case r = <-result:
			case <-ctx.Done():
				return ctx.Err()
			}
			if r.err != nil {
				return fmt.Errorf("extract frame %d: %w", r.index, r.err)
			}
			if err := send(ctx, out, r.sample); err != nil {
				return err
			}
		}
		return nil
	})

	return g.Wait()
}

func send[T any](ctx context.Context, ch chan<- T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
