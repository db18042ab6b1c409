package motion

// PeakScorer computes the dopamine hit score and flags peak moments over a
// symmetric window of Window/2 frames on each side. A record is released
// once Window/2 later records have arrived, so output lags input by that
// many records until Flush.
type PeakScorer struct {
	cfg     PeakConfig
	half    int
	window  *ring[MotionRecord]
	pending int
}

// NewPeakScorer validates cfg.
func NewPeakScorer(cfg PeakConfig) (*PeakScorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	half := cfg.Window / 2
	return &PeakScorer{
		cfg:    cfg,
		half:   half,
		window: newRing[MotionRecord](2*half + 1),
	}, nil
}

// Latency is the number of records held back before a decision is final.
func (p *PeakScorer) Latency() int {
	return p.half
}

// Score returns the weighted, clipped composite of the normalized signals.
func (p *PeakScorer) Score(rec MotionRecord) float64 {
	c, w := p.cfg.Ceilings, p.cfg.Weights
	s := w.Intensity*normalize(rec.MotionIntensity, c.Intensity) +
		w.Speed*normalize(rec.Speed, c.Speed) +
		w.Acceleration*normalize(rec.AccelerationMagnitude, c.Acceleration) +
		w.Flow*normalize(rec.OpticalFlow.Magnitude, c.Flow)
	return clamp01(s)
}

// Push scores rec and returns the record whose window just completed, if any.
func (p *PeakScorer) Push(rec MotionRecord) (MotionRecord, bool) {
	rec.DopamineHitScore = p.Score(rec)
	rec.IsPeakMoment = false
	p.window.push(rec)
	p.pending++

	if p.pending <= p.half {
		return MotionRecord{}, false
	}
	return p.release(), true
}

// Flush releases every buffered record, judging each against the records
// that remain after it, and resets the scorer for a new stream.
func (p *PeakScorer) Flush() []MotionRecord {
	out := make([]MotionRecord, 0, p.pending)
	for p.pending > 0 {
		out = append(out, p.release())
	}
	p.window.reset()
	return out
}

// release decides the oldest pending record.
func (p *PeakScorer) release() MotionRecord {
	last := p.window.len() - 1
	pos := p.window.len() - p.pending
	lo := max(0, pos-p.half)
	hi := min(last, pos+p.half)

	rec := p.window.at(pos)
	rec.IsPeakMoment = p.isPeak(pos, lo, hi)
	p.pending--
	return rec
}

// isPeak requires the score to exceed the threshold, stay strictly above
// every earlier score in the window and at least equal every later one,
// so the earliest of tied maxima wins.
func (p *PeakScorer) isPeak(pos, lo, hi int) bool {
	s := p.window.at(pos).DopamineHitScore
	if s <= p.cfg.Threshold {
		return false
	}
	for j := lo; j <= hi; j++ {
		other := p.window.at(j).DopamineHitScore
		switch {
		case j < pos && other >= s:
			return false
		case j > pos && other > s:
			return false
		}
	}
	return true
}

func normalize(v, ceiling float64) float64 {
	return clamp01(v / ceiling)
}

func clamp01(v float64) float64 {
	switch {
	case v != v || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
