package motion

import (
	"fmt"
	"iter"
	"sync"
)

// Diagnostics describes how the source stream ended.
type Diagnostics struct {
	Truncated      bool
	DecodedFrames  int
	DeclaredFrames int
	Degenerate     int    // records flagged TimeDegenerate
	BeatsSupplied  int    // zero means every alignment score is 0
	Cause          string // why decoding stopped early, if it did
}

// Table is the append-only, ordered collection of finished records. It
// becomes read-only after Freeze.
type Table struct {
	mu      sync.RWMutex
	records []MotionRecord
	frozen  bool
	diag    Diagnostics
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Append adds the next record. Frame indices must increase by exactly one.
func (t *Table) Append(rec MotionRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return ErrTableFrozen
	}
	if n := len(t.records); n > 0 {
		last := t.records[n-1]
		if rec.FrameIndex != last.FrameIndex+1 {
			return fmt.Errorf("%w: frame %d after %d", ErrOutOfOrder, rec.FrameIndex, last.FrameIndex)
		}
		if rec.Timestamp < last.Timestamp {
			return fmt.Errorf("%w: timestamp %g after %g", ErrOutOfOrder, rec.Timestamp, last.Timestamp)
		}
	}
	t.records = append(t.records, rec)
	if rec.TimeDegenerate {
		t.diag.Degenerate++
	}
	return nil
}

// Freeze makes the table read-only and records the stream diagnostics.
// Freezing twice is an error.
func (t *Table) Freeze(d Diagnostics) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return ErrTableFrozen
	}
	d.Degenerate = t.diag.Degenerate
	t.diag = d
	t.frozen = true
	return nil
}

// Frozen reports whether the stream has ended.
func (t *Table) Frozen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frozen
}

// Diagnostics returns the stream summary.
func (t *Table) Diagnostics() Diagnostics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.diag
}

// Truncated reports whether decoding stopped early.
func (t *Table) Truncated() bool {
	return t.Diagnostics().Truncated
}

// Len returns the number of appended records.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// At returns the i-th record in order.
func (t *Table) At(i int) MotionRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.records[i]
}

// Get looks a record up by frame index.
func (t *Table) Get(frameIndex int) (MotionRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.records) == 0 {
		return MotionRecord{}, false
	}
	i := frameIndex - t.records[0].FrameIndex
	if i < 0 || i >= len(t.records) {
		return MotionRecord{}, false
	}
	return t.records[i], true
}

// All iterates records in frame order over a snapshot.
func (t *Table) All() iter.Seq[MotionRecord] {
	records := t.Records()
	return func(yield func(MotionRecord) bool) {
		for _, r := range records {
			if !yield(r) {
				return
			}
		}
	}
}

// Records returns a copy of all records.
func (t *Table) Records() []MotionRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]MotionRecord(nil), t.records...)
}

// Peaks returns the records flagged as peak moments.
func (t *Table) Peaks() []MotionRecord {
	var peaks []MotionRecord
	for r := range t.All() {
		if r.IsPeakMoment {
			peaks = append(peaks, r)
		}
	}
	return peaks
}

// Span returns the first and last timestamps.
func (t *Table) Span() (start, end float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.records) == 0 {
		return 0, 0
	}
	return t.records[0].Timestamp, t.records[len(t.records)-1].Timestamp
}
