package clips

import (
	"sync"
	"testing"
	"time"
)

func newClip(id string, start, end float64, score float64) *Clip {
	return &Clip{
		ID:       id,
		Start:    Seconds(start),
		End:      Seconds(end),
		Duration: Seconds(end - start),
		Score:    score,
	}
}

func TestManagerOrdering(t *testing.T) {
	m := NewManager()
	m.Add(
		newClip("late", 10, 12, 0.5),
		newClip("early", 1, 3, 0.5),
		newClip("best", 5, 7, 0.9),
	)

	if m.Len() != 3 {
		t.Fatalf("expected 3 clips, got %d", m.Len())
	}
	if c := m.Get("best"); c == nil || c.Score != 0.9 {
		t.Errorf("Get(best) = %v", c)
	}
	if m.Get("missing") != nil {
		t.Error("Get should return nil for unknown IDs")
	}

	top := m.Top(2)
	if len(top) != 2 || top[0].ID != "best" || top[1].ID != "early" {
		t.Errorf("Top(2) = %v, %v; want best, early", top[0].ID, top[1].ID)
	}
	if all := m.Top(-1); len(all) != 3 {
		t.Errorf("Top(-1) returned %d clips", len(all))
	}

	chrono := m.Chronological()
	for i, want := range []string{"early", "best", "late"} {
		if chrono[i].ID != want {
			t.Errorf("Chronological()[%d] = %s, want %s", i, chrono[i].ID, want)
		}
	}

	// Reordering copies never touch insertion order.
	if m.All()[0].ID != "late" {
		t.Error("All() should keep insertion order")
	}
}

func TestClipContains(t *testing.T) {
	c := newClip("c", 1.5, 3, 0)
	if !c.Contains(1500*time.Millisecond) || !c.Contains(3*time.Second) {
		t.Error("clip bounds should be inclusive")
	}
	if c.Contains(time.Second) {
		t.Error("1s is before the clip")
	}
}

func TestManagerConcurrentAdd(t *testing.T) {
	m := NewManager()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.Add(newClip("c", 0, 1, 0))
				_ = m.Top(1)
			}
		}()
	}
	wg.Wait()
	if m.Len() != 400 {
		t.Errorf("expected 400 clips, got %d", m.Len())
	}
}
