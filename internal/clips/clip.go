package clips

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kikiluvv/motionbeat/internal/motion"
)

// Clip represents a video segment with metadata
type Clip struct {
	ID        string
	Start     time.Duration
	End       time.Duration
	Duration  time.Duration
	Score     float64
	SourceURL string

	// PeakFrame is the frame index of the strongest peak inside the clip.
	PeakFrame int
	// OnBeat is set when the clip start was snapped to an aligned beat.
	OnBeat bool
	Stats  Stats

	Metadata map[string]interface{}
}

// Stats summarizes the motion records covered by a clip.
type Stats struct {
	Frames      int     `json:"frames"`
	Peaks       int     `json:"peaks"`
	Energy      float64 `json:"energy"`       // mean hit score
	MaxScore    float64 `json:"max_score"`    // strongest hit score
	PeakRate    float64 `json:"peak_rate"`    // peaks per second
	BeatSync    float64 `json:"beat_sync"`    // mean alignment score of the peaks
	DurationFit float64 `json:"duration_fit"` // 1 at the preferred length
}

// Detector finds clips in an analyzed video
type Detector interface {
	Detect(ctx context.Context, table *motion.Table, source string) ([]*Clip, error)
}

// Seconds converts a table timestamp to a clip offset.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Contains reports whether t falls inside the clip.
func (c *Clip) Contains(t time.Duration) bool {
	return t >= c.Start && t <= c.End
}

// Manager handles clip operations
type Manager struct {
	mu    sync.RWMutex
	clips []*Clip
}

// NewManager creates a new clip manager
func NewManager() *Manager {
	return &Manager{
		clips: make([]*Clip, 0),
	}
}

// Add adds a clip to the manager
func (m *Manager) Add(clips ...*Clip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clips = append(m.clips, clips...)
}

// Get retrieves a clip by ID
func (m *Manager) Get(id string) *Clip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, clip := range m.clips {
		if clip.ID == id {
			return clip
		}
	}
	return nil
}

// All returns all clips in insertion order
func (m *Manager) All() []*Clip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Clip(nil), m.clips...)
}

// Len returns the number of clips
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clips)
}

// Top returns up to n clips by descending score. Equal scores keep the
// earlier clip first.
func (m *Manager) Top(n int) []*Clip {
	ranked := m.All()
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Start < ranked[j].Start
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Chronological returns all clips ordered by start time.
func (m *Manager) Chronological() []*Clip {
	ordered := m.All()
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start < ordered[j].Start
	})
	return ordered
}
