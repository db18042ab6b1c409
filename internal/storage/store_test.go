package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/motionbeat/internal/motion"
	"github.com/kikiluvv/motionbeat/internal/video"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(zerolog.Nop(), filepath.Join(t.TempDir(), "runs", "motionbeat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTable(t *testing.T, n int, truncated bool) *motion.Table {
	t.Helper()
	tbl := motion.NewTable()
	beat := 0.5
	for i := 1; i <= n; i++ {
		r := motion.MotionRecord{
			MotionSample: motion.MotionSample{
				FrameIndex:      i,
				Timestamp:       float64(i) / 25,
				Position:        motion.Vec2{X: float64(i), Y: 2},
				MotionIntensity: 1.5,
				OpticalFlow:     motion.Flow{X: 0.1, Y: 0.2, Magnitude: 0.3},
				RegionCount:     2,
			},
			Speed:            25,
			DopamineHitScore: 0.3,
		}
		if i == 3 {
			r.IsPeakMoment = true
			r.DopamineHitScore = 0.9
			r.AlignedBeat = &beat
			r.BeatAlignmentScore = 0.4
		}
		require.NoError(t, tbl.Append(r))
	}
	require.NoError(t, tbl.Freeze(motion.Diagnostics{
		Truncated:      truncated,
		DecodedFrames:  n + 1,
		DeclaredFrames: 20,
		BeatsSupplied:  4,
		Cause:          "unexpected EOF",
	}))
	return tbl
}

func TestOpenMigrates(t *testing.T) {
	s := openTestStore(t)

	version, dirty, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, s.Migrate())
}

func TestSaveAndLoadRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tbl := sampleTable(t, 5, true)

	settings := motion.DefaultConfig()
	settings.Peak.Window = 7
	id, err := s.SaveRun(ctx, Run{
		Input:    "dance.mp4",
		Info:     video.Info{Width: 320, Height: 240, FPS: 25, DeclaredFrames: 20},
		Settings: settings,
	}, tbl)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	run, loaded, err := s.LoadRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "dance.mp4", run.Input)
	assert.Equal(t, 1, run.Peaks)
	assert.Equal(t, 7, run.Settings.Peak.Window)
	assert.WithinDuration(t, time.Now(), run.CreatedAt, time.Minute)

	assert.True(t, loaded.Frozen())
	assert.Equal(t, tbl.Diagnostics(), loaded.Diagnostics())
	if diff := cmp.Diff(tbl.Records(), loaded.Records()); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestListResolveDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ids := []string{
		"aaaa1111-0000-0000-0000-000000000000",
		"aaaa2222-0000-0000-0000-000000000000",
		"bbbb3333-0000-0000-0000-000000000000",
	}
	for i, id := range ids {
		_, err := s.SaveRun(ctx, Run{
			ID:        id,
			Input:     "clip.mp4",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Info:      video.Info{Width: 8, Height: 8, FPS: 25},
		}, sampleTable(t, 3, false))
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID, "newest first")

	runs, err = s.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	id, err := s.ResolveID(ctx, "bbbb")
	require.NoError(t, err)
	assert.Equal(t, ids[2], id)

	_, err = s.ResolveID(ctx, "aaaa")
	assert.ErrorIs(t, err, ErrAmbiguousRun)
	_, err = s.ResolveID(ctx, "zz")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = s.ResolveID(ctx, "%")
	assert.ErrorIs(t, err, ErrRunNotFound)

	require.NoError(t, s.DeleteRun(ctx, ids[0]))
	_, _, err = s.LoadRun(ctx, ids[0])
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, s.DeleteRun(ctx, ids[0]), ErrRunNotFound)

	var orphans int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM motion_records WHERE run_id = ?`, ids[0]).Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestSaveRunRejectsDuplicateID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	run := Run{ID: "dup", Input: "a.mp4", Info: video.Info{Width: 8, Height: 8, FPS: 25}}

	_, err := s.SaveRun(ctx, run, sampleTable(t, 2, false))
	require.NoError(t, err)
	_, err = s.SaveRun(ctx, run, sampleTable(t, 2, false))
	assert.Error(t, err)

	_, loaded, err := s.LoadRun(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
}
