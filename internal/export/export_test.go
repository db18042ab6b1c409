package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/motionbeat/internal/motion"
	"github.com/kikiluvv/motionbeat/internal/video"
)

func testTable(t *testing.T, truncated bool) *motion.Table {
	t.Helper()
	tbl := motion.NewTable()
	beat := 0.1
	for i := 1; i <= 3; i++ {
		r := motion.MotionRecord{
			MotionSample: motion.MotionSample{
				FrameIndex:      i,
				Timestamp:       float64(i) / 10,
				Position:        motion.Vec2{X: 10 * float64(i), Y: 5},
				MotionIntensity: 2.5 * float64(i),
				OpticalFlow:     motion.Flow{X: 0.5, Y: -0.25, Magnitude: 0.75},
				RegionCount:     i,
			},
			Velocity:         motion.Vec2{X: 100, Y: 0},
			Speed:            100,
			DopamineHitScore: 0.2 * float64(i),
			TimeDegenerate:   i == 1,
		}
		if i == 2 {
			r.IsPeakMoment = true
			r.AlignedBeat = &beat
			r.BeatAlignmentScore = 0.8
		}
		require.NoError(t, tbl.Append(r))
	}
	require.NoError(t, tbl.Freeze(motion.Diagnostics{
		Truncated:      truncated,
		DecodedFrames:  4,
		DeclaredFrames: 10,
	}))
	return tbl
}

var testInfo = video.Info{Width: 64, Height: 48, FPS: 10, DeclaredFrames: 10}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testTable(t, false)))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "frame_index", rows[0][0])
	assert.Equal(t, "optical_flow_magnitude", rows[0][17])

	first := rows[1]
	assert.Equal(t, "1", first[0])
	assert.Equal(t, "0.1", first[1])
	assert.Equal(t, "false", first[12])
	assert.Equal(t, "", first[13], "absent beat is an empty cell")
	assert.Equal(t, "0", first[14])
	assert.Equal(t, "true", first[18])

	peak := rows[2]
	assert.Equal(t, "true", peak[12])
	assert.Equal(t, "0.1", peak[13])
	assert.Equal(t, "0.8", peak[14])
	assert.Equal(t, "2", peak[19])
}

func TestWriteCSVEmptyTable(t *testing.T) {
	tbl := motion.NewTable()
	require.NoError(t, tbl.Freeze(motion.Diagnostics{}))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))
	assert.Equal(t, strings.Join(Columns, ",")+"\n", buf.String())
}

func TestJSONRoundTrip(t *testing.T) {
	tbl := testTable(t, true)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, testInfo, tbl))
	assert.Contains(t, buf.String(), `"video_info"`)
	assert.Contains(t, buf.String(), `"aligned_beat": null`)

	doc, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, VideoInfo{Width: 64, Height: 48, FPS: 10, FrameCount: 10, Duration: 1}, doc.VideoInfo)
	assert.True(t, doc.Truncated)
	assert.Equal(t, 4, doc.DecodedFrames)
	require.Len(t, doc.Frames, 3)

	for i, f := range doc.Frames {
		want := tbl.At(i)
		if diff := cmp.Diff(want, f.Record()); diff != "" {
			t.Errorf("frame %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestWritePlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motion.png")
	require.NoError(t, WritePlot(path, "test", testTable(t, false)))

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, st.Size())
}

func TestWritePlotEmpty(t *testing.T) {
	tbl := motion.NewTable()
	assert.Error(t, WritePlot(filepath.Join(t.TempDir(), "empty.png"), "empty", tbl))
}

func TestWriteChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, "clip.mp4", testTable(t, true)))

	html := buf.String()
	assert.Contains(t, html, "clip.mp4")
	assert.Contains(t, html, "hit score")
	assert.Contains(t, html, "truncated=4/10")
}
