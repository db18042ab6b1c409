package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPipelineMetrics(reg)
	require.NoError(t, err)

	m.RunStarted()
	m.RecordFrame(false, false)
	m.RecordFrame(true, false)
	m.RecordFrame(false, true)
	m.RecordStage("extract", 2*time.Millisecond)
	m.RunFinished(time.Second, true, nil)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.FramesProcessed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PeaksDetected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DegenerateFrames))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TruncatedRuns))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("truncated")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveRuns))

	m.RunStarted()
	m.RunFinished(time.Second, false, errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("error")))
}

func TestPipelineMetricsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPipelineMetrics(reg)
	require.NoError(t, err)

	_, err = NewPipelineMetrics(reg)
	assert.Error(t, err)
}

func TestNilPipelineMetrics(t *testing.T) {
	var m *PipelineMetrics
	assert.NotPanics(t, func() {
		m.RunStarted()
		m.RecordFrame(true, true)
		m.RecordStage("peaks", time.Millisecond)
		m.RunFinished(time.Second, false, nil)
		assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "unused.prom")))
	})
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPipelineMetrics(reg)
	require.NoError(t, err)
	m.RecordFrame(true, false)

	path := filepath.Join(t.TempDir(), "motionbeat.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "motionbeat_peaks_detected_total 1"))
}
