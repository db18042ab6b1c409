package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/motionbeat/internal/motion"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "motionbeat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
peak:
  window: 9
  ceilings:
    speed: 400
beat:
  max_alignment_window: 0.1
highlight:
  top_n: 3
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Peak.Window)
	assert.Equal(t, 400.0, cfg.Peak.Ceilings.Speed)
	assert.Equal(t, 20000.0, cfg.Peak.Ceilings.Acceleration, "unset keys keep defaults")
	assert.Equal(t, 0.1, cfg.Beat.MaxAlignmentWindow)
	assert.Equal(t, 3, cfg.Highlight.TopN)
	assert.Equal(t, 5, cfg.Extractor.BlurKernel)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "peak:\n  window: 9\n")
	t.Setenv("MOTIONBEAT_PEAK_WINDOW", "21")
	t.Setenv("MOTIONBEAT_EXTRACTOR_FLOW_SCALE", "0.25")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 21, cfg.Peak.Window)
	assert.Equal(t, 0.25, cfg.Extractor.Flow.Scale)
}

func TestLoadFlagOverride(t *testing.T) {
	path := writeConfig(t, "peak:\n  threshold: 0.5\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Float64("peak-threshold", 0.35, "")
	flags.Int("workers", 0, "")
	require.NoError(t, flags.Parse([]string{"--peak-threshold", "0.6"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, 0.6, cfg.Peak.Threshold)
	assert.Equal(t, Default().Pipeline.Workers, cfg.Pipeline.Workers, "unchanged flag does not override")
}

func TestLoadInvalid(t *testing.T) {
	path := writeConfig(t, "peak:\n  ceilings:\n    speed: 0\n")

	_, err := Load(path, nil)
	require.ErrorIs(t, err, motion.ErrInvalidConfiguration)

	var cerr *motion.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "peak.ceilings.speed", cerr.Field)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidateAmbientSections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"negative workers", func(c *Config) { c.Pipeline.Workers = -1 }, "pipeline.workers"},
		{"zero queue", func(c *Config) { c.Pipeline.QueueSize = 0 }, "pipeline.queue_size"},
		{"negative width", func(c *Config) { c.FFmpeg.Width = -2 }, "ffmpeg.width"},
		{"crf out of range", func(c *Config) { c.FFmpeg.CRF = 60 }, "ffmpeg.crf"},
		{"zero scoring weights", func(c *Config) {
			c.Scoring.Energy, c.Scoring.PeakDensity, c.Scoring.BeatSync, c.Scoring.DurationFit = 0, 0, 0, 0
		}, "scoring"},
		{"highlight", func(c *Config) { c.Highlight.TopN = 0 }, "highlight.top_n"},
	}

	require.NoError(t, Default().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			var cerr *motion.ConfigError
			require.ErrorAs(t, cfg.Validate(), &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestSaveWritesLoadableYAML(t *testing.T) {
	cfg := Default()
	cfg.Peak.Window = 7
	cfg.Export.Dir = "/tmp/reels"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_alignment_window: 0.25")

	loaded, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Peak.Window)
	assert.Equal(t, "/tmp/reels", loaded.Export.Dir)
}

func TestContextRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Highlight.TopN = 2

	ctx := WithConfig(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
	assert.Equal(t, 5, FromContext(context.Background()).Highlight.TopN)
}

func TestPipelineConfigFillsWorkers(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.Workers = 0
	assert.Positive(t, cfg.PipelineConfig().Workers)
	assert.Zero(t, cfg.Pipeline.Workers)
}
