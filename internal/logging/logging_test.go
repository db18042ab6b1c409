package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSONWithComponent(t *testing.T) {
	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	Init(Options{JSON: true, Out: &buf})

	logger := WithComponent("pipeline")
	logger.Debug().Msg("hidden")
	logger.Info().Int("records", 3).Msg("pipeline complete")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "pipeline", entry["component"])
	assert.Equal(t, "pipeline complete", entry["message"])
	assert.EqualValues(t, 3, entry["records"])
}

func TestInitVerbose(t *testing.T) {
	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	Init(Options{Verbose: true, Out: &buf})
	logger := WithComponent("ffmpeg")
	logger.Debug().Msg("probed video")

	assert.Contains(t, buf.String(), "probed video")
	assert.Contains(t, buf.String(), "component=")
}

func TestNewLoggerMultiWriter(t *testing.T) {
	var a, b bytes.Buffer
	logger := NewLogger(&a, &b)
	logger.Info().Msg("both")

	assert.Contains(t, a.String(), "both")
	assert.Contains(t, b.String(), "both")
}
