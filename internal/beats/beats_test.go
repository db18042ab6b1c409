package beats

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLayouts(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []float64
	}{
		{"json array", `[1.5, 0.5, 1.0]`, []float64{0.5, 1.0, 1.5}},
		{"json object", `{"tempo": 120, "beats": [0.5, 1.0]}`, []float64{0.5, 1.0}},
		{"plain lines", "0.5\n1.0\n\n1.5\n", []float64{0.5, 1.0, 1.5}},
		{"timestamps", "00:01.250\n01:00\n", []float64{1.25, 60}},
		{"comments", "# beats from librosa\n0.5\n1.0\n", []float64{0.5, 1.0}},
		{"csv with header", "index,time,strength\n1,0.5,0.9\n2,1.0,0.4\n", []float64{0.5, 1.0}},
		{"csv without header", "0.5,0.9\n1.0,0.4\n", []float64{0.5, 1.0}},
		{"empty", "   \n", []float64{}},
		{"empty json", `[]`, []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	for _, input := range []string{
		`[-1]`,
		"0.5\nabc\n",
		`{"beats": "nope"}`,
		"-1\n0.5\n",
	} {
		_, err := Parse(strings.NewReader(input))
		assert.Error(t, err, input)
	}

	_, err := Parse(strings.NewReader("0.5\n-2\n"))
	assert.ErrorIs(t, err, ErrInvalidBeat)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beats.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"beats": [2, 1]}`), 0644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, got)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
