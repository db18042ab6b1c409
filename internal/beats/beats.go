// Package beats loads externally detected beat timestamps.
//
// Three layouts are accepted: a JSON array of seconds, a JSON object with a
// "beats" array, and text or CSV with one beat per row. Text values may be
// plain seconds or ffmpeg-style timestamps such as 01:02.500.
package beats

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/kikiluvv/motionbeat/pkg/util"
)

// ErrInvalidBeat is returned for negative, non-finite or unparsable values.
var ErrInvalidBeat = errors.New("invalid beat timestamp")

// timeColumns are header names recognized in CSV input.
var timeColumns = []string{"time", "beat", "beats", "timestamp", "seconds", "onset"}

// Load reads beats from a file.
func Load(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	beats, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return beats, nil
}

// Parse detects the layout and returns the beats sorted ascending.
func Parse(r io.Reader) ([]float64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)

	var beats []float64
	switch {
	case len(data) == 0:
		return []float64{}, nil
	case data[0] == '[':
		err = json.Unmarshal(data, &beats)
	case data[0] == '{':
		var doc struct {
			Beats []float64 `json:"beats"`
		}
		err = json.Unmarshal(data, &doc)
		beats = doc.Beats
	default:
		beats, err = parseText(data)
	}
	if err != nil {
		return nil, err
	}

	for _, b := range beats {
		if math.IsNaN(b) || math.IsInf(b, 0) || b < 0 {
			return nil, fmt.Errorf("%w: %g", ErrInvalidBeat, b)
		}
	}
	if beats == nil {
		beats = []float64{}
	}
	sort.Float64s(beats)
	return beats, nil
}

func parseText(data []byte) ([]float64, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}

	col := 0
	var beats []float64
	for i, row := range rows {
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if i == 0 {
			if c, ok := headerColumn(row); ok {
				col = c
				continue
			}
		}
		if col >= len(row) {
			return nil, fmt.Errorf("%w: row %d has no column %d", ErrInvalidBeat, i+1, col+1)
		}
		d, err := util.ParseTimestamp(row[col])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidBeat, i+1, err)
		}
		beats = append(beats, d.Seconds())
	}
	return beats, nil
}

// headerColumn reports whether row is a header and which column holds times.
// A row whose first cell carries no digits is a header.
func headerColumn(row []string) (int, bool) {
	for i, name := range row {
		name = strings.ToLower(strings.TrimSpace(name))
		for _, want := range timeColumns {
			if name == want {
				return i, true
			}
		}
	}
	if strings.ContainsAny(row[0], "0123456789") {
		return 0, false
	}
	return 0, true
}
