package export

import (
	"encoding/json"
	"io"

	"github.com/kikiluvv/motionbeat/internal/motion"
	"github.com/kikiluvv/motionbeat/internal/video"
)

// VideoInfo describes the analyzed stream.
type VideoInfo struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	FrameCount int     `json:"frame_count"`
	Duration   float64 `json:"duration"`
}

// Document is the JSON export layout.
type Document struct {
	VideoInfo      VideoInfo `json:"video_info"`
	Truncated      bool      `json:"truncated"`
	DecodedFrames  int       `json:"decoded_frames"`
	DeclaredFrames int       `json:"declared_frames"`
	Cause          string    `json:"cause,omitempty"`
	Frames         []Frame   `json:"frames"`
}

// NewDocument builds the export document for a frozen table.
func NewDocument(info video.Info, table *motion.Table) Document {
	d := table.Diagnostics()
	doc := Document{
		VideoInfo: VideoInfo{
			Width:      info.Width,
			Height:     info.Height,
			FPS:        info.FPS,
			FrameCount: info.DeclaredFrames,
			Duration:   info.Duration(),
		},
		Truncated:      d.Truncated,
		DecodedFrames:  d.DecodedFrames,
		DeclaredFrames: d.DeclaredFrames,
		Cause:          d.Cause,
		Frames:         make([]Frame, 0, table.Len()),
	}
	for r := range table.All() {
		doc.Frames = append(doc.Frames, FrameOf(r))
	}
	return doc
}

// WriteJSON writes the indented export document.
func WriteJSON(w io.Writer, info video.Info, table *motion.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(info, table))
}

// ReadJSON parses an export document.
func ReadJSON(r io.Reader) (Document, error) {
	var doc Document
	err := json.NewDecoder(r).Decode(&doc)
	return doc, err
}
