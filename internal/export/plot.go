package export

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/kikiluvv/motionbeat/internal/motion"
)

var (
	scoreColor     = color.RGBA{R: 230, G: 57, B: 70, A: 255}
	intensityColor = color.RGBA{R: 69, G: 123, B: 157, A: 255}
	peakColor      = color.RGBA{R: 255, G: 183, B: 3, A: 255}
	beatColor      = color.RGBA{R: 42, G: 157, B: 143, A: 255}
)

// WritePlot renders hit score, normalized intensity, peaks and aligned
// beats against time. The image format follows the extension of path.
func WritePlot(path, title string, table *motion.Table) error {
	if table.Len() == 0 {
		return fmt.Errorf("no motion records to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Score"
	p.Y.Min = 0
	p.Y.Max = 1

	scorePts := make(plotter.XYs, 0, table.Len())
	intensityPts := make(plotter.XYs, 0, table.Len())
	var peakPts, beatPts plotter.XYs
	for r := range table.All() {
		scorePts = append(scorePts, plotter.XY{X: r.Timestamp, Y: r.DopamineHitScore})
		intensityPts = append(intensityPts, plotter.XY{X: r.Timestamp, Y: r.MotionIntensity / 100})
		if r.IsPeakMoment {
			peakPts = append(peakPts, plotter.XY{X: r.Timestamp, Y: r.DopamineHitScore})
			if r.HasBeat() {
				beatPts = append(beatPts, plotter.XY{X: *r.AlignedBeat, Y: r.BeatAlignmentScore})
			}
		}
	}

	scoreLine, err := plotter.NewLine(scorePts)
	if err != nil {
		return fmt.Errorf("score line: %w", err)
	}
	scoreLine.Color = scoreColor
	scoreLine.Width = vg.Points(1)
	p.Add(scoreLine)
	p.Legend.Add("hit score", scoreLine)

	intensityLine, err := plotter.NewLine(intensityPts)
	if err != nil {
		return fmt.Errorf("intensity line: %w", err)
	}
	intensityLine.Color = intensityColor
	intensityLine.Width = vg.Points(1)
	intensityLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(intensityLine)
	p.Legend.Add("intensity", intensityLine)

	if len(peakPts) > 0 {
		peaks, err := plotter.NewScatter(peakPts)
		if err != nil {
			return fmt.Errorf("peaks: %w", err)
		}
		peaks.GlyphStyle.Color = peakColor
		peaks.GlyphStyle.Radius = vg.Points(3)
		peaks.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(peaks)
		p.Legend.Add("peak", peaks)
	}
	if len(beatPts) > 0 {
		beats, err := plotter.NewScatter(beatPts)
		if err != nil {
			return fmt.Errorf("beats: %w", err)
		}
		beats.GlyphStyle.Color = beatColor
		beats.GlyphStyle.Radius = vg.Points(3)
		beats.GlyphStyle.Shape = draw.TriangleGlyph{}
		p.Add(beats)
		p.Legend.Add("aligned beat", beats)
	}

	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p.Save(14*vg.Inch, 6*vg.Inch, path)
}
