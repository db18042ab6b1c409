package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kikiluvv/motionbeat/internal/motion"
)

// WriteChart renders an interactive HTML line chart of the table.
func WriteChart(w io.Writer, title string, table *motion.Table) error {
	n := table.Len()
	labels := make([]string, 0, n)
	scores := make([]opts.LineData, 0, n)
	intensity := make([]opts.LineData, 0, n)
	alignment := make([]opts.LineData, 0, n)
	peaks := 0
	for r := range table.All() {
		labels = append(labels, strconv.FormatFloat(r.Timestamp, 'f', 2, 64))
		scores = append(scores, opts.LineData{Value: r.DopamineHitScore})
		intensity = append(intensity, opts.LineData{Value: r.MotionIntensity / 100})
		alignment = append(alignment, opts.LineData{Value: r.BeatAlignmentScore})
		if r.IsPeakMoment {
			peaks++
		}
	}

	d := table.Diagnostics()
	subtitle := fmt.Sprintf("frames=%d peaks=%d", n, peaks)
	if d.Truncated {
		subtitle += fmt.Sprintf(" truncated=%d/%d", d.DecodedFrames, d.DeclaredFrames)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	line.SetXAxis(labels).
		AddSeries("hit score", scores).
		AddSeries("intensity", intensity).
		AddSeries("beat alignment", alignment)

	return line.Render(w)
}
