package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/motionbeat/internal/config"
	"github.com/kikiluvv/motionbeat/internal/export"
	"github.com/kikiluvv/motionbeat/internal/logging"
	"github.com/kikiluvv/motionbeat/internal/metrics"
	"github.com/kikiluvv/motionbeat/internal/motion"
	"github.com/kikiluvv/motionbeat/internal/overlays"
	"github.com/kikiluvv/motionbeat/internal/pipeline"
	"github.com/kikiluvv/motionbeat/internal/storage"
	"github.com/kikiluvv/motionbeat/internal/video"
	"github.com/kikiluvv/motionbeat/pkg/util"
)

// outputFlags selects the table exports.
type outputFlags struct {
	csv  string
	json string
	plot string
	html string
}

var (
	analyzeBeats     string
	analyzeOut       outputFlags
	analyzeSave      bool
	analyzeMetrics   string
	analyzeSnapshots string
	analyzeStyle     string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [input video]",
	Short: "Extract the motion table of a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)
		input := args[0]

		beatList, err := loadBeats(analyzeBeats)
		if err != nil {
			return err
		}

		var pm *metrics.PipelineMetrics
		if analyzeMetrics != "" {
			if pm, err = metrics.NewPipelineMetrics(prometheus.NewRegistry()); err != nil {
				return err
			}
		}

		res, err := analyze(cmd, cfg, input, beatList, pm)
		if err != nil {
			return err
		}

		if err := writeOutputs(res.Info, res.Table, filepath.Base(input), analyzeOut); err != nil {
			return err
		}

		if analyzeSave || cmd.Flags().Changed("db") {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			if _, err := store.SaveRun(ctx, storage.Run{
				ID:        res.RunID,
				Input:     input,
				CreatedAt: res.StartedAt,
				Info:      res.Info,
				Settings:  cfg.Config,
			}, res.Table); err != nil {
				return err
			}
		}

		if analyzeSnapshots != "" {
			style, ok := overlays.NewRegistry().Get(analyzeStyle)
			if !ok {
				return fmt.Errorf("unknown overlay style %q (available: %v)", analyzeStyle, overlays.NewRegistry().List())
			}
			exec, err := newExecutor(cfg)
			if err != nil {
				return err
			}
			writer := overlays.NewSnapshotWriter(logging.WithComponent("snapshots"), exec, overlays.NewAnnotator(style, 1280))
			if _, err := writer.WritePeaks(ctx, input, res.Table, image.Pt(res.Info.Width, res.Info.Height), analyzeSnapshots); err != nil {
				return err
			}
		}

		if err := pm.WriteTextfile(analyzeMetrics); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}

		printSummary(cmd, res.RunID, res.Table)
		return nil
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeBeats, "beats", "", "beat timestamps (JSON array, {\"beats\": [...]} or one time per line)")
	f.StringVar(&analyzeOut.csv, "csv", "", "write the motion table as CSV")
	f.StringVar(&analyzeOut.json, "json", "", "write the motion table as JSON")
	f.StringVar(&analyzeOut.plot, "plot", "", "write a score plot (png, svg or pdf)")
	f.StringVar(&analyzeOut.html, "html", "", "write an interactive HTML chart")
	f.BoolVar(&analyzeSave, "save", false, "store the run in the run database")
	f.StringVar(&analyzeMetrics, "metrics-file", "", "write Prometheus metrics in text format")
	f.StringVar(&analyzeSnapshots, "snapshots", "", "write annotated peak frames to this directory")
	f.StringVar(&analyzeStyle, "style", overlays.Default, "overlay style for snapshots")
	addAnalysisFlags(analyzeCmd)
}

// analyze decodes input and runs it through the pipeline.
func analyze(cmd *cobra.Command, cfg *config.Config, input string, beatList []float64, pm *metrics.PipelineMetrics) (*pipeline.Result, error) {
	exec, err := newExecutor(cfg)
	if err != nil {
		return nil, err
	}
	pipe, err := pipeline.New(log.Logger, cfg.PipelineConfig(), cfg.Config,
		pipeline.WithFFmpeg(exec),
		pipeline.WithMetrics(pm),
	)
	if err != nil {
		return nil, err
	}
	return pipe.Analyze(cmd.Context(), input, pipeline.AnalyzeOptions{
		Beats:  beatList,
		Width:  cfg.FFmpeg.Width,
		Height: cfg.FFmpeg.Height,
	})
}

func writeOutputs(info video.Info, table *motion.Table, title string, out outputFlags) error {
	if out.csv != "" {
		if err := util.CreateAtomic(out.csv, func(f *os.File) error { return export.WriteCSV(f, table) }); err != nil {
			return fmt.Errorf("csv export: %w", err)
		}
		log.Info().Str("file", out.csv).Msg("wrote csv")
	}
	if out.json != "" {
		if err := util.CreateAtomic(out.json, func(f *os.File) error { return export.WriteJSON(f, info, table) }); err != nil {
			return fmt.Errorf("json export: %w", err)
		}
		log.Info().Str("file", out.json).Msg("wrote json")
	}
	if out.plot != "" {
		if err := util.EnsureDir(filepath.Dir(out.plot)); err != nil {
			return err
		}
		if err := export.WritePlot(out.plot, title, table); err != nil {
			return fmt.Errorf("plot export: %w", err)
		}
		log.Info().Str("file", out.plot).Msg("wrote plot")
	}
	if out.html != "" {
		if err := util.CreateAtomic(out.html, func(f *os.File) error { return export.WriteChart(f, title, table) }); err != nil {
			return fmt.Errorf("chart export: %w", err)
		}
		log.Info().Str("file", out.html).Msg("wrote chart")
	}
	return nil
}

func printSummary(cmd *cobra.Command, runID string, table *motion.Table) {
	d := table.Diagnostics()
	peaks := table.Peaks()

	printf(cmd, "run:       %s\n", runID)
	printf(cmd, "records:   %d\n", table.Len())
	printf(cmd, "peaks:     %d\n", len(peaks))
	printf(cmd, "beats:     %d\n", d.BeatsSupplied)
	if d.Truncated {
		printf(cmd, "truncated: decoded %d of %d frames (%s)\n", d.DecodedFrames, d.DeclaredFrames, d.Cause)
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].DopamineHitScore > peaks[j].DopamineHitScore
	})
	for i, p := range peaks {
		if i == 5 {
			break
		}
		beat := "-"
		if p.HasBeat() {
			beat = fmt.Sprintf("%.3fs (%.2f)", *p.AlignedBeat, p.BeatAlignmentScore)
		}
		printf(cmd, "  #%d frame %d at %.3fs score %.3f beat %s\n", i+1, p.FrameIndex, p.Timestamp, p.DopamineHitScore, beat)
	}
}
