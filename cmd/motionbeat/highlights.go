package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/motionbeat/internal/clips"
	"github.com/kikiluvv/motionbeat/internal/config"
	"github.com/kikiluvv/motionbeat/internal/highlight"
	"github.com/kikiluvv/motionbeat/internal/logging"
	"github.com/kikiluvv/motionbeat/internal/motion"
)

var (
	highlightsBeats string
	highlightsRun   string
	highlightsOut   string
	highlightsReel  string
	highlightsCut   bool
)

var highlightsCmd = &cobra.Command{
	Use:   "highlights [input video]",
	Short: "Select the strongest on-beat moments and cut them into clips",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)
		input := args[0]

		outDir := highlightsOut
		if outDir == "" && (highlightsCut || highlightsReel != "") {
			outDir = cfg.Export.Dir
		}

		table, err := highlightTable(cmd, cfg, input)
		if err != nil {
			return err
		}

		scorer, err := highlight.NewWeightedHeuristicScorer(cfg.Scoring)
		if err != nil {
			return err
		}
		detector, err := highlight.NewDetector(logging.WithComponent("highlight"), scorer, cfg.Highlight)
		if err != nil {
			return err
		}
		defer detector.Close()

		selected, err := detector.Detect(ctx, table, input)
		if err != nil {
			return err
		}
		if len(selected) == 0 {
			log.Warn().Msg("no highlight candidates found")
			return nil
		}
		printClips(cmd, selected)

		if outDir == "" {
			return nil
		}
		exec, err := newExecutor(cfg)
		if err != nil {
			return err
		}
		cutter := highlight.NewCutter(log.Logger, exec, cfg.FFmpeg.CRF)

		// Clips are cut in playback order so the reel follows the video.
		ordered := clips.NewManager()
		ordered.Add(selected...)
		chronological := ordered.Chronological()
		paths, err := cutter.Export(ctx, input, chronological, outDir)
		if err != nil {
			return err
		}
		if highlightsReel != "" {
			if err := cutter.Reel(ctx, chronological, paths, highlightsReel); err != nil {
				return err
			}
			log.Info().Str("file", highlightsReel).Int("clips", len(paths)).Msg("wrote reel")
		}
		return nil
	},
}

func init() {
	f := highlightsCmd.Flags()
	f.StringVar(&highlightsBeats, "beats", "", "beat timestamps file")
	f.StringVar(&highlightsRun, "run", "", "use a stored run instead of analyzing the video")
	f.StringVar(&highlightsOut, "out", "", "cut the selected clips into this directory")
	f.BoolVar(&highlightsCut, "cut", false, "cut the selected clips into the configured export directory")
	f.StringVar(&highlightsReel, "reel", "", "join the cut clips into one video (implies --cut)")
	f.Int("top", 0, "number of clips to keep")
	addAnalysisFlags(highlightsCmd)
}

// highlightTable loads a stored run or analyzes input.
func highlightTable(cmd *cobra.Command, cfg *config.Config, input string) (*motion.Table, error) {
	if highlightsRun != "" {
		store, err := openStore(cfg)
		if err != nil {
			return nil, err
		}
		defer store.Close()

		id, err := store.ResolveID(cmd.Context(), highlightsRun)
		if err != nil {
			return nil, err
		}
		run, table, err := store.LoadRun(cmd.Context(), id)
		if err != nil {
			return nil, err
		}
		if run.Input != input {
			log.Warn().Str("run_input", run.Input).Str("input", input).Msg("stored run was made from a different file")
		}
		return table, nil
	}

	beatList, err := loadBeats(highlightsBeats)
	if err != nil {
		return nil, err
	}
	if len(beatList) == 0 {
		log.Warn().Msg("no beats given, clips will not be snapped to the music")
	}
	res, err := analyze(cmd, cfg, input, beatList, nil)
	if err != nil {
		return nil, err
	}
	return res.Table, nil
}

func printClips(cmd *cobra.Command, cs []*clips.Clip) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tID\tSTART\tEND\tSCORE\tPEAKS\tBEAT SYNC\tON BEAT")
	for i, c := range cs {
		fmt.Fprintf(w, "%d\t%s\t%.2fs\t%.2fs\t%.3f\t%d\t%.2f\t%v\n",
			i+1, c.ID, c.Start.Seconds(), c.End.Seconds(), c.Score, c.Stats.Peaks, c.Stats.BeatSync, c.OnBeat)
	}
	w.Flush()
}
