package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/motionbeat/internal/beats"
	"github.com/kikiluvv/motionbeat/internal/config"
	"github.com/kikiluvv/motionbeat/internal/ffmpeg"
	"github.com/kikiluvv/motionbeat/internal/logging"
	"github.com/kikiluvv/motionbeat/internal/storage"
)

var (
	cfgFile string
	verbose bool
	logJSON bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "motionbeat",
	Short: "motionbeat - motion and beat analysis for video",
	Long: "Extracts per-frame motion from a video, scores hit moments, aligns them to music " +
		"beats and cuts the strongest moments into highlight clips.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(logging.Options{Verbose: verbose, JSON: logJSON})

		cfg, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}

		cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./motionbeat.yaml, ./config.yaml or ~/.motionbeat/config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pf.BoolVar(&logJSON, "log-json", false, "write logs as JSON lines")
	pf.String("db", "", "run database path")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(highlightsCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(configCmd)
}

// addAnalysisFlags registers the flags that override analysis settings.
// Their values are read through config.Load.
func addAnalysisFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("workers", 0, "extraction workers (default: number of CPUs)")
	f.Int("queue-size", 0, "channel capacity between pipeline stages")
	f.Int("width", 0, "downscale frames to at most this width before analysis")
	f.Int("height", 0, "downscale frames to at most this height before analysis")
	f.Int("threads", 0, "ffmpeg decoder threads")
	f.Int("peak-window", 0, "peak detection window in frames")
	f.Float64("peak-threshold", 0, "minimum hit score for a peak")
	f.Float64("beat-window", 0, "maximum beat alignment distance in seconds")
}

func newExecutor(cfg *config.Config) (*ffmpeg.Executor, error) {
	return ffmpeg.New(logging.WithComponent("ffmpeg"), cfg.ExecutorConfig())
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	return storage.Open(logging.WithComponent("storage"), cfg.Storage.Database)
}

func loadBeats(path string) ([]float64, error) {
	if path == "" {
		return nil, nil
	}
	b, err := beats.Load(path)
	if err != nil {
		return nil, err
	}
	log.Info().Str("file", path).Int("beats", len(b)).Msg("loaded beats")
	return b, nil
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
