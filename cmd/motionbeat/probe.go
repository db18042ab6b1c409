package main

import (
	"github.com/spf13/cobra"

	"github.com/kikiluvv/motionbeat/internal/config"
)

var probeCmd = &cobra.Command{
	Use:   "probe [input video]",
	Short: "Show the stream properties used for analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		exec, err := newExecutor(cfg)
		if err != nil {
			return err
		}
		info, err := exec.ProbeVideo(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		printf(cmd, "file:     %s\n", info.FilePath)
		printf(cmd, "size:     %dx%d\n", info.Width, info.Height)
		printf(cmd, "fps:      %.3f\n", info.FPS)
		printf(cmd, "frames:   %d\n", info.FrameCount)
		printf(cmd, "duration: %s\n", info.Duration)
		printf(cmd, "video:    %s\n", info.VideoCodec)
		if info.HasAudio {
			printf(cmd, "audio:    %s\n", info.AudioCodec)
		}
		return nil
	},
}
