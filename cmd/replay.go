package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dooh-labs/attentiond/internal/config"
	"github.com/dooh-labs/attentiond/internal/pipeline"
	"github.com/dooh-labs/attentiond/internal/playback"
)

var replayCmd = &cobra.Command{
	Use:   "replay <frame-dir>",
	Short: "Process a recorded frame directory offline",
	Long: `Replay runs the full pipeline over a directory of recorded JPEG
frames. Timestamps are synthesized at the given frame rate, audio
playback is disabled and the usual session reports are written at the
end.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().Float64("fps", 10, "Frame rate the recording was captured at")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	campaign, err := cfg.LoadCampaign()
	if err != nil {
		return err
	}

	source, err := pipeline.NewDirSource(args[0], mustGetFloat64(cmd, "fps"))
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(source.Count(),
		progressbar.OptionSetDescription("Processing frames"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	p := buildPipeline(cfg, campaign, source, playback.NullDevice{}, func(int) {
		_ = bar.Add(1)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startedAt := time.Now()
	sum, runErr := p.Run(ctx)
	fmt.Println()

	finishSession(cfg, startedAt, sum, p.Identities())
	return runErr
}
