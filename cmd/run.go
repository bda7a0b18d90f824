package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dooh-labs/attentiond/internal/config"
	"github.com/dooh-labs/attentiond/internal/pipeline"
	"github.com/dooh-labs/attentiond/internal/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live attention pipeline",
	Long: `Run the live pipeline against the capture directory. The capture
sidecar drops JPEG frames into the directory; attentiond consumes them
as they appear, tracks the audience and drives campaign playback.
Stops on SIGINT/SIGTERM and writes the session reports on the way out.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("frames", "frames", "Capture directory to watch for incoming JPEG frames")
	runCmd.Flags().String("listen", "", "Serve the status API on this address (overrides LISTEN_ADDR)")
	runCmd.Flags().Bool("silent", false, "Disable campaign audio playback")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	campaign, err := cfg.LoadCampaign()
	if err != nil {
		return err
	}
	if campaign.Name != "" {
		fmt.Printf("Campaign: %s\n", campaign.Name)
	}

	source, err := pipeline.NewWatchSource(mustGetString(cmd, "frames"), 0)
	if err != nil {
		return err
	}

	device := buildDevice(cfg, campaign, mustGetBool(cmd, "silent"))
	p := buildPipeline(cfg, campaign, source, device, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listen := mustGetString(cmd, "listen")
	if listen == "" {
		listen = cfg.Web.Listen
	}
	if listen != "" {
		server := web.NewServer(p, listen)
		go func() {
			if err := server.Start(); err != nil {
				fmt.Printf("Warning: status server failed: %v\n", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				fmt.Printf("Warning: status server shutdown: %v\n", err)
			}
		}()
	}

	fmt.Println("Watching for frames, press Ctrl+C to stop")
	startedAt := time.Now()

	sum, runErr := p.Run(ctx)
	finishSession(cfg, startedAt, sum, p.Identities())

	// Operator interrupt is the normal way to end a live session
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
