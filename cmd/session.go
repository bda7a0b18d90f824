package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dooh-labs/attentiond/internal/config"
	"github.com/dooh-labs/attentiond/internal/database"
	"github.com/dooh-labs/attentiond/internal/detect"
	"github.com/dooh-labs/attentiond/internal/identity"
	"github.com/dooh-labs/attentiond/internal/pipeline"
	"github.com/dooh-labs/attentiond/internal/playback"
	"github.com/dooh-labs/attentiond/internal/pose"
	"github.com/dooh-labs/attentiond/internal/report"
	"github.com/dooh-labs/attentiond/internal/tracker"
)

// buildDevice picks the playback device for the campaign. No campaign,
// no matching audio or --silent all mean the null device.
func buildDevice(cfg *config.Config, campaign config.Campaign, silent bool) playback.Device {
	if silent || campaign.Name == "" {
		return playback.NullDevice{}
	}

	audioDir := cfg.Playback.AudioDir
	if campaign.AudioDir != "" {
		audioDir = campaign.AudioDir
	}

	path, err := playback.FindCampaignAudio(audioDir, campaign.Name)
	if err != nil {
		fmt.Printf("Warning: audio lookup failed: %v\n", err)
		return playback.NullDevice{}
	}
	if path == "" {
		fmt.Printf("No audio found for campaign %q, playback disabled\n", campaign.Name)
		return playback.NullDevice{}
	}

	fmt.Printf("Campaign audio: %s\n", path)
	return playback.NewExecDevice(cfg.Playback.Player, path, 0)
}

// buildPipeline assembles the full processing chain from configuration.
func buildPipeline(cfg *config.Config, campaign config.Campaign, source pipeline.FrameSource, device playback.Device, onFrame func(int)) *pipeline.Pipeline {
	detector := detect.NewClient(cfg.Detector.URL)
	decoder := detect.NewDecoder(detect.DecoderConfig{
		ScoreThreshold: cfg.Detector.ScoreThreshold,
		NMSIoU:         cfg.Detector.NMSIoU,
	})

	var embedder identity.Embedder
	var memory *identity.Memory
	if cfg.Embedder.URL != "" {
		embedder = identity.NewClient(cfg.Embedder.URL)
		memory = identity.NewMemory(cfg.Identity.SimilarityThreshold)
	} else {
		fmt.Println("EMBEDDER_URL not set, re-identification disabled")
	}

	trk := tracker.New(tracker.Config{
		StaleTimeout:            time.Duration(cfg.Tracker.StaleTimeoutS * float64(time.Second)),
		MatchDistanceFloor:      cfg.Tracker.MatchDistanceFloorPx,
		MatchDistanceSizeFactor: cfg.Tracker.MatchDistanceSizeFactor,
	})

	actuator := playback.NewActuator(device, time.Duration(cfg.Playback.RestartThresholdS*float64(time.Second)))

	return pipeline.New(source, detector, decoder, embedder, memory, trk, actuator, pipeline.Config{
		Campaign:    campaign.Name,
		ReIDCadence: cfg.Identity.ReIDCadence,
		Pose: pose.Thresholds{
			YawMax:   cfg.Pose.YawMax,
			PitchMax: cfg.Pose.PitchMax,
		},
		OnFrame: onFrame,
	})
}

// finishSession writes the reports and, when a database is configured,
// persists the run. Report failures are printed but never mask the
// pipeline outcome.
func finishSession(cfg *config.Config, startedAt time.Time, sum report.Summary, identities []identity.Record) {
	report.Print(os.Stdout, sum)

	reportPath, timelinePath, err := report.Save(cfg.Results.Dir, sum)
	if err != nil {
		fmt.Printf("Warning: failed to save reports: %v\n", err)
	} else {
		fmt.Printf("Report saved to %s\n", reportPath)
		fmt.Printf("Timeline saved to %s\n", timelinePath)
	}

	if cfg.Database.URL == "" {
		return
	}

	store, err := database.Open(cfg.Database.URL)
	if err != nil {
		fmt.Printf("Warning: failed to connect to database: %v\n", err)
		return
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.EnsureSchema(ctx); err != nil {
		fmt.Printf("Warning: failed to prepare database schema: %v\n", err)
		return
	}

	runID, err := store.SaveRun(ctx, startedAt, sum, identities)
	if err != nil {
		fmt.Printf("Warning: failed to persist run: %v\n", err)
		return
	}
	fmt.Printf("Run persisted as %s\n", runID)
}
