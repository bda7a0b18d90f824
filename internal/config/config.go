package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Detector DetectorConfig
	Embedder EmbedderConfig
	Pose     PoseConfig
	Identity IdentityConfig
	Tracker  TrackerConfig
	Playback PlaybackConfig
	Database DatabaseConfig
	Results  ResultsConfig
	Campaign CampaignConfig
	Web      WebConfig
}

type DetectorConfig struct {
	URL            string  // inference sidecar base URL (defaults to http://localhost:8601)
	ScoreThreshold float64 // minimum face confidence (default 0.6)
	NMSIoU         float64 // suppression overlap threshold (default 0.4)
}

type EmbedderConfig struct {
	URL string // embedding sidecar base URL, empty disables re-identification
}

type PoseConfig struct {
	YawMax   float64 // default 0.25
	PitchMax float64 // default 0.7
}

type IdentityConfig struct {
	SimilarityThreshold float64 // cosine similarity cutoff (default 0.45)
	ReIDCadence         int     // embed every Nth frame (default 10)
}

type TrackerConfig struct {
	StaleTimeoutS           float64 // seconds without a match before eviction (default 3.0)
	MatchDistanceFloorPx    float64 // minimum centroid gate in pixels (default 50)
	MatchDistanceSizeFactor float64 // gate as fraction of box size (default 0.6)
}

type PlaybackConfig struct {
	RestartThresholdS float64 // seconds left in the track below which a restart is considered (default 2.0)
	AudioDir          string  // campaign audio root (defaults to ./audio)
	Player            string  // playback binary (defaults to ffplay)
}

type DatabaseConfig struct {
	URL string // PostgreSQL connection URL, empty disables persistence
}

type ResultsConfig struct {
	Dir string // CSV output directory (defaults to ./results)
}

type CampaignConfig struct {
	File string // YAML campaign definition (defaults to campaign.yaml)
	Name string // CAMPAIGN env overrides the file
}

type WebConfig struct {
	Listen string // status API address, empty disables the server
}

// Campaign is the YAML campaign definition.
type Campaign struct {
	Name     string `yaml:"name"`
	AudioDir string `yaml:"audio_dir,omitempty"` // overrides PlaybackConfig.AudioDir when set
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat is envInt for positive floats.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envStr reads an environment variable with a fallback.
func envStr(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Detector: DetectorConfig{
			URL:            envStr("DETECTOR_URL", "http://localhost:8601"),
			ScoreThreshold: envFloat("SCORE_THRESHOLD", 0.6),
			NMSIoU:         envFloat("NMS_IOU", 0.4),
		},
		Embedder: EmbedderConfig{
			URL: os.Getenv("EMBEDDER_URL"),
		},
		Pose: PoseConfig{
			YawMax:   envFloat("FRONTAL_YAW_MAX", 0.25),
			PitchMax: envFloat("FRONTAL_PITCH_MAX", 0.7),
		},
		Identity: IdentityConfig{
			SimilarityThreshold: envFloat("SIMILARITY_THRESHOLD", 0.45),
			ReIDCadence:         envInt("REID_CADENCE", 10),
		},
		Tracker: TrackerConfig{
			StaleTimeoutS:           envFloat("STALE_TIMEOUT_S", 3.0),
			MatchDistanceFloorPx:    envFloat("MATCH_DISTANCE_FLOOR_PX", 50),
			MatchDistanceSizeFactor: envFloat("MATCH_DISTANCE_SIZE_FACTOR", 0.6),
		},
		Playback: PlaybackConfig{
			RestartThresholdS: envFloat("RESTART_THRESHOLD_S", 2.0),
			AudioDir:          envStr("AUDIO_DIR", "audio"),
			Player:            envStr("AUDIO_PLAYER", "ffplay"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Results: ResultsConfig{
			Dir: envStr("RESULTS_DIR", "results"),
		},
		Campaign: CampaignConfig{
			File: envStr("CAMPAIGN_FILE", "campaign.yaml"),
			Name: os.Getenv("CAMPAIGN"),
		},
		Web: WebConfig{
			Listen: os.Getenv("LISTEN_ADDR"),
		},
	}
}

// LoadCampaign resolves the active campaign: the CAMPAIGN env var wins,
// then the YAML file, then no campaign at all. A missing file is only a
// problem when it was configured explicitly, so it is not an error here.
func (c *Config) LoadCampaign() (Campaign, error) {
	if c.Campaign.Name != "" {
		return Campaign{Name: c.Campaign.Name}, nil
	}

	data, err := os.ReadFile(c.Campaign.File)
	if err != nil {
		if os.IsNotExist(err) {
			return Campaign{}, nil
		}
		return Campaign{}, fmt.Errorf("reading campaign file: %w", err)
	}

	var campaign Campaign
	if err := yaml.Unmarshal(data, &campaign); err != nil {
		return Campaign{}, fmt.Errorf("parsing campaign file %s: %w", c.Campaign.File, err)
	}
	return campaign, nil
}
