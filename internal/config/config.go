package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	Checkpoints   CheckpointsConfig   `toml:"checkpoints"`
	Inference     InferenceConfig     `toml:"inference"`
	Polling       PollingConfig       `toml:"polling"`
	Overlay       OverlayConfig       `toml:"overlay"`
	Notifications NotificationsConfig `toml:"notifications"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	ResultsDir   string `toml:"results_dir"`
	DatabasePath string `toml:"database_path"`
	LogLevel     string `toml:"log_level"`
}

// CheckpointsConfig maps checkpoint tiers to weight paths
type CheckpointsConfig struct {
	Original  string `toml:"original"`
	Distilled string `toml:"distilled"`
}

// InferenceConfig holds settings for the external inference process
type InferenceConfig struct {
	Command        string  `toml:"command"`
	VideoWidth     int     `toml:"video_width"`
	VideoHeight    int     `toml:"video_height"`
	CFGScale       float64 `toml:"cfg_scale"`
	FlowShift      float64 `toml:"flow_shift"`
	NegativePrompt string  `toml:"negative_prompt"`
}

// PollingConfig bounds the completion poller
type PollingConfig struct {
	IntervalSeconds int `toml:"interval_seconds"`
	MaxWaitSeconds  int `toml:"max_wait_seconds"`
}

// OverlayConfig holds settings for the external icon overlay renderer
type OverlayConfig struct {
	Command        string `toml:"command"`
	FPS            int    `toml:"fps"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			ResultsDir:   "results",
			DatabasePath: filepath.Join(home, ".gamecraft-orchestrator", "runs.db"),
			LogLevel:     "info",
		},
		Checkpoints: CheckpointsConfig{
			Original:  "weights/gamecraft_models/mp_rank_00_model_states.pt",
			Distilled: "weights/gamecraft_models/mp_rank_00_model_states_distill.pt",
		},
		Inference: InferenceConfig{
			Command:        "scripts/run_sample.sh",
			VideoWidth:     704,
			VideoHeight:    1216,
			CFGScale:       2.0,
			FlowShift:      5.0,
			NegativePrompt: "overexposed, blurry, distortion, watermark, subtitles, text",
		},
		Polling: PollingConfig{
			IntervalSeconds: 10,
			MaxWaitSeconds:  3600,
		},
		Overlay: OverlayConfig{
			Command:        "scripts/add_icons.sh",
			FPS:            24,
			TimeoutSeconds: 1800,
		},
		Notifications: NotificationsConfig{
			Desktop: false,
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Expand paths
	cfg.General.ResultsDir = ExpandPath(cfg.General.ResultsDir)
	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)
	cfg.Checkpoints.Original = ExpandPath(cfg.Checkpoints.Original)
	cfg.Checkpoints.Distilled = ExpandPath(cfg.Checkpoints.Distilled)

	return cfg, nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "gamecraft-orchestrator", "config.toml")
}
