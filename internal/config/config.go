// Package config loads application configuration from a YAML file with sane
// defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/framesift/framesift/internal/storage"
)

// Config holds all application configuration.
type Config struct {
	// OutputDir is the root for per-video frame and result directories.
	OutputDir string `yaml:"output_dir"`

	Selection SelectionConfig `yaml:"selection"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Ollama    OllamaConfig    `yaml:"ollama"`

	// Postgres is optional; nil disables database persistence.
	Postgres *storage.PostgresConfig `yaml:"postgres,omitempty"`
}

// SelectionConfig tunes the frame selection engine.
type SelectionConfig struct {
	FrameBudget       int     `yaml:"frame_budget"`
	MinSpacingSeconds float64 `yaml:"min_spacing_seconds"`
	PercentileFactor  float64 `yaml:"percentile_factor"`
	SceneFloor        float64 `yaml:"scene_floor"`
	CaptureWorkers    int     `yaml:"capture_workers"`
}

// AnalysisConfig tunes the tiered analysis calls.
type AnalysisConfig struct {
	BatchSize    int    `yaml:"batch_size"`
	BatchWorkers int    `yaml:"batch_workers"`
	Language     string `yaml:"language"`
}

// FFmpegConfig locates the decoder binaries and bounds their calls.
type FFmpegConfig struct {
	BinaryPath            string `yaml:"binary_path"`
	FFprobePath           string `yaml:"ffprobe_path"`
	ProbeTimeoutSeconds   int    `yaml:"probe_timeout_seconds"`
	DecodeTimeoutSeconds  int    `yaml:"decode_timeout_seconds"`
	CaptureTimeoutSeconds int    `yaml:"capture_timeout_seconds"`
}

// OllamaConfig locates the model backend.
type OllamaConfig struct {
	BaseURL        string `yaml:"base_url"`
	Port           int    `yaml:"port"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
}

// Load reads configuration from path, or from a discovered config file, or
// returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		OutputDir: "./output",
		Selection: SelectionConfig{
			FrameBudget:       100,
			MinSpacingSeconds: 0.5,
			PercentileFactor:  1.5,
			SceneFloor:        0.0001,
			CaptureWorkers:    4,
		},
		Analysis: AnalysisConfig{
			BatchSize:    35,
			BatchWorkers: 2,
			Language:     "English",
		},
		FFmpeg: FFmpegConfig{
			BinaryPath:            "ffmpeg",
			FFprobePath:           "ffprobe",
			ProbeTimeoutSeconds:   30,
			DecodeTimeoutSeconds:  600,
			CaptureTimeoutSeconds: 30,
		},
		Ollama: OllamaConfig{
			BaseURL:        "http://localhost",
			Port:           11434,
			Model:          "llama3.2-vision:11b",
			EmbeddingModel: "nomic-embed-text",
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./framesift.yaml",
		"./framesift.yml",
		filepath.Join(os.Getenv("HOME"), ".framesift", "config.yaml"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
