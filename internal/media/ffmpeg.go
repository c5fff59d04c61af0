package media

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// FFmpegConfig tunes the subprocess invocations.
type FFmpegConfig struct {
	FFmpegPath  string
	FFprobePath string
	// SceneFloor is the minimum scene score the decode pass reports. Kept
	// near zero so downstream selection, not the decoder, decides what
	// matters.
	SceneFloor float64
	// Per-call timeouts. Zero means no bound.
	ProbeTimeout   time.Duration
	DecodeTimeout  time.Duration
	CaptureTimeout time.Duration
}

// FFmpegSource implements Source by shelling out to ffmpeg/ffprobe.
type FFmpegSource struct {
	logger      *slog.Logger
	ffmpegPath  string
	ffprobePath string
	cfg         FFmpegConfig
}

// NewFFmpegSource resolves the decoder binaries and returns a Source.
// Returns ErrToolUnavailable if either binary is missing.
func NewFFmpegSource(logger *slog.Logger, cfg FFmpegConfig) (*FFmpegSource, error) {
	ffmpeg := cfg.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	ffprobe := cfg.FFprobePath
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}

	ffmpegPath, err := exec.LookPath(ffmpeg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrToolUnavailable, err)
	}
	ffprobePath, err := exec.LookPath(ffprobe)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrToolUnavailable, err)
	}

	if cfg.SceneFloor <= 0 {
		cfg.SceneFloor = 0.0001
	}

	return &FFmpegSource{
		logger:      logger.With("component", "media"),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		cfg:         cfg,
	}, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
