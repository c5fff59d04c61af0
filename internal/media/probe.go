package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// probeResult matches the ffprobe JSON output structure.
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
	} `json:"format"`
}

// Probe returns the file's metadata, including its duration in seconds.
func (s *FFmpegSource) Probe(ctx context.Context, path string) (VideoInfo, error) {
	if path == "" {
		return VideoInfo{}, &ProbeError{Path: path, Err: fmt.Errorf("file path is required")}
	}
	if _, err := os.Stat(path); err != nil {
		return VideoInfo{}, &ProbeError{Path: path, Err: err}
	}

	ctx, cancel := withTimeout(ctx, s.cfg.ProbeTimeout)
	defer cancel()

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	}

	cmd := exec.CommandContext(ctx, s.ffprobePath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return VideoInfo{}, &ProbeError{Path: path, Err: fmt.Errorf("ffprobe failed: %w", err)}
	}

	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return VideoInfo{}, &ProbeError{Path: path, Err: fmt.Errorf("parsing ffprobe output: %w", err)}
	}

	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return VideoInfo{}, &ProbeError{Path: path, Err: fmt.Errorf("no duration in ffprobe output")}
	}

	info := VideoInfo{Path: path, Duration: duration}
	if size, err := strconv.ParseInt(probe.Format.Size, 10, 64); err == nil {
		info.Size = size
	}

	s.logger.Debug("probed video", "path", path, "duration", duration)
	return info, nil
}
