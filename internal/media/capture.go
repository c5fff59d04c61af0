package media

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CaptureFrame grabs a single still image at the given timestamp. A seek past
// EOF or a decode hiccup fails only this capture, not the batch.
func (s *FFmpegSource) CaptureFrame(ctx context.Context, path string, timestamp float64, outPath string) error {
	if outPath == "" {
		return &CaptureError{Path: path, Timestamp: timestamp, Err: fmt.Errorf("output path is required")}
	}

	ctx, cancel := withTimeout(ctx, s.cfg.CaptureTimeout)
	defer cancel()

	args := []string{
		"-y",
		"-hide_banner",
		"-ss", fmt.Sprintf("%.3f", timestamp),
		"-i", path,
		"-vframes", "1",
		"-q:v", "2",
		outPath,
	}

	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &CaptureError{Path: path, Timestamp: timestamp, Err: fmt.Errorf("ffmpeg failed: %w: %s", err, lastLine(output))}
	}
	return nil
}

// lastLine trims ffmpeg's combined output down to its final non-empty line,
// which is where it reports the actual failure.
func lastLine(output []byte) string {
	s := strings.TrimRight(string(output), "\r\n\t ")
	if i := strings.LastIndexAny(s, "\r\n"); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
