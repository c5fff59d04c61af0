// Package media wraps the external decoder tools (ffmpeg/ffprobe) behind a
// Source interface so the pipeline can be tested against fakes.
package media

import (
	"context"
)

// VideoInfo describes a probed media file.
type VideoInfo struct {
	Path     string
	Size     int64
	Duration float64 // seconds
}

// SceneCandidate is a single frame's scene-change measurement. Score is the
// decoder's estimate of how visually different the frame is from its
// predecessor, in [0,1].
type SceneCandidate struct {
	Timestamp float64 `json:"timestamp"`
	Score     float64 `json:"score"`
}

// Source provides access to a seekable video file through the decoder tools.
//
// SceneScores streams candidates through emit as the decode pass produces
// them; the sequence is finite, lazy, and not restartable. CaptureFrame grabs
// a single still at the given timestamp.
type Source interface {
	Probe(ctx context.Context, path string) (VideoInfo, error)
	SceneScores(ctx context.Context, path string, emit func(SceneCandidate)) error
	CaptureFrame(ctx context.Context, path string, timestamp float64, outPath string) error
}
