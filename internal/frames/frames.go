// Package frames materializes selected timestamps into still-image artifacts
// on disk.
//
// The filename scheme is a contract with the UI shell, which re-derives
// timestamps from filenames instead of asking the database: index padded to
// three digits, timestamp with exactly one decimal place.
package frames

import (
	"fmt"
	"strings"
)

// Artifact is one successfully captured frame. Score carries the scene score
// through from selection so the analysis tier never recomputes it.
type Artifact struct {
	Index     int     `json:"index"`
	Timestamp float64 `json:"timestamp"`
	Score     float64 `json:"-"`
	FilePath  string  `json:"filePath"`
	FileName  string  `json:"fileName"`
}

// FileName renders the deterministic artifact name, e.g. frame_007_83.5s.jpg.
func FileName(index int, timestamp float64) string {
	return fmt.Sprintf("frame_%03d_%.1fs.jpg", index, timestamp)
}

// ParseFileName recovers index and timestamp from an artifact name.
func ParseFileName(name string) (index int, timestamp float64, err error) {
	if !strings.HasPrefix(name, "frame_") || !strings.HasSuffix(name, "s.jpg") {
		return 0, 0, fmt.Errorf("not a frame artifact name: %q", name)
	}
	if _, err := fmt.Sscanf(name, "frame_%d_%fs.jpg", &index, &timestamp); err != nil {
		return 0, 0, fmt.Errorf("invalid frame filename format %q: %w", name, err)
	}
	return index, timestamp, nil
}
