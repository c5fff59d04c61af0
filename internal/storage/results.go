// Package storage persists analysis results: a JSON file in each video's
// output directory, plus an optional Postgres store with vector search.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/framesift/framesift/internal/analyzer"
)

const resultFileName = "analysis.json"

// ResultStore writes per-video analysis files under a shared output root.
// Each video owns outputDir/<videoID>/; frames and the result file live side
// by side and are deleted together.
type ResultStore struct {
	outputDir string
}

// NewResultStore returns a store rooted at outputDir.
func NewResultStore(outputDir string) *ResultStore {
	return &ResultStore{outputDir: outputDir}
}

// VideoDir resolves a video's namespaced directory.
func (s *ResultStore) VideoDir(videoID string) string {
	return filepath.Join(s.outputDir, videoID)
}

// SaveResult writes the result atomically so a poll never reads a torn file.
func (s *ResultStore) SaveResult(videoID string, result *analyzer.AnalysisResult) error {
	dir := s.VideoDir(videoID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating video directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling analysis result: %w", err)
	}

	tmp := filepath.Join(dir, resultFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing result temp file: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, resultFileName)); err != nil {
		return fmt.Errorf("persisting result file: %w", err)
	}
	return nil
}

// LoadResult reads a previously saved result.
func (s *ResultStore) LoadResult(videoID string) (*analyzer.AnalysisResult, error) {
	data, err := os.ReadFile(filepath.Join(s.VideoDir(videoID), resultFileName))
	if err != nil {
		return nil, fmt.Errorf("reading result file: %w", err)
	}
	var result analyzer.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshalling result file: %w", err)
	}
	return &result, nil
}

// DeleteVideo removes the video's directory, frames and result included.
func (s *ResultStore) DeleteVideo(videoID string) error {
	return os.RemoveAll(s.VideoDir(videoID))
}
