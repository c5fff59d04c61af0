package frames

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/framesift/framesift/internal/media"
)

const defaultCaptureWorkers = 4

// Materializer captures selected frames into a per-video output directory.
type Materializer struct {
	source  media.Source
	logger  *slog.Logger
	workers int
}

// NewMaterializer returns a Materializer writing through the given source.
func NewMaterializer(source media.Source, logger *slog.Logger, workers int) *Materializer {
	if workers <= 0 {
		workers = defaultCaptureWorkers
	}
	return &Materializer{
		source:  source,
		logger:  logger.With("component", "frames"),
		workers: workers,
	}
}

// Materialize captures one still per selected candidate into outDir and
// returns the subset that succeeded, in index order. A failed individual
// capture is logged and skipped; it never aborts the batch. Each frame writes
// a distinct file, so captures run on a small worker pool.
//
// If every capture fails but the video has positive duration, a single
// fallback frame near the start is captured so a probed video always yields
// at least one artifact.
func (m *Materializer) Materialize(ctx context.Context, videoPath, outDir string, selected []media.SceneCandidate, duration float64) ([]Artifact, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %q: %w", outDir, err)
	}

	results := make([]*Artifact, len(selected))
	workChan := make(chan int, len(selected))

	var wg sync.WaitGroup
	for w := 0; w < m.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workChan {
				if ctx.Err() != nil {
					continue
				}
				candidate := selected[i]
				name := FileName(i, candidate.Timestamp)
				outPath := filepath.Join(outDir, name)
				if err := m.source.CaptureFrame(ctx, videoPath, candidate.Timestamp, outPath); err != nil {
					m.logger.Warn("frame capture failed",
						"timestamp", candidate.Timestamp, "error", err)
					continue
				}
				results[i] = &Artifact{
					Index:     i,
					Timestamp: candidate.Timestamp,
					Score:     candidate.Score,
					FilePath:  outPath,
					FileName:  name,
				}
			}
		}()
	}

	for i := range selected {
		workChan <- i
	}
	close(workChan)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	artifacts := make([]Artifact, 0, len(selected))
	for _, a := range results {
		if a != nil {
			artifacts = append(artifacts, *a)
		}
	}

	if len(artifacts) == 0 && duration > 0 {
		fallback, err := m.captureFallback(ctx, videoPath, outDir, duration)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, fallback)
	}

	if len(artifacts) < len(selected) {
		m.logger.Warn("partial capture",
			"requested", len(selected), "captured", len(artifacts))
	}
	return artifacts, nil
}

// captureFallback grabs one frame near the start of the video.
func (m *Materializer) captureFallback(ctx context.Context, videoPath, outDir string, duration float64) (Artifact, error) {
	timestamp := 1.0
	if duration < 2.0 {
		timestamp = duration / 2
	}
	name := FileName(0, timestamp)
	outPath := filepath.Join(outDir, name)
	if err := m.source.CaptureFrame(ctx, videoPath, timestamp, outPath); err != nil {
		return Artifact{}, fmt.Errorf("fallback capture: %w", err)
	}
	m.logger.Info("captured fallback frame", "timestamp", timestamp)
	return Artifact{
		Index:     0,
		Timestamp: timestamp,
		FilePath:  outPath,
		FileName:  name,
	}, nil
}

// List reconstructs the artifacts present in a video's output directory from
// their filenames alone, in index order.
func List(outDir string) ([]Artifact, error) {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading frames directory: %w", err)
	}

	var artifacts []Artifact
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		index, timestamp, err := ParseFileName(entry.Name())
		if err != nil {
			continue
		}
		artifacts = append(artifacts, Artifact{
			Index:     index,
			Timestamp: timestamp,
			FilePath:  filepath.Join(outDir, entry.Name()),
			FileName:  entry.Name(),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Index < artifacts[j].Index
	})
	return artifacts, nil
}
