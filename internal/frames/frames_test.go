package frames

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/framesift/framesift/internal/media"
)

// fakeSource records capture calls and fails the timestamps it is told to.
type fakeSource struct {
	mu       sync.Mutex
	captured []float64
	failAt   map[float64]bool
	failAll  bool
}

func (f *fakeSource) Probe(ctx context.Context, path string) (media.VideoInfo, error) {
	return media.VideoInfo{Path: path, Duration: 60}, nil
}

func (f *fakeSource) SceneScores(ctx context.Context, path string, emit func(media.SceneCandidate)) error {
	return nil
}

func (f *fakeSource) CaptureFrame(ctx context.Context, path string, timestamp float64, outPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll || f.failAt[timestamp] {
		return &media.CaptureError{Path: path, Timestamp: timestamp, Err: fmt.Errorf("seek failed")}
	}
	if err := os.WriteFile(outPath, []byte("jpeg"), 0o644); err != nil {
		return err
	}
	f.captured = append(f.captured, timestamp)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileNameRoundTrip(t *testing.T) {
	name := FileName(7, 83.5)
	if name != "frame_007_83.5s.jpg" {
		t.Fatalf("unexpected name %q", name)
	}
	index, timestamp, err := ParseFileName(name)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if index != 7 || math.Abs(timestamp-83.5) > 1e-9 {
		t.Errorf("got index=%d timestamp=%v", index, timestamp)
	}
}

func TestParseFileNameRejectsForeignFiles(t *testing.T) {
	for _, name := range []string{"analysis.json", "frame_abc.jpg", "frame_001.jpg", "thumb_001_2.0s.jpg"} {
		if _, _, err := ParseFileName(name); err == nil {
			t.Errorf("expected error for %q", name)
		}
	}
}

func TestMaterializeSkipsFailedCaptures(t *testing.T) {
	dir := t.TempDir()
	source := &fakeSource{failAt: map[float64]bool{4.0: true}}
	m := NewMaterializer(source, testLogger(), 2)

	selected := []media.SceneCandidate{
		{Timestamp: 2.0, Score: 0.9},
		{Timestamp: 4.0, Score: 0.8},
		{Timestamp: 6.5, Score: 0.7},
	}
	artifacts, err := m.Materialize(context.Background(), "video.mp4", dir, selected, 60)
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(artifacts))
	}
	// Indexes come from the selection order, so the surviving set keeps its
	// original numbering and the filenames stay derivable.
	if artifacts[0].Index != 0 || artifacts[1].Index != 2 {
		t.Errorf("unexpected indexes: %d, %d", artifacts[0].Index, artifacts[1].Index)
	}
	if artifacts[1].FileName != "frame_002_6.5s.jpg" {
		t.Errorf("unexpected filename %q", artifacts[1].FileName)
	}
	if artifacts[0].Score != 0.9 {
		t.Errorf("score not threaded through: %v", artifacts[0].Score)
	}
}

func TestMaterializeFallbackFrame(t *testing.T) {
	dir := t.TempDir()
	// Every selected capture fails; the fallback at 1.0s succeeds.
	source := &fakeSource{failAt: map[float64]bool{10: true, 25: true}}
	m := NewMaterializer(source, testLogger(), 2)

	selected := []media.SceneCandidate{
		{Timestamp: 10, Score: 0.5},
		{Timestamp: 25, Score: 0.4},
	}
	artifacts, err := m.Materialize(context.Background(), "video.mp4", dir, selected, 60)
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if len(artifacts) != 1 {
		t.Fatalf("expected the fallback artifact, got %d", len(artifacts))
	}
	if artifacts[0].Timestamp != 1.0 {
		t.Errorf("fallback should capture near the start, got %v", artifacts[0].Timestamp)
	}
}

func TestListRebuildsArtifactsFromNames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame_001_4.0s.jpg", "frame_000_1.5s.jpg", "analysis.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	artifacts, err := List(dir)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(artifacts))
	}
	if artifacts[0].Index != 0 || artifacts[0].Timestamp != 1.5 {
		t.Errorf("first artifact = %+v", artifacts[0])
	}
	if artifacts[1].Index != 1 || artifacts[1].Timestamp != 4.0 {
		t.Errorf("second artifact = %+v", artifacts[1])
	}
}
