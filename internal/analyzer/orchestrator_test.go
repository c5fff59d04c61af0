package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/framesift/framesift/internal/frames"
)

// fakeBackend records call shapes and replays canned results.
type fakeBackend struct {
	mu             sync.Mutex
	holistic       HolisticAnalysis
	holisticErr    error
	transcribeErr  error
	importantSeen  []frames.Artifact
	batchSizes     []int
	dropEveryOther bool
}

func (f *fakeBackend) AnalyzeImportant(ctx context.Context, important []frames.Artifact, language string) (HolisticAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.importantSeen = append([]frames.Artifact(nil), important...)
	return f.holistic, f.holisticErr
}

func (f *fakeBackend) TranscribeBatch(ctx context.Context, batch []frames.Artifact, holistic HolisticAnalysis, language string) ([]TranscriptionLine, error) {
	f.mu.Lock()
	f.batchSizes = append(f.batchSizes, len(batch))
	f.mu.Unlock()
	if f.transcribeErr != nil {
		return nil, f.transcribeErr
	}
	var lines []TranscriptionLine
	for i, frame := range batch {
		if f.dropEveryOther && i%2 == 1 {
			continue
		}
		lines = append(lines, TranscriptionLine{
			Timestamp: frame.Timestamp,
			Text:      fmt.Sprintf("frame at %.1f", frame.Timestamp),
		})
	}
	return lines, nil
}

func makeArtifacts(n int) []frames.Artifact {
	artifacts := make([]frames.Artifact, n)
	for i := range artifacts {
		artifacts[i] = frames.Artifact{
			Index:     i,
			Timestamp: float64(i) * 2,
			Score:     float64(n-i) / float64(n), // earlier frames score higher
			FileName:  frames.FileName(i, float64(i)*2),
		}
	}
	return artifacts
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAnalyzeImportantSubsetChronology(t *testing.T) {
	backend := &fakeBackend{holistic: HolisticAnalysis{Summary: "s", Sentiment: "neutral"}}
	o := NewOrchestrator(backend, discardLogger(), 35, 1, "")

	artifacts := makeArtifacts(25)
	// Give the highest scores to scattered late frames so importance order
	// and chronological order differ.
	artifacts[20].Score = 0.99
	artifacts[3].Score = 0.98
	artifacts[15].Score = 0.97

	if _, err := o.Analyze(context.Background(), artifacts, 50, nil); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(backend.importantSeen) != 10 {
		t.Fatalf("important subset size = %d, want 10", len(backend.importantSeen))
	}
	for i := 1; i < len(backend.importantSeen); i++ {
		if backend.importantSeen[i].Timestamp < backend.importantSeen[i-1].Timestamp {
			t.Fatalf("important subset not chronological: %+v", backend.importantSeen)
		}
	}
}

func TestAnalyzeTranscriptionCoverage(t *testing.T) {
	backend := &fakeBackend{holistic: HolisticAnalysis{Summary: "s"}}
	o := NewOrchestrator(backend, discardLogger(), 35, 3, "")

	artifacts := makeArtifacts(83) // 35 + 35 + 13
	result, err := o.Analyze(context.Background(), artifacts, 166, nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(result.Transcription) != len(artifacts) {
		t.Fatalf("transcription lines = %d, want one per frame (%d)",
			len(result.Transcription), len(artifacts))
	}
	for i, line := range result.Transcription {
		if line.Timestamp != artifacts[i].Timestamp {
			t.Fatalf("line %d out of order: got %.1f want %.1f",
				i, line.Timestamp, artifacts[i].Timestamp)
		}
	}
	if len(backend.batchSizes) != 3 {
		t.Errorf("expected 3 batches, got %v", backend.batchSizes)
	}
}

func TestAnalyzePadsFramesTheModelSkipped(t *testing.T) {
	backend := &fakeBackend{
		holistic:       HolisticAnalysis{Summary: "s"},
		dropEveryOther: true,
	}
	o := NewOrchestrator(backend, discardLogger(), 10, 1, "")

	artifacts := makeArtifacts(10)
	result, err := o.Analyze(context.Background(), artifacts, 20, nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(result.Transcription) != 10 {
		t.Fatalf("skipped frames must still yield lines, got %d", len(result.Transcription))
	}
	if result.Transcription[1].Text != "" {
		t.Errorf("expected empty text for skipped frame, got %q", result.Transcription[1].Text)
	}
	if result.Transcription[2].Text == "" {
		t.Errorf("narrated frame lost its text")
	}
}

func TestAnalyzeDefaultsAndDeduplication(t *testing.T) {
	backend := &fakeBackend{
		holistic: HolisticAnalysis{
			Summary: "s",
			Topics:  []string{"a", "b", "a", "c", "b"},
			// Sentiment intentionally empty.
		},
	}
	o := NewOrchestrator(backend, discardLogger(), 35, 1, "")

	result, err := o.Analyze(context.Background(), makeArtifacts(5), 9.6, nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Sentiment != "neutral" {
		t.Errorf("missing sentiment should default to neutral, got %q", result.Sentiment)
	}
	if len(result.Topics) != 3 {
		t.Errorf("topics not deduplicated: %v", result.Topics)
	}
	if result.KeyPoints == nil || result.VisualElements == nil {
		t.Error("missing fields should default to empty collections")
	}
	if result.DurationSeconds != 10 {
		t.Errorf("duration should round to whole seconds, got %d", result.DurationSeconds)
	}
}

func TestAnalyzeSurfacesMalformedResponse(t *testing.T) {
	backend := &fakeBackend{
		holistic:      HolisticAnalysis{Summary: "s"},
		transcribeErr: &MalformedResponseError{Raw: "{summary: bad json"},
	}
	o := NewOrchestrator(backend, discardLogger(), 35, 1, "")

	_, err := o.Analyze(context.Background(), makeArtifacts(5), 10, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError in chain, got %v", err)
	}
}

func TestAnalyzeReportsBatchProgress(t *testing.T) {
	backend := &fakeBackend{holistic: HolisticAnalysis{Summary: "s"}}
	o := NewOrchestrator(backend, discardLogger(), 10, 1, "")

	var calls []int
	_, err := o.Analyze(context.Background(), makeArtifacts(25), 50, func(done, total int) {
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
		calls = append(calls, done)
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(calls) != 3 || calls[len(calls)-1] != 3 {
		t.Errorf("progress calls = %v", calls)
	}
}
