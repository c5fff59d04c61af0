// Package analyzer drives the two-tier AI analysis: one holistic call over a
// small important subset, then dense per-frame narration over the full set.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/framesift/framesift/internal/frames"
)

const (
	// importantSubsetSize caps the frames sent to the holistic call.
	importantSubsetSize = 10
	// defaultBatchSize is how many frames one transcription call covers.
	defaultBatchSize = 35
	// defaultBatchWorkers bounds concurrent transcription calls.
	defaultBatchWorkers = 2
)

// Orchestrator coordinates the tiered analysis calls and merges their
// results.
type Orchestrator struct {
	backend   Backend
	logger    *slog.Logger
	batchSize int
	workers   int
	language  string
}

// NewOrchestrator returns an orchestrator over the given backend. batchSize
// and workers fall back to defaults when non-positive.
func NewOrchestrator(backend Backend, logger *slog.Logger, batchSize, workers int, language string) *Orchestrator {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if workers <= 0 {
		workers = defaultBatchWorkers
	}
	return &Orchestrator{
		backend:   backend,
		logger:    logger.With("component", "analyzer"),
		batchSize: batchSize,
		workers:   workers,
		language:  language,
	}
}

// Analyze produces one AnalysisResult from the materialized frames and the
// probed duration. onBatch, if non-nil, is called after each completed
// transcription batch with (done, total).
func (o *Orchestrator) Analyze(ctx context.Context, artifacts []frames.Artifact, duration float64, onBatch func(done, total int)) (*AnalysisResult, error) {
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("no frames to analyze")
	}

	important := importantSubset(artifacts)
	o.logger.Info("running holistic analysis",
		"frames", len(artifacts), "important", len(important))

	holistic, err := o.backend.AnalyzeImportant(ctx, important, o.language)
	if err != nil {
		return nil, fmt.Errorf("holistic analysis: %w", err)
	}
	holistic.Topics = dedupeTopics(holistic.Topics)
	if holistic.Sentiment == "" {
		holistic.Sentiment = "neutral"
	}

	transcription, err := o.transcribeAll(ctx, artifacts, holistic, onBatch)
	if err != nil {
		return nil, err
	}

	return &AnalysisResult{
		Summary:         holistic.Summary,
		KeyPoints:       emptyIfNil(holistic.KeyPoints),
		Topics:          emptyIfNil(holistic.Topics),
		Sentiment:       holistic.Sentiment,
		VisualElements:  emptyIfNil(holistic.VisualElements),
		Transcription:   transcription,
		DurationSeconds: int(math.Round(duration)),
	}, nil
}

// importantSubset picks the top frames by scene score, then re-sorts them by
// timestamp: the holistic call must read its frames chronologically even
// though they were chosen by importance.
func importantSubset(artifacts []frames.Artifact) []frames.Artifact {
	byScore := make([]frames.Artifact, len(artifacts))
	copy(byScore, artifacts)
	sort.SliceStable(byScore, func(i, j int) bool {
		return byScore[i].Score > byScore[j].Score
	})

	n := importantSubsetSize
	if len(byScore) < n {
		n = len(byScore)
	}
	subset := byScore[:n]

	sort.Slice(subset, func(i, j int) bool {
		return subset[i].Timestamp < subset[j].Timestamp
	})
	return subset
}

// transcribeAll partitions the full frame set into fixed-size batches and
// narrates each. Batches run on a small worker pool but the output keeps
// batch and intra-batch order: transcription order is part of the contract.
func (o *Orchestrator) transcribeAll(ctx context.Context, artifacts []frames.Artifact, holistic HolisticAnalysis, onBatch func(done, total int)) ([]TranscriptionLine, error) {
	batches := partition(artifacts, o.batchSize)
	results := make([][]TranscriptionLine, len(batches))
	errs := make([]error, len(batches))

	workChan := make(chan int, len(batches))
	var wg sync.WaitGroup
	var done int
	var doneMu sync.Mutex

	workers := o.workers
	if workers > len(batches) {
		workers = len(batches)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workChan {
				if ctx.Err() != nil {
					errs[i] = ctx.Err()
					continue
				}
				lines, err := o.backend.TranscribeBatch(ctx, batches[i], holistic, o.language)
				if err != nil {
					errs[i] = fmt.Errorf("transcribing batch %d/%d: %w", i+1, len(batches), err)
					continue
				}
				results[i] = alignLines(batches[i], lines)

				doneMu.Lock()
				done++
				current := done
				doneMu.Unlock()
				if onBatch != nil {
					onBatch(current, len(batches))
				}
			}
		}()
	}

	for i := range batches {
		workChan <- i
	}
	close(workChan)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var transcription []TranscriptionLine
	for _, lines := range results {
		transcription = append(transcription, lines...)
	}
	return transcription, nil
}

// alignLines forces exactly one line per frame, in frame order. The model's
// text is matched to frames by timestamp when it echoed them back, by
// position otherwise; frames the model skipped get an empty line rather than
// shifting everything after them.
func alignLines(batch []frames.Artifact, lines []TranscriptionLine) []TranscriptionLine {
	byTimestamp := make(map[int64]string, len(lines))
	for _, line := range lines {
		key := int64(math.Round(line.Timestamp * 10))
		if _, ok := byTimestamp[key]; !ok {
			byTimestamp[key] = line.Text
		}
	}

	aligned := make([]TranscriptionLine, len(batch))
	for i, frame := range batch {
		text, ok := byTimestamp[int64(math.Round(frame.Timestamp*10))]
		if !ok && i < len(lines) && len(lines) == len(batch) {
			text = lines[i].Text
		}
		aligned[i] = TranscriptionLine{Timestamp: frame.Timestamp, Text: text}
	}
	return aligned
}

func partition(artifacts []frames.Artifact, size int) [][]frames.Artifact {
	var batches [][]frames.Artifact
	for start := 0; start < len(artifacts); start += size {
		end := start + size
		if end > len(artifacts) {
			end = len(artifacts)
		}
		batches = append(batches, artifacts[start:end])
	}
	return batches
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
