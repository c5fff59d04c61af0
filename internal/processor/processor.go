// Package processor runs the end-to-end pipeline for one video: probe,
// scene-score decode, adaptive selection, frame capture, tiered analysis,
// and result persistence, reporting progress through the job state machine.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/framesift/framesift/internal/analyzer"
	"github.com/framesift/framesift/internal/config"
	"github.com/framesift/framesift/internal/frames"
	"github.com/framesift/framesift/internal/job"
	"github.com/framesift/framesift/internal/media"
	"github.com/framesift/framesift/internal/selector"
	"github.com/framesift/framesift/internal/storage"
)

// Video identifies one upload to process.
type Video struct {
	ID   string
	Name string
	Path string
}

// Pipeline wires the stages together. Stages within one job run strictly
// sequentially; the Manager runs pipelines for different videos concurrently.
type Pipeline struct {
	source       media.Source
	orchestrator *analyzer.Orchestrator
	machine      *job.Machine
	results      *storage.ResultStore
	db           *storage.PostgresStore
	cfg          *config.Config
	logger       *slog.Logger
}

// NewPipeline builds a pipeline. db may be nil to disable database
// persistence.
func NewPipeline(source media.Source, backend analyzer.Backend, machine *job.Machine, results *storage.ResultStore, db *storage.PostgresStore, cfg *config.Config, logger *slog.Logger) *Pipeline {
	orchestrator := analyzer.NewOrchestrator(
		backend,
		logger,
		cfg.Analysis.BatchSize,
		cfg.Analysis.BatchWorkers,
		cfg.Analysis.Language,
	)
	return &Pipeline{
		source:       source,
		orchestrator: orchestrator,
		machine:      machine,
		results:      results,
		db:           db,
		cfg:          cfg,
		logger:       logger.With("component", "processor"),
	}
}

// Process runs the pipeline and always resolves the job to completed or
// failed; an error from any stage is routed to the fail transition, never
// left as a stuck pending/processing job.
func (p *Pipeline) Process(ctx context.Context, video Video, jobID string) {
	start := time.Now()
	if err := p.run(ctx, video, jobID); err != nil {
		p.logger.Error("processing failed",
			"video", video.ID, "job", jobID, "error", err)
		if failErr := p.machine.Fail(jobID, err.Error()); failErr != nil {
			p.logger.Error("could not record failure", "job", jobID, "error", failErr)
		}
		return
	}
	if err := p.machine.Complete(jobID); err != nil {
		p.logger.Error("could not record completion", "job", jobID, "error", err)
		return
	}
	p.logger.Info("processing complete",
		"video", video.ID, "job", jobID, "elapsed", time.Since(start))
}

func (p *Pipeline) run(ctx context.Context, video Video, jobID string) error {
	advance := func(progress int, stage string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return p.machine.Advance(jobID, progress, stage)
	}

	if err := advance(5, "Probing duration"); err != nil {
		return err
	}
	info, err := p.source.Probe(ctx, video.Path)
	if err != nil {
		return err
	}

	if err := advance(10, "Detecting scene changes"); err != nil {
		return err
	}
	var candidates []media.SceneCandidate
	if err := p.source.SceneScores(ctx, video.Path, func(c media.SceneCandidate) {
		candidates = append(candidates, c)
	}); err != nil {
		return err
	}
	p.logger.Info("scene decode complete",
		"video", video.ID, "candidates", len(candidates))

	if err := advance(35, "Selecting frames"); err != nil {
		return err
	}
	selected := selector.Select(candidates, selector.Params{
		Budget:           p.cfg.Selection.FrameBudget,
		MinSpacing:       p.cfg.Selection.MinSpacingSeconds,
		Floor:            p.cfg.Selection.SceneFloor,
		PercentileFactor: p.cfg.Selection.PercentileFactor,
	})

	if err := advance(40, "Extracting frames"); err != nil {
		return err
	}
	materializer := frames.NewMaterializer(p.source, p.logger, p.cfg.Selection.CaptureWorkers)
	artifacts, err := materializer.Materialize(ctx, video.Path, p.results.VideoDir(video.ID), selected, info.Duration)
	if err != nil {
		return err
	}
	if len(artifacts) == 0 {
		return fmt.Errorf("no frames could be extracted from %q", video.Name)
	}

	if err := advance(60, "Analyzing key frames"); err != nil {
		return err
	}
	result, err := p.orchestrator.Analyze(ctx, artifacts, info.Duration, func(done, total int) {
		progress := 65 + 30*done/total
		if err := p.machine.Advance(jobID, progress, "Transcribing frames"); err != nil {
			p.logger.Warn("progress update rejected", "job", jobID, "error", err)
		}
	})
	if err != nil {
		return err
	}

	if err := advance(98, "Saving results"); err != nil {
		return err
	}
	if err := p.results.SaveResult(video.ID, result); err != nil {
		return err
	}
	if p.db != nil {
		if err := p.persistToDatabase(ctx, video, artifacts, result); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) persistToDatabase(ctx context.Context, video Video, artifacts []frames.Artifact, result *analyzer.AnalysisResult) error {
	if err := p.db.SaveVideo(ctx, video.ID, video.Name, result.DurationSeconds); err != nil {
		return err
	}
	if err := p.db.SaveFrames(ctx, video.ID, artifacts); err != nil {
		return err
	}
	return p.db.SaveAnalysis(ctx, video.ID, result)
}
