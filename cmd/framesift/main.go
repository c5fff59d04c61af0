package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/framesift/framesift/internal/analyzer"
	"github.com/framesift/framesift/internal/api"
	"github.com/framesift/framesift/internal/config"
	"github.com/framesift/framesift/internal/embeddings"
	"github.com/framesift/framesift/internal/job"
	"github.com/framesift/framesift/internal/media"
	"github.com/framesift/framesift/internal/processor"
	"github.com/framesift/framesift/internal/storage"
)

func main() {
	ctx := context.Background()

	videoPath := flag.String("video", "", "path to the video file to analyze")
	outputDir := flag.String("output", "", "output directory (overrides config)")
	configPath := flag.String("config", "", "path to config file")
	serve := flag.Bool("serve", false, "run the HTTP server instead of a one-shot analysis")
	addr := flag.String("addr", ":8080", "listen address for --serve")
	initDB := flag.Bool("init-db", false, "create the database schema and exit")
	flag.Parse()

	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: "15:04:05",
		}),
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("could not load config", "error", err)
		os.Exit(1)
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	if *initDB {
		if cfg.Postgres == nil {
			logger.Error("no postgres section in config")
			os.Exit(1)
		}
		if err := storage.InitSchema(ctx, *cfg.Postgres); err != nil {
			logger.Error("schema init failed", "error", err)
			os.Exit(1)
		}
		fmt.Println("Database schema ready.")
		return
	}

	source, err := media.NewFFmpegSource(logger, media.FFmpegConfig{
		FFmpegPath:     cfg.FFmpeg.BinaryPath,
		FFprobePath:    cfg.FFmpeg.FFprobePath,
		SceneFloor:     cfg.Selection.SceneFloor,
		ProbeTimeout:   time.Duration(cfg.FFmpeg.ProbeTimeoutSeconds) * time.Second,
		DecodeTimeout:  time.Duration(cfg.FFmpeg.DecodeTimeoutSeconds) * time.Second,
		CaptureTimeout: time.Duration(cfg.FFmpeg.CaptureTimeoutSeconds) * time.Second,
	})
	if err != nil {
		logger.Error("decoder tools unavailable", "error", err)
		os.Exit(1)
	}

	visionAgent, err := analyzer.NewAgent(ctx, logger, analyzer.AgentConfig{
		BaseURL: cfg.Ollama.BaseURL,
		Port:    cfg.Ollama.Port,
		Model:   cfg.Ollama.Model,
	})
	if err != nil {
		logger.Error("could not initialize vision agent", "error", err)
		os.Exit(1)
	}
	backend := analyzer.NewAgentBackend(visionAgent)

	machine := job.NewMachine(job.NewMemoryStore())
	results := storage.NewResultStore(cfg.OutputDir)

	var db *storage.PostgresStore
	if cfg.Postgres != nil {
		embedder := embeddings.NewService(embeddings.Config{
			BaseURL: fmt.Sprintf("%s:%d", cfg.Ollama.BaseURL, cfg.Ollama.Port),
			Model:   cfg.Ollama.EmbeddingModel,
		})
		defer embedder.Close()

		db, err = storage.NewPostgresStore(ctx, *cfg.Postgres, embedder, logger)
		if err != nil {
			logger.Error("could not connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	pipeline := processor.NewPipeline(source, backend, machine, results, db, cfg, logger)
	manager := processor.NewManager(pipeline, machine, logger)

	if *serve {
		server := api.NewServer(manager, results, db, filepath.Join(cfg.OutputDir, "uploads"), logger)
		logger.Info("listening", "addr", *addr)
		if err := server.Run(*addr); err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
		return
	}

	if *videoPath == "" {
		fmt.Println("Usage: framesift --video path/to/video.mp4 [--output output_directory]")
		fmt.Println("       framesift --serve [--addr :8080]")
		os.Exit(1)
	}

	videoName := filepath.Base(*videoPath)
	videoID := strings.TrimSuffix(videoName, filepath.Ext(videoName))

	fmt.Printf("Starting video analysis...\n")
	j, err := manager.Submit(processor.Video{ID: videoID, Name: videoName, Path: *videoPath})
	if err != nil {
		logger.Error("could not enqueue job", "error", err)
		os.Exit(1)
	}

	watchJob(manager, j.ID)
	manager.Wait()

	final, err := manager.Status(j.ID)
	if err != nil {
		logger.Error("job vanished", "error", err)
		os.Exit(1)
	}
	if final.Status == job.StatusFailed {
		fmt.Printf("Analysis failed: %s\n", final.ErrorMessage)
		os.Exit(1)
	}
	fmt.Printf("Video processing completed successfully!\n")
	fmt.Printf("Results written to %s\n", filepath.Join(results.VideoDir(videoID), "analysis.json"))
}

// watchJob prints stage transitions until the job resolves.
func watchJob(manager *processor.Manager, jobID string) {
	var lastStage string
	var lastProgress int
	for {
		j, err := manager.Status(jobID)
		if err != nil {
			return
		}
		if j.CurrentStage != lastStage || j.Progress != lastProgress {
			fmt.Printf("[%3d%%] %s\n", j.Progress, j.CurrentStage)
			lastStage = j.CurrentStage
			lastProgress = j.Progress
		}
		if j.IsTerminal() {
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
}
