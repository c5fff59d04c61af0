package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/framesift/framesift/internal/analyzer"
	"github.com/framesift/framesift/internal/embeddings"
	"github.com/framesift/framesift/internal/frames"
)

// PostgresConfig holds connection details for PostgreSQL.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

func (c PostgresConfig) connString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// TranscriptMatch is one similarity-search hit over transcription lines.
type TranscriptMatch struct {
	Timestamp  float64
	Text       string
	Similarity float64
}

// PostgresStore persists videos, frame artifacts, and analysis results, with
// vector search over transcription lines.
type PostgresStore struct {
	pool     *pgxpool.Pool
	embedder *embeddings.Service
	logger   *slog.Logger
}

// NewPostgresStore connects and verifies the database. The embedder may be
// nil, in which case transcription lines are stored without vectors.
func NewPostgresStore(ctx context.Context, config PostgresConfig, embedder *embeddings.Service, logger *slog.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, config.connString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{
		pool:     pool,
		embedder: embedder,
		logger:   logger.With("component", "postgres"),
	}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// SaveVideo upserts the video row, recording the probed duration of record.
func (s *PostgresStore) SaveVideo(ctx context.Context, videoID, name string, durationSeconds int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO videos (id, name, duration_seconds, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = $2, duration_seconds = $3`,
		videoID, name, durationSeconds, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save video: %w", err)
	}
	return nil
}

// SaveFrames replaces the video's frame rows with the materialized set.
func (s *PostgresStore) SaveFrames(ctx context.Context, videoID string, artifacts []frames.Artifact) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM frames WHERE video_id = $1", videoID); err != nil {
		return fmt.Errorf("failed to clear previous frames: %w", err)
	}

	for _, artifact := range artifacts {
		_, err := tx.Exec(ctx,
			`INSERT INTO frames (video_id, frame_index, file_name, timestamp, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			videoID, artifact.Index, artifact.FileName, artifact.Timestamp, time.Now())
		if err != nil {
			return fmt.Errorf("failed to store frame %s: %w", artifact.FileName, err)
		}
	}

	return tx.Commit(ctx)
}

// SaveAnalysis stores the analysis result and its transcription lines. Each
// line gets an embedding when an embedder is available; embedding failures
// are logged and the line stored without a vector.
func (s *PostgresStore) SaveAnalysis(ctx context.Context, videoID string, result *analyzer.AnalysisResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM analyses WHERE video_id = $1", videoID); err != nil {
		return fmt.Errorf("failed to clear previous analysis: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM transcript_lines WHERE video_id = $1", videoID); err != nil {
		return fmt.Errorf("failed to clear previous transcript: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO analyses
		(video_id, summary, sentiment, key_points, topics, visual_elements, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		videoID, result.Summary, result.Sentiment,
		result.KeyPoints, result.Topics, result.VisualElements, time.Now())
	if err != nil {
		return fmt.Errorf("failed to store analysis: %w", err)
	}

	vectors := s.embedTranscription(ctx, result.Transcription)
	for i, line := range result.Transcription {
		_, err := tx.Exec(ctx,
			`INSERT INTO transcript_lines (video_id, timestamp, content, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			videoID, line.Timestamp, line.Text, vectors[i], time.Now())
		if err != nil {
			return fmt.Errorf("failed to store transcript line: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// embedTranscription runs one embedding per line through the worker pool.
// Empty lines and failed embeddings yield a nil vector, stored as NULL.
func (s *PostgresStore) embedTranscription(ctx context.Context, lines []analyzer.TranscriptionLine) []any {
	vectors := make([]any, len(lines))
	if s.embedder == nil {
		return vectors
	}

	var texts []string
	var indexes []int
	for i, line := range lines {
		if line.Text != "" {
			texts = append(texts, line.Text)
			indexes = append(indexes, i)
		}
	}

	for j, r := range s.embedder.EmbedAll(ctx, texts) {
		if r.Error != nil {
			s.logger.Warn("failed to generate embedding",
				"timestamp", lines[indexes[j]].Timestamp, "error", r.Error)
			continue
		}
		vectors[indexes[j]] = pgvector.NewVector(r.Embedding)
	}
	return vectors
}

// SearchTranscription finds transcription lines similar to the query.
func (s *PostgresStore) SearchTranscription(ctx context.Context, videoID, query string, limit int) ([]TranscriptMatch, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("search requires an embedding service")
	}
	queryEmbedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT timestamp, content, 1 - (embedding <=> $1) AS similarity
		FROM transcript_lines
		WHERE video_id = $2 AND embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $3`,
		pgvector.NewVector(queryEmbedding), videoID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search transcript: %w", err)
	}
	defer rows.Close()

	var matches []TranscriptMatch
	for rows.Next() {
		var m TranscriptMatch
		if err := rows.Scan(&m.Timestamp, &m.Text, &m.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan search results: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// DeleteVideo removes the video row; frames, analyses, and transcript lines
// cascade.
func (s *PostgresStore) DeleteVideo(ctx context.Context, videoID string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM videos WHERE id = $1", videoID)
	return err
}

// InitSchema creates the database schema if it doesn't exist.
func InitSchema(ctx context.Context, config PostgresConfig) error {
	conn, err := pgx.Connect(ctx, config.connString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	_, err = conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS videos (
            id VARCHAR(64) PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            duration_seconds INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL
        );

        CREATE TABLE IF NOT EXISTS frames (
            id SERIAL PRIMARY KEY,
            video_id VARCHAR(64) REFERENCES videos(id) ON DELETE CASCADE,
            frame_index INTEGER NOT NULL,
            file_name VARCHAR(255) NOT NULL,
            timestamp DOUBLE PRECISION NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            UNIQUE(video_id, frame_index)
        );

        CREATE TABLE IF NOT EXISTS analyses (
            id SERIAL PRIMARY KEY,
            video_id VARCHAR(64) REFERENCES videos(id) ON DELETE CASCADE,
            summary TEXT NOT NULL,
            sentiment VARCHAR(32) NOT NULL,
            key_points TEXT[] NOT NULL DEFAULT '{}',
            topics TEXT[] NOT NULL DEFAULT '{}',
            visual_elements TEXT[] NOT NULL DEFAULT '{}',
            created_at TIMESTAMPTZ NOT NULL
        );

        CREATE TABLE IF NOT EXISTS transcript_lines (
            id SERIAL PRIMARY KEY,
            video_id VARCHAR(64) REFERENCES videos(id) ON DELETE CASCADE,
            timestamp DOUBLE PRECISION NOT NULL,
            content TEXT NOT NULL,
            embedding vector(768),
            created_at TIMESTAMPTZ NOT NULL
        );
    `)
	if err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}

	_, err = conn.Exec(ctx, `
        CREATE INDEX IF NOT EXISTS idx_frames_video_id ON frames(video_id);
        CREATE INDEX IF NOT EXISTS idx_analyses_video_id ON analyses(video_id);
        CREATE INDEX IF NOT EXISTS idx_transcript_video_id ON transcript_lines(video_id);
        CREATE INDEX IF NOT EXISTS idx_transcript_embedding ON transcript_lines
            USING ivfflat (embedding vector_l2_ops) WITH (lists = 100);
    `)
	if err != nil {
		return fmt.Errorf("failed to create database indexes: %w", err)
	}

	return nil
}
