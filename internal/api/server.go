// Package api exposes the pipeline over a thin HTTP surface. Uploads return
// immediately with a job id; clients poll the job until it resolves.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/framesift/framesift/internal/frames"
	"github.com/framesift/framesift/internal/job"
	"github.com/framesift/framesift/internal/processor"
	"github.com/framesift/framesift/internal/storage"
)

// Server holds the handler dependencies.
type Server struct {
	manager   *processor.Manager
	results   *storage.ResultStore
	db        *storage.PostgresStore
	uploadDir string
	logger    *slog.Logger
}

// NewServer builds the HTTP layer. db may be nil; the search route then
// reports the feature as unavailable.
func NewServer(manager *processor.Manager, results *storage.ResultStore, db *storage.PostgresStore, uploadDir string, logger *slog.Logger) *Server {
	return &Server{
		manager:   manager,
		results:   results,
		db:        db,
		uploadDir: uploadDir,
		logger:    logger.With("component", "api"),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/health", s.health)

	api := r.Group("/api")
	{
		api.POST("/videos", s.uploadVideo)
		api.DELETE("/videos/:id", s.deleteVideo)
		api.GET("/videos/:id/frames", s.listFrames)
		api.GET("/videos/:id/analysis", s.getAnalysis)
		api.GET("/videos/:id/search", s.searchTranscription)

		api.GET("/jobs/:id", s.getJob)
		api.POST("/jobs/:id/retry", s.retryJob)
	}
	return r
}

// Run starts the server on addr and blocks.
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) uploadVideo(c *gin.Context) {
	file, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no video file received"})
		return
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create upload directory"})
		return
	}

	videoID := uuid.NewString()
	name := filepath.Base(file.Filename)
	dest := filepath.Join(s.uploadDir, videoID+"_"+name)
	if err := c.SaveUploadedFile(file, dest); err != nil {
		s.logger.Error("upload save failed", "video", videoID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save upload"})
		return
	}

	j, err := s.manager.Submit(processor.Video{ID: videoID, Name: name, Path: dest})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not enqueue job"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"video_id": videoID,
		"job":      j,
	})
}

func (s *Server) getJob(c *gin.Context) {
	j, err := s.manager.Status(c.Param("id"))
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, j)
}

func (s *Server) retryJob(c *gin.Context) {
	jobID := c.Param("id")
	if err := s.manager.Retry(jobID); err != nil {
		if errors.Is(err, job.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		} else {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		}
		return
	}
	j, err := s.manager.Status(jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, j)
}

func (s *Server) deleteVideo(c *gin.Context) {
	videoID := c.Param("id")
	s.manager.Forget(videoID)

	if err := s.results.DeleteVideo(videoID); err != nil {
		s.logger.Warn("could not remove video output", "video", videoID, "error", err)
	}
	if s.db != nil {
		if err := s.db.DeleteVideo(c.Request.Context(), videoID); err != nil {
			s.logger.Warn("could not remove video rows", "video", videoID, "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"deleted": videoID})
}

func (s *Server) listFrames(c *gin.Context) {
	videoID := c.Param("id")
	artifacts, err := frames.List(s.results.VideoDir(videoID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if artifacts == nil {
		artifacts = []frames.Artifact{}
	}
	c.JSON(http.StatusOK, gin.H{"video_id": videoID, "frames": artifacts})
}

func (s *Server) getAnalysis(c *gin.Context) {
	videoID := c.Param("id")
	result, err := s.results.LoadResult(videoID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no analysis for this video"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) searchTranscription(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "search requires database persistence"})
		return
	}
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		limit = parsed
	}

	matches, err := s.db.SearchTranscription(c.Request.Context(), c.Param("id"), query, limit)
	if err != nil {
		s.logger.Error("search failed", "video", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}
