// Package embeddings generates vector embeddings for analysis text through a
// cached worker pool backed by Ollama's embeddings endpoint.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Result carries one embedding back to the requester.
type Result struct {
	Content   string
	Embedding []float32
	Error     error
}

// work is a unit of embedding work.
type work struct {
	content string
	result  chan<- Result
}

// Config locates the embeddings endpoint.
type Config struct {
	BaseURL string // e.g. http://localhost:11434
	Model   string // e.g. nomic-embed-text
	Workers int
}

// Service manages embedding generation and caching.
type Service struct {
	cfg       Config
	client    *http.Client
	workQueue chan work
	cache     sync.Map
	wg        sync.WaitGroup
}

// NewService starts the worker pool and returns the service.
func NewService(cfg Config) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}

	s := &Service{
		cfg:       cfg,
		client:    &http.Client{Timeout: 30 * time.Second},
		workQueue: make(chan work, 100),
	}
	s.startWorkers()
	return s
}

func (s *Service) startWorkers() {
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for w := range s.workQueue {
				if cached, ok := s.cache.Load(w.content); ok {
					if embedding, valid := cached.([]float32); valid {
						w.result <- Result{Content: w.content, Embedding: embedding}
						continue
					}
				}

				embedding, err := s.generate(context.Background(), w.content)
				if err == nil {
					s.cache.Store(w.content, embedding)
				}
				w.result <- Result{Content: w.content, Embedding: embedding, Error: err}
			}
		}()
	}
}

// EmbedAll fans texts through the worker pool and collects one result per
// input, in input order. Enqueueing blocks until the queue has room, so
// batches larger than the queue still complete.
func (s *Service) EmbedAll(ctx context.Context, texts []string) []Result {
	chans := make([]chan Result, len(texts))
	for i := range texts {
		chans[i] = make(chan Result, 1)
	}

	go func() {
		for i, text := range texts {
			select {
			case s.workQueue <- work{content: text, result: chans[i]}:
			case <-ctx.Done():
				chans[i] <- Result{Content: text, Error: ctx.Err()}
			}
		}
	}()

	results := make([]Result, len(texts))
	for i := range chans {
		results[i] = <-chans[i]
	}
	return results
}

// Embed generates an embedding synchronously.
func (s *Service) Embed(ctx context.Context, content string) ([]float32, error) {
	if cached, ok := s.cache.Load(content); ok {
		if embedding, valid := cached.([]float32); valid {
			return embedding, nil
		}
	}
	embedding, err := s.generate(ctx, content)
	if err != nil {
		return nil, err
	}
	s.cache.Store(content, embedding)
	return embedding, nil
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (s *Service) generate(ctx context.Context, content string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: s.cfg.Model, Prompt: content})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings request returned status %d", resp.StatusCode)
	}

	var reply embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decoding embeddings response: %w", err)
	}
	if len(reply.Embedding) == 0 {
		return nil, fmt.Errorf("embeddings response contained no vector")
	}
	return reply.Embedding, nil
}

// Close shuts down the pool and waits for in-flight work.
func (s *Service) Close() {
	close(s.workQueue)
	s.wg.Wait()
}
