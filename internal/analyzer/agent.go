package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/agent-api/core"
	"github.com/agent-api/core/agent"
	"github.com/agent-api/core/agent/bootstrap"
	"github.com/agent-api/ollama"
	"github.com/go-logr/logr"
)

const visionSystemPrompt = "You are a visual analysis assistant specialized in detailed, factual descriptions of video frames. Always answer with a single JSON object and nothing else."

// AgentConfig locates the Ollama instance backing the vision agent.
type AgentConfig struct {
	BaseURL string
	Port    int
	Model   string
}

// NewAgent initializes the vision agent against a running Ollama instance.
func NewAgent(ctx context.Context, logger *slog.Logger, cfg AgentConfig) (*agent.Agent, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 11434
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.2-vision:11b"
	}

	// Check that Ollama is reachable before handing out an agent.
	client := &http.Client{Timeout: 5 * time.Second}
	tagsURL := fmt.Sprintf("%s:%d/api/tags", cfg.BaseURL, cfg.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tagsURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama is not reachable at %s: %w", tagsURL, err)
	}
	resp.Body.Close()

	// The agent stack logs through logr; bridge it to the shared slog handler.
	agentLogger := logr.FromSlogHandler(logger.Handler())

	provider := ollama.NewProvider(&ollama.ProviderOpts{
		Logger:  &agentLogger,
		BaseURL: cfg.BaseURL,
		Port:    cfg.Port,
	})

	if err := provider.UseModel(ctx, &core.Model{ID: cfg.Model}); err != nil {
		return nil, fmt.Errorf("selecting model %q: %w", cfg.Model, err)
	}

	return agent.NewAgent(
		bootstrap.WithProvider(provider),
		bootstrap.WithLogger(&agentLogger),
		bootstrap.WithSystemPrompt(visionSystemPrompt),
	)
}
