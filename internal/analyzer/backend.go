package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/agent-api/core/agent"

	"github.com/framesift/framesift/internal/frames"
)

// Backend is the analysis model behind the orchestrator. Implementations
// return structured results parsed from the model's reply; tests inject
// fakes.
type Backend interface {
	// AnalyzeImportant runs the single holistic call over the important
	// subset, delivered in chronological order.
	AnalyzeImportant(ctx context.Context, important []frames.Artifact, language string) (HolisticAnalysis, error)

	// TranscribeBatch narrates one batch of frames, with the holistic
	// result as context so narration stays consistent with the summary.
	TranscribeBatch(ctx context.Context, batch []frames.Artifact, holistic HolisticAnalysis, language string) ([]TranscriptionLine, error)
}

// AgentBackend implements Backend on top of the Ollama vision agent.
type AgentBackend struct {
	agent *agent.Agent
}

// NewAgentBackend wraps a configured vision agent.
func NewAgentBackend(a *agent.Agent) *AgentBackend {
	return &AgentBackend{agent: a}
}

func (b *AgentBackend) AnalyzeImportant(ctx context.Context, important []frames.Artifact, language string) (HolisticAnalysis, error) {
	prompt := holisticPrompt(important, language)

	content, err := b.run(ctx, prompt, important)
	if err != nil {
		return HolisticAnalysis{}, err
	}

	var holistic HolisticAnalysis
	if err := decodeLoose(content, &holistic); err != nil {
		return HolisticAnalysis{}, err
	}
	return holistic, nil
}

func (b *AgentBackend) TranscribeBatch(ctx context.Context, batch []frames.Artifact, holistic HolisticAnalysis, language string) ([]TranscriptionLine, error) {
	prompt := transcriptionPrompt(batch, holistic, language)

	content, err := b.run(ctx, prompt, batch)
	if err != nil {
		return nil, err
	}

	var reply struct {
		Lines []TranscriptionLine `json:"lines"`
	}
	if err := decodeLoose(content, &reply); err != nil {
		return nil, err
	}
	return reply.Lines, nil
}

// run sends the prompt plus every frame image to the agent and returns the
// model's final message.
func (b *AgentBackend) run(ctx context.Context, prompt string, artifacts []frames.Artifact) (string, error) {
	opts := []agent.RunOptionFunc{agent.WithInput(prompt)}
	for _, a := range artifacts {
		opts = append(opts, agent.WithImagePath(a.FilePath))
	}

	response, err := b.agent.Run(ctx, opts...)
	if err != nil {
		return "", err
	}
	last := response.Pop()
	if last == nil {
		return "", fmt.Errorf("no response messages received from model")
	}
	return last.Content, nil
}

func holisticPrompt(important []frames.Artifact, language string) string {
	var sb strings.Builder
	sb.WriteString("These images are key frames from one video, in chronological order, taken at ")
	sb.WriteString(timestampList(important))
	sb.WriteString(". Analyze the video as a whole and respond with JSON: ")
	sb.WriteString(`{"summary": string, "keyPoints": [string], "topics": [string], "sentiment": "positive"|"neutral"|"negative", "visualElements": [string]}`)
	if language != "" {
		fmt.Fprintf(&sb, ". Write all text in %s", language)
	}
	sb.WriteString(".")
	return sb.String()
}

func transcriptionPrompt(batch []frames.Artifact, holistic HolisticAnalysis, language string) string {
	var sb strings.Builder
	sb.WriteString("These images are consecutive frames from a video, taken at ")
	sb.WriteString(timestampList(batch))
	sb.WriteString(". Narrate what happens in each frame, one entry per frame, consistent with this summary of the whole video: ")
	fmt.Fprintf(&sb, "%q", holistic.Summary)
	sb.WriteString(`. Respond with JSON: {"lines": [{"timestamp": number, "text": string}]}, using the exact timestamps given`)
	if language != "" {
		fmt.Fprintf(&sb, ". Write all text in %s", language)
	}
	sb.WriteString(".")
	return sb.String()
}

func timestampList(artifacts []frames.Artifact) string {
	parts := make([]string, len(artifacts))
	for i, a := range artifacts {
		parts[i] = fmt.Sprintf("%.1fs", a.Timestamp)
	}
	return strings.Join(parts, ", ")
}
