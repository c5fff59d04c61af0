package analyzer

import (
	"encoding/json"
	"fmt"
	"math"
)

// HolisticAnalysis is the cross-frame summary produced from the important
// subset.
type HolisticAnalysis struct {
	Summary        string   `json:"summary"`
	KeyPoints      []string `json:"keyPoints"`
	Topics         []string `json:"topics"`
	Sentiment      string   `json:"sentiment"`
	VisualElements []string `json:"visualElements"`
}

// TranscriptionLine is one frame's narration.
type TranscriptionLine struct {
	Timestamp float64 `json:"timestamp"`
	Text      string  `json:"text"`
}

// Tagged renders the line with its [mm:ss] prefix.
func (l TranscriptionLine) Tagged() string {
	return fmt.Sprintf("%s %s", FormatTimestamp(l.Timestamp), l.Text)
}

// MarshalJSON adds the tagged rendering to every serialized line, so saved
// and served results carry the display form alongside the raw fields.
func (l TranscriptionLine) MarshalJSON() ([]byte, error) {
	type plain TranscriptionLine
	return json.Marshal(struct {
		plain
		Tagged string `json:"tagged"`
	}{plain(l), l.Tagged()})
}

// AnalysisResult is the final output of one successful job. Immutable once
// saved; only superseded by a full re-run.
type AnalysisResult struct {
	Summary         string              `json:"summary"`
	KeyPoints       []string            `json:"keyPoints"`
	Topics          []string            `json:"topics"`
	Sentiment       string              `json:"sentiment"`
	VisualElements  []string            `json:"visualElements"`
	Transcription   []TranscriptionLine `json:"transcription"`
	DurationSeconds int                 `json:"durationSeconds"`
}

// FormatTimestamp renders seconds as [mm:ss].
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("[%02d:%02d]", total/60, total%60)
}

// dedupeTopics removes repeated topics, keeping first-seen order.
// Case-sensitive: "Cooking" and "cooking" are distinct.
func dedupeTopics(topics []string) []string {
	seen := make(map[string]bool, len(topics))
	out := topics[:0:0]
	for _, topic := range topics {
		if seen[topic] {
			continue
		}
		seen[topic] = true
		out = append(out, topic)
	}
	return out
}
