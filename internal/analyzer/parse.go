package analyzer

import (
	"encoding/json"
	"fmt"
)

// MalformedResponseError reports that the backend returned text that could
// not be parsed as JSON, even after balanced-brace extraction. Jobs failing
// with it are retryable: the model may do better next time.
type MalformedResponseError struct {
	Raw string
}

func (e *MalformedResponseError) Error() string {
	snippet := e.Raw
	if len(snippet) > 120 {
		snippet = snippet[:120] + "…"
	}
	return fmt.Sprintf("analysis backend returned malformed JSON: %q", snippet)
}

// decodeLoose parses the backend's free-form reply into v. Models wrap JSON
// in prose or markdown fences often enough that a direct parse failure falls
// back to extracting the first balanced {...} substring as an explicit second
// step. If both parses fail the error is MalformedResponseError, never a
// silent wrong answer.
func decodeLoose(raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	sub, ok := firstJSONObject(raw)
	if !ok {
		return &MalformedResponseError{Raw: raw}
	}
	if err := json.Unmarshal([]byte(sub), v); err != nil {
		return &MalformedResponseError{Raw: raw}
	}
	return nil
}

// firstJSONObject returns the first balanced top-level {...} substring,
// tracking string literals and escapes so braces inside values don't count.
func firstJSONObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
