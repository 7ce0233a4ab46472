package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var codeFencePattern = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSON recovers a JSON document from model output.
// It accepts bare JSON, JSON inside a fenced code block, or the span
// between the first '{' and the last '}'.
func ExtractJSON(content string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, errors.New("llm: empty response")
	}

	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	if m := codeFencePattern.FindStringSubmatch(trimmed); m != nil {
		fenced := strings.TrimSpace(m[1])
		if json.Valid([]byte(fenced)) {
			return json.RawMessage(fenced), nil
		}
		return nil, fmt.Errorf("llm: invalid JSON in code block (snippet: %s)", snippet(fenced))
	}

	first := strings.Index(trimmed, "{")
	last := strings.LastIndex(trimmed, "}")
	if first >= 0 && last > first {
		span := trimmed[first : last+1]
		if json.Valid([]byte(span)) {
			return json.RawMessage(span), nil
		}
	}

	return nil, fmt.Errorf("llm: failed to parse JSON response (snippet: %s)", snippet(trimmed))
}

func snippet(s string) string {
	const limit = 80
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
