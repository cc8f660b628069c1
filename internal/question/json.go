package question

import (
	"encoding/json"
	"errors"
	"strings"
)

// errNoJSON indicates the model response contained no JSON object.
var errNoJSON = errors.New("no JSON object in response")

// extractJSON pulls the JSON object out of a raw model response by
// taking the span from the first '{' through the last '}'. Greedy on
// purpose: models wrap JSON in prose or code fences, and nested objects
// need the last closing brace, not the first.
func extractJSON(raw string, v any) error {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return errNoJSON
	}
	return json.Unmarshal([]byte(raw[start:end+1]), v)
}
