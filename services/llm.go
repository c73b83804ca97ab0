package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ChatMessage is one turn of a model conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

var fencedJSONPattern = regexp.MustCompile("```json\\s*([\\s\\S]*?)```")

// ExtractJSON pulls a JSON document out of a model response. Models often
// wrap their output in a fenced ```json block; when present the fenced
// content wins, otherwise the whole response is treated as JSON.
func ExtractJSON(text string) string {
	if match := fencedJSONPattern.FindStringSubmatch(text); match != nil {
		return strings.TrimSpace(match[1])
	}
	return strings.TrimSpace(text)
}

// ParseJSONResponse extracts and unmarshals a JSON document from a model
// response into result.
func ParseJSONResponse(text string, result interface{}) error {
	payload := ExtractJSON(text)
	if payload == "" {
		return fmt.Errorf("empty model response")
	}
	if err := json.Unmarshal([]byte(payload), result); err != nil {
		return fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	return nil
}
