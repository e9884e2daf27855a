package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	appErr "github.com/xxxsen/docmind/internal/pkg/errors"
)

// ParseJSON decodes model output into T. Code fences and any prose around the
// outermost JSON array or object are stripped first. Every failure wraps
// ErrMalformedResponse.
func ParseJSON[T any](output string) (T, error) {
	var out T
	clean := strings.TrimSpace(output)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	clean = extractJSON(clean)
	if clean == "" {
		return out, fmt.Errorf("no json found: %w", appErr.ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return out, fmt.Errorf("decode json: %w: %w", appErr.ErrMalformedResponse, err)
	}
	return out, nil
}

func extractJSON(s string) string {
	arrStart := strings.Index(s, "[")
	objStart := strings.Index(s, "{")
	switch {
	case arrStart >= 0 && (objStart < 0 || arrStart < objStart):
		end := strings.LastIndex(s, "]")
		if end > arrStart {
			return s[arrStart : end+1]
		}
	case objStart >= 0:
		end := strings.LastIndex(s, "}")
		if end > objStart {
			return s[objStart : end+1]
		}
	}
	return ""
}
