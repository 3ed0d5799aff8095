// Package payload recognizes a JSON object embedded in otherwise
// free-form assistant text and pretty-prints it for display.
package payload

import (
	"encoding/json"
	"strings"
)

// Extract tries the span between the first "{" and the last "}" of text
// as a single JSON value and returns an indented rendering of it. It
// reports false when no brace span exists or the span is not valid JSON;
// it never fails partway.
//
// The outermost-brace heuristic is deliberate and known to mis-extract
// when the surrounding prose itself contains stray braces; only the one
// span is ever tried, with no balanced scan.
func Extract(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}

	var value any
	if err := json.Unmarshal([]byte(text[start:end+1]), &value); err != nil {
		return "", false
	}

	pretty, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", false
	}
	return string(pretty), true
}
