package extractor

import (
	"bytes"
	"encoding/json"
	"strings"
)

// DecodeJSON recovers a JSON object from a model response. It tries a direct
// parse, then the span from the first { to the last }, then fenced code
// blocks. Numbers are kept as json.Number.
func DecodeJSON(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &MalformedOutputError{Reason: "empty response", Raw: text}
	}

	// Strategy 1: direct parse
	if doc, ok := decodeObject(text); ok {
		return doc, nil
	}

	// Strategy 2: extract from first { to last }
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			if doc, ok := decodeObject(text[start : end+1]); ok {
				return doc, nil
			}
		}
	}

	// Strategy 3: extract from code blocks
	for _, fence := range []string{"```json", "```"} {
		idx := strings.Index(text, fence)
		if idx < 0 {
			continue
		}
		after := text[idx+len(fence):]
		if end := strings.Index(after, "```"); end >= 0 {
			if doc, ok := decodeObject(strings.TrimSpace(after[:end])); ok {
				return doc, nil
			}
		}
	}

	return nil, &MalformedOutputError{Reason: "response is not a JSON object", Raw: text}
}

func decodeObject(s string) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil || doc == nil {
		return nil, false
	}
	// Reject trailing garbage after the object.
	if dec.More() {
		return nil, false
	}
	return doc, true
}
