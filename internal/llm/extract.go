// Package llm - extract.go provides best-effort structured extraction from
// free-form model output. Models wrap answers in prose and markdown fences
// even when instructed not to, so callers parse from the first structural
// delimiter instead of trusting the raw text.
package llm

import (
	"fmt"
	"strings"
)

// CleanJSONBlock removes markdown code block wrappers from model responses.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Skip a potential language identifier on the first line.
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	return text
}

// ExtractJSONObject locates the first '{' in the response and returns the
// substring from there, stripping any leading commentary the model added.
// Returns an error when the response contains no object at all.
func ExtractJSONObject(text string) (string, error) {
	text = CleanJSONBlock(text)
	start := strings.Index(text, "{")
	if start == -1 {
		return "", fmt.Errorf("no JSON object found in model response")
	}
	return text[start:], nil
}

// ExtractJSONArray locates the first '[' and the last ']' in the response and
// returns the substring between them inclusive.
func ExtractJSONArray(text string) (string, error) {
	text = CleanJSONBlock(text)
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON array found in model response")
	}
	return text[start : end+1], nil
}
