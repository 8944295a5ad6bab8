package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Repair turns raw reasoning-service output into a parsed JSON object using a
// three step pipeline: strip code fences and control characters, parse
// directly, then fall back to extracting the first balanced brace-delimited
// substring. Exhausting the pipeline returns ErrMalformed; the domain-specific
// fallback value is the caller's responsibility.
func Repair(raw string) (map[string]any, error) {
	cleaned := stripControl(stripFences(raw))
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty output", ErrMalformed)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err == nil {
		return data, nil
	}

	candidate, ok := firstJSONObject(cleaned)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformed)
	}

	if err := json.Unmarshal([]byte(candidate), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return data, nil
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

// stripControl replaces raw control characters with spaces. Escaped sequences
// inside JSON strings are plain text and remain untouched.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || (r >= 0x7f && r <= 0x9f) {
			return ' '
		}
		return r
	}, s)
}

// firstJSONObject scans for the first balanced {...} region, ignoring braces
// inside string literals.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}
