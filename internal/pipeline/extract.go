package pipeline

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls a JSON object out of raw model output. Models asked for
// strict JSON still wrap it in Markdown fences or surround it with prose, so
// extraction is layered: strip fences, try a direct decode, then fall back
// to the first balanced {...} substring.
func ExtractJSON(raw string) ([]byte, bool) {
	s := strings.TrimSpace(stripFences(raw))
	if s == "" {
		return nil, false
	}

	if strings.HasPrefix(s, "{") && json.Valid([]byte(s)) {
		return []byte(s), true
	}

	obj, ok := firstBalancedObject(s)
	if !ok || !json.Valid([]byte(obj)) {
		return nil, false
	}
	return []byte(obj), true
}

// stripFences removes a surrounding Markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// drop the language tag line ("json", "JSON", or empty)
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// firstBalancedObject scans for the first brace-balanced object, tracking
// string literals so braces inside them don't count.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
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
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
