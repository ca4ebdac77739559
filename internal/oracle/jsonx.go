package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Tolerant JSON extraction for LLM responses. Models wrap payloads in
// markdown fences, prepend prose, or append commentary; these helpers
// recover the first balanced JSON value instead of failing the call.

// StripCodeFences removes a surrounding markdown code fence, if present.
func StripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}

	// Drop the opening fence line (which may carry a language tag) and
	// the closing fence line if one exists.
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[1 : len(lines)-1]
	} else {
		lines = lines[1:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ExtractObject returns the first balanced JSON object in s, or "".
func ExtractObject(s string) string {
	return extractBalanced(s, '{', '}')
}

// ExtractArray returns the first balanced JSON array in s, or "".
func ExtractArray(s string) string {
	return extractBalanced(s, '[', ']')
}

// extractBalanced scans for the first balanced open/close pair, ignoring
// delimiters inside JSON string literals.
func extractBalanced(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case open:
			if !inString {
				depth++
			}
		case close:
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

// UnmarshalObject parses a JSON object from a raw LLM response into v.
// It tries the response verbatim, then with fences stripped, then the
// first balanced object found anywhere in the text.
func UnmarshalObject(raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	clean := StripCodeFences(raw)
	if err := json.Unmarshal([]byte(clean), v); err == nil {
		return nil
	}

	if obj := ExtractObject(clean); obj != "" {
		if err := json.Unmarshal([]byte(obj), v); err == nil {
			return nil
		}
	}

	return fmt.Errorf("no JSON object found in response (%d bytes)", len(raw))
}

// UnmarshalArray parses a JSON array from a raw LLM response into v.
func UnmarshalArray(raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	clean := StripCodeFences(raw)
	if err := json.Unmarshal([]byte(clean), v); err == nil {
		return nil
	}

	if arr := ExtractArray(clean); arr != "" {
		if err := json.Unmarshal([]byte(arr), v); err == nil {
			return nil
		}
	}

	return fmt.Errorf("no JSON array found in response (%d bytes)", len(raw))
}
