package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// ParseClaimList reads a model response as a list of claim strings.
// It accepts a JSON array, a JSON object holding a "claims" array, or a
// Python-style list literal, optionally wrapped in a code fence. When none
// of these match it returns the cleaned response as a single entry and false.
// An empty response or a null list yields no entries and false.
func ParseClaimList(response string) ([]string, bool) {
	cleaned := CleanResponse(response)
	if cleaned == "" {
		return nil, false
	}

	if list, ok := parseJSONArray(cleaned); ok {
		return list, true
	}
	if list, ok := parseJSONObject(cleaned); ok {
		return list, true
	}
	if list, err := parsePythonList(cleaned); err == nil {
		return list, true
	}

	return []string{cleaned}, false
}

// CleanResponse strips surrounding whitespace, a code fence and its language tag
func CleanResponse(response string) string {
	s := strings.TrimSpace(response)
	if !strings.Contains(s, "```") {
		return s
	}

	parts := strings.Split(s, "```")
	inner := parts[1]

	// A language tag is a single word on the fence line
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		tag := strings.TrimSpace(inner[:nl])
		if tag != "" && !strings.ContainsAny(tag, " [{\"'") {
			inner = inner[nl+1:]
		}
	} else {
		for _, tag := range []string{"python", "json"} {
			if strings.HasPrefix(inner, tag) {
				inner = strings.TrimPrefix(inner, tag)
				break
			}
		}
	}
	return strings.TrimSpace(inner)
}

func parseJSONArray(s string) ([]string, bool) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil || raw == nil {
		return nil, false
	}
	return rawStrings(raw), true
}

func parseJSONObject(s string) ([]string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}

	if claims, ok := obj["claims"]; ok {
		return parseJSONArray(string(claims))
	}

	// Accept any single list-valued key
	var found []string
	matches := 0
	for _, v := range obj {
		if list, ok := parseJSONArray(string(v)); ok {
			found = list
			matches++
		}
	}
	if matches == 1 {
		return found, true
	}
	return nil, false
}

// rawStrings keeps string elements as-is and renders other scalars as their JSON text
func rawStrings(raw []json.RawMessage) []string {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, s)
			continue
		}
		out = append(out, string(r))
	}
	return out
}

// parsePythonList parses a list literal of single- or double-quoted strings
func parsePythonList(s string) ([]string, error) {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) < 2 || runes[0] != '[' || runes[len(runes)-1] != ']' {
		return nil, fmt.Errorf("not a list literal")
	}

	var out []string
	i := 1
	end := len(runes) - 1
	expectItem := true

	for i < end {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == ',':
			if expectItem {
				return nil, fmt.Errorf("unexpected comma at %d", i)
			}
			expectItem = true
			i++
		case r == '\'' || r == '"':
			if !expectItem {
				return nil, fmt.Errorf("missing comma at %d", i)
			}
			str, next, err := readQuoted(runes, i, end)
			if err != nil {
				return nil, err
			}
			out = append(out, str)
			i = next
			expectItem = false
		default:
			return nil, fmt.Errorf("unexpected %q at %d", r, i)
		}
	}
	return out, nil
}

// readQuoted reads a quoted string starting at runes[start] and returns the index after it
func readQuoted(runes []rune, start, end int) (string, int, error) {
	quote := runes[start]
	var b strings.Builder

	for i := start + 1; i < end; i++ {
		r := runes[i]
		switch {
		case r == '\\' && i+1 < end:
			i++
			switch runes[i] {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			default:
				b.WriteRune(runes[i])
			}
		case r == quote:
			return b.String(), i + 1, nil
		default:
			b.WriteRune(r)
		}
	}
	return "", 0, fmt.Errorf("unterminated string at %d", start)
}
