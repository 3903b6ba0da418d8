package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when a completion contains no JSON object.
var ErrNoJSON = errors.New("no JSON object in completion")

var (
	// jsonBlockPattern matches an object inside a markdown code fence.
	jsonBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	// jsonObjectPattern matches the outermost braces.
	jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON returns the JSON object embedded in a completion, tolerating
// markdown fences, // comments and trailing commas. Returns "" when none is found.
func ExtractJSON(content string) string {
	var raw string
	if m := jsonBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		raw = m[1]
	} else {
		raw = jsonObjectPattern.FindString(content)
	}
	if raw == "" {
		return ""
	}

	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return trailingCommaPattern.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

// DecodeJSON extracts and unmarshals the JSON object in content into v.
func DecodeJSON(content string, v any) error {
	raw := ExtractJSON(content)
	if raw == "" {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode completion JSON: %w", err)
	}
	return nil
}

// stripLineComment removes a // comment outside of string literals.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/':
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
