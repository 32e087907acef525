package quality

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedOutput = errors.New("model output is not usable JSON")

// ExtractJSON pulls the first JSON object or array out of raw model text.
// Reasoning models wrap payloads in markdown fences or prose more often
// than not, so the strict path is tried first and the lenient scan second.
func ExtractJSON(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty output", ErrMalformedOutput)
	}

	trimmed = stripFences(trimmed)
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	candidate, ok := scanBalanced(trimmed)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON value found", ErrMalformedOutput)
	}
	if !json.Valid([]byte(candidate)) {
		return nil, fmt.Errorf("%w: candidate fails validation", ErrMalformedOutput)
	}
	return json.RawMessage(candidate), nil
}

// DecodeInto extracts and unmarshals model text into target in one step.
func DecodeInto(text string, target any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if newline := strings.IndexByte(text, '\n'); newline >= 0 {
		// Drop the language tag line, e.g. "json".
		firstLine := strings.TrimSpace(text[:newline])
		if len(firstLine) <= 10 && !strings.ContainsAny(firstLine, "{}[]") {
			text = text[newline+1:]
		}
	}
	if fenceEnd := strings.LastIndex(text, "```"); fenceEnd >= 0 {
		text = text[:fenceEnd]
	}
	return strings.TrimSpace(text)
}

// scanBalanced finds the first balanced object or array, ignoring braces
// inside string literals.
func scanBalanced(text string) (string, bool) {
	start := -1
	var open, close byte
	for index := 0; index < len(text); index++ {
		if text[index] == '{' {
			start, open, close = index, '{', '}'
			break
		}
		if text[index] == '[' {
			start, open, close = index, '[', ']'
			break
		}
	}
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for index := start; index < len(text); index++ {
		char := text[index]
		if inString {
			switch {
			case escaped:
				escaped = false
			case char == '\\':
				escaped = true
			case char == '"':
				inString = false
			}
			continue
		}
		switch char {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : index+1], true
			}
		}
	}
	return "", false
}
