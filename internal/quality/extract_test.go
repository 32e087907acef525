package quality

import (
	"errors"
	"testing"
)

func TestExtractJSONAcceptsCleanObject(t *testing.T) {
	raw, err := ExtractJSON(`{"score": 85}`)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if string(raw) != `{"score": 85}` {
		t.Fatalf("unexpected extraction %s", raw)
	}
}

func TestExtractJSONStripsMarkdownFences(t *testing.T) {
	input := "```json\n{\"title\": \"Jazz Evening\"}\n```"
	raw, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if string(raw) != `{"title": "Jazz Evening"}` {
		t.Fatalf("unexpected extraction %s", raw)
	}
}

func TestExtractJSONFindsObjectInsideProse(t *testing.T) {
	input := `Here is your plan: {"title": "Canal Walk", "note": "use {braces} carefully"} hope it helps!`
	raw, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	var decoded struct {
		Title string `json:"title"`
	}
	if err := DecodeInto(string(raw), &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Title != "Canal Walk" {
		t.Fatalf("unexpected title %q", decoded.Title)
	}
}

func TestExtractJSONIgnoresBracesInsideStrings(t *testing.T) {
	input := `{"text": "escaped \" and { inside", "done": true}`
	raw, err := ExtractJSON("noise before " + input)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if string(raw) != input {
		t.Fatalf("unexpected extraction %s", raw)
	}
}

func TestExtractJSONRejectsNonJSON(t *testing.T) {
	for _, input := range []string{"", "   ", "sorry, I cannot help", "{broken"} {
		if _, err := ExtractJSON(input); !errors.Is(err, ErrMalformedOutput) {
			t.Fatalf("input %q: expected ErrMalformedOutput, got %v", input, err)
		}
	}
}

func TestDecodeIntoRejectsShapeMismatch(t *testing.T) {
	var target struct {
		Count int `json:"count"`
	}
	err := DecodeInto(`{"count": "not a number"}`, &target)
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
}
