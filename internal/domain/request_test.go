package domain

import (
	"testing"
	"time"
)

func TestNormalizedAppliesDefaults(t *testing.T) {
	now := time.Date(2025, time.July, 10, 12, 0, 0, 0, time.UTC)
	normalized := DateContext{}.Normalized(now)

	if normalized.Location != DefaultLocation {
		t.Fatalf("expected default location, got %q", normalized.Location)
	}
	if normalized.TimeOfDay != DefaultTimeOfDay {
		t.Fatalf("expected default time of day, got %q", normalized.TimeOfDay)
	}
	if normalized.Season != "summer" {
		t.Fatalf("expected season derived from month, got %q", normalized.Season)
	}
	if normalized.Duration != DefaultDuration {
		t.Fatalf("expected default duration, got %q", normalized.Duration)
	}
	if normalized.DateType != DefaultDateType {
		t.Fatalf("expected default date type, got %q", normalized.DateType)
	}
}

func TestNormalizedTreatsUnknownLocationAsMissing(t *testing.T) {
	now := time.Date(2025, time.January, 5, 12, 0, 0, 0, time.UTC)
	for _, raw := range []string{"unknown", "  None ", ""} {
		normalized := DateContext{Location: raw}.Normalized(now)
		if normalized.Location != DefaultLocation {
			t.Fatalf("location %q: expected default, got %q", raw, normalized.Location)
		}
	}
}

func TestNormalizedLowercasesAndKeepsValues(t *testing.T) {
	now := time.Date(2025, time.October, 1, 12, 0, 0, 0, time.UTC)
	normalized := DateContext{
		Location:  " Rotterdam ",
		TimeOfDay: "Evening",
		Season:    "Winter",
		Duration:  " 2 hours ",
		DateType:  "Anniversary",
	}.Normalized(now)

	if normalized.Location != "rotterdam" {
		t.Fatalf("unexpected location %q", normalized.Location)
	}
	if normalized.TimeOfDay != "evening" {
		t.Fatalf("unexpected time of day %q", normalized.TimeOfDay)
	}
	if normalized.Season != "winter" {
		t.Fatalf("unexpected season %q", normalized.Season)
	}
	if normalized.Duration != "2 hours" {
		t.Fatalf("unexpected duration %q", normalized.Duration)
	}
	if normalized.DateType != "anniversary" {
		t.Fatalf("unexpected date type %q", normalized.DateType)
	}
}

func TestSeasonForMonth(t *testing.T) {
	cases := map[time.Month]string{
		time.February: "winter",
		time.April:    "spring",
		time.August:   "summer",
		time.November: "autumn",
		time.December: "winter",
	}
	for month, expected := range cases {
		if got := SeasonForMonth(month); got != expected {
			t.Fatalf("month %s: expected %q, got %q", month, expected, got)
		}
	}
}

func TestProfileInputHasContent(t *testing.T) {
	if (ProfileInput{}).HasContent() {
		t.Fatal("empty profile should not have content")
	}
	if (ProfileInput{Text: "   "}).HasContent() {
		t.Fatal("whitespace-only profile should not have content")
	}
	if !(ProfileInput{Text: "likes jazz"}).HasContent() {
		t.Fatal("text profile should have content")
	}
	if !(ProfileInput{ImageData: []string{"base64data"}}).HasContent() {
		t.Fatal("image-only profile should have content")
	}
}

func TestAppendPreviewKeepsRollingWindow(t *testing.T) {
	record := &JobRecord{}
	for i := 0; i < 12; i++ {
		record.AppendPreview("preview " + string(rune('a'+i)))
	}
	if len(record.Previews) != 8 {
		t.Fatalf("expected 8 previews, got %d", len(record.Previews))
	}
	if record.Previews[0] != "preview e" {
		t.Fatalf("expected oldest surviving preview to be 'preview e', got %q", record.Previews[0])
	}
	record.AppendPreview("")
	if len(record.Previews) != 8 {
		t.Fatal("empty previews must be ignored")
	}
}
