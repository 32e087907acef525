package quality

import (
	"errors"
	"strings"
	"testing"

	"github.com/aimorme/dateplan-back/internal/domain"
)

func TestValidatePlanNormalizesFields(t *testing.T) {
	plan := &domain.DatePlan{
		Title: "  An   Evening of   Jazz  ",
		Activities: []domain.Activity{
			{
				Name:                "Listen to  live   jazz",
				Description:         " intimate venue  with great acoustics ",
				ConversationPrompts: []string{" what got you into music? ", "", "favorite album?"},
			},
		},
	}
	if err := ValidatePlan(plan); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if plan.Title != "An Evening of Jazz" {
		t.Fatalf("unexpected title %q", plan.Title)
	}
	if plan.Activities[0].Name != "Listen to live jazz" {
		t.Fatalf("unexpected name %q", plan.Activities[0].Name)
	}
	if len(plan.Activities[0].ConversationPrompts) != 2 {
		t.Fatalf("empty prompts must be dropped, got %v", plan.Activities[0].ConversationPrompts)
	}
}

func TestValidatePlanNormalizesPracticalNotes(t *testing.T) {
	plan := &domain.DatePlan{
		Title: "Plan",
		Activities: []domain.Activity{
			{
				Name:           "Canal walk",
				PracticalNotes: []string{"  bring an   umbrella ", "", strings.Repeat("walk ", 200)},
			},
		},
	}
	if err := ValidatePlan(plan); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	notes := plan.Activities[0].PracticalNotes
	if len(notes) != 2 {
		t.Fatalf("empty notes must be dropped, got %v", notes)
	}
	if notes[0] != "bring an umbrella" {
		t.Fatalf("unexpected note %q", notes[0])
	}
	if len(notes[1]) > maxPracticalNotesLen {
		t.Fatalf("note not truncated, len %d", len(notes[1]))
	}
}

func TestValidatePlanDropsNamelessActivities(t *testing.T) {
	plan := &domain.DatePlan{
		Title: "Plan",
		Activities: []domain.Activity{
			{Name: "   "},
			{Name: "Canal walk"},
		},
	}
	if err := ValidatePlan(plan); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if len(plan.Activities) != 1 || plan.Activities[0].Name != "Canal walk" {
		t.Fatalf("unexpected activities %+v", plan.Activities)
	}
}

func TestValidatePlanRejectsEmptyPlan(t *testing.T) {
	err := ValidatePlan(&domain.DatePlan{Title: "Nothing"})
	if !errors.Is(err, ErrPlanRejected) {
		t.Fatalf("expected ErrPlanRejected, got %v", err)
	}
	if err := ValidatePlan(nil); !errors.Is(err, ErrPlanRejected) {
		t.Fatalf("nil plan: expected ErrPlanRejected, got %v", err)
	}
}

func TestValidatePlanTruncatesOverlongDescriptions(t *testing.T) {
	long := strings.Repeat("word ", 400)
	plan := &domain.DatePlan{
		Activities: []domain.Activity{{Name: "Walk", Description: long}},
	}
	if err := ValidatePlan(plan); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if len(plan.Activities[0].Description) > maxDescriptionLen {
		t.Fatalf("description not truncated: %d chars", len(plan.Activities[0].Description))
	}
}

func TestValidatePlanDefaultsEmptyTitle(t *testing.T) {
	plan := &domain.DatePlan{Activities: []domain.Activity{{Name: "Walk"}}}
	if err := ValidatePlan(plan); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if plan.Title == "" {
		t.Fatal("expected a default title")
	}
}
