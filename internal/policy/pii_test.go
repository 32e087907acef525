package policy

import (
	"strings"
	"testing"
)

func TestScrubProfileMasksEmail(t *testing.T) {
	masked := ScrubProfile("reach me at anna.k@example.com for details")
	if strings.Contains(masked, "anna.k@example.com") {
		t.Fatalf("email survived: %s", masked)
	}
	if !strings.Contains(masked, "[email_redacted]") {
		t.Fatalf("expected email placeholder: %s", masked)
	}
}

func TestScrubProfileMasksPhone(t *testing.T) {
	masked := ScrubProfile("call +31 6 1234 5678 tonight")
	if strings.Contains(masked, "1234 5678") {
		t.Fatalf("phone survived: %s", masked)
	}
	if !strings.Contains(masked, "[phone_redacted]") {
		t.Fatalf("expected phone placeholder: %s", masked)
	}
}

func TestScrubProfileMasksCardKeepingLast4(t *testing.T) {
	masked := ScrubProfile("card 4111 1111 1111 1234 on file")
	if strings.Contains(masked, "4111") {
		t.Fatalf("card prefix survived: %s", masked)
	}
	if !strings.Contains(masked, "**** **** **** 1234") {
		t.Fatalf("expected masked card with last 4: %s", masked)
	}
}

func TestScrubProfileMasksCardAndPhoneIndependently(t *testing.T) {
	masked := ScrubProfile("card 4111 1111 1111 1234, call +31 6 1234 5678")
	if !strings.Contains(masked, "**** **** **** 1234") {
		t.Fatalf("card must keep its last 4 even next to a phone: %s", masked)
	}
	if !strings.Contains(masked, "[phone_redacted]") {
		t.Fatalf("phone must still be masked: %s", masked)
	}
}

func TestScrubProfileMasksSocialHandles(t *testing.T) {
	masked := ScrubProfile("find me on insta @anna.amsterdam ok")
	if strings.Contains(masked, "@anna.amsterdam") {
		t.Fatalf("handle survived: %s", masked)
	}
	if !strings.Contains(masked, "[handle_redacted]") {
		t.Fatalf("expected handle placeholder: %s", masked)
	}
}

func TestScrubProfileLeavesPlainTextAlone(t *testing.T) {
	input := "loves jazz, hiking on weekends and italian food"
	if got := ScrubProfile(input); got != input {
		t.Fatalf("clean text was altered: %s", got)
	}
}
