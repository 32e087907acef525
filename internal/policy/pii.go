package policy

import "regexp"

// Profile texts are pasted from chats and bios, so they routinely carry
// contact details the pipeline must never forward to external providers.
var (
	emailPattern  = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phonePattern  = regexp.MustCompile(`(?:\+?\d[\d()\-\s.]{7,}\d)`)
	cardPattern   = regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`)
	handlePattern = regexp.MustCompile(`(?i)(?:^|\s)@[a-z0-9._]{3,30}\b`)
)

// ScrubProfile masks contact details in free-form profile text before it is
// persisted or sent to the reasoning provider. Cards are masked before
// phones: the phone pattern matches any long digit run and would otherwise
// swallow card numbers whole.
func ScrubProfile(value string) string {
	masked := emailPattern.ReplaceAllString(value, "[email_redacted]")
	masked = cardPattern.ReplaceAllStringFunc(masked, maskCardNumber)
	masked = phonePattern.ReplaceAllStringFunc(masked, func(_ string) string {
		return "[phone_redacted]"
	})
	masked = handlePattern.ReplaceAllStringFunc(masked, maskHandle)
	return masked
}

func maskCardNumber(value string) string {
	digits := make([]rune, 0, len(value))
	for _, char := range value {
		if char >= '0' && char <= '9' {
			digits = append(digits, char)
		}
	}
	if len(digits) < 8 {
		return "[card_redacted]"
	}

	last4 := string(digits[len(digits)-4:])
	return "**** **** **** " + last4
}

func maskHandle(value string) string {
	prefix := ""
	if len(value) > 0 && (value[0] == ' ' || value[0] == '\t' || value[0] == '\n') {
		prefix = value[:1]
	}
	return prefix + "[handle_redacted]"
}
