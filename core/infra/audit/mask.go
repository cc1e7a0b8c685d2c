package audit

import "regexp"

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\b(\+?\d[\d\- ]{8,}\d)\b`)
	ipv4Pattern  = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
)

// MaskPII replaces emails, phone numbers and IPv4 addresses with placeholder
// tags. Applied to free-text record fields before persisting.
func MaskPII(text string) string {
	if text == "" {
		return text
	}
	text = emailPattern.ReplaceAllString(text, "[EMAIL]")
	text = phonePattern.ReplaceAllString(text, "[PHONE]")
	text = ipv4Pattern.ReplaceAllString(text, "[IPV4]")
	return text
}
