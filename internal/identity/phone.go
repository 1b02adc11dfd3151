package identity

import "strings"

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// NormalizePhone strips everything except digits and a leading '+'. It
// returns "" unless the result is '+' followed by 7 to 15 digits.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "+") {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	b.WriteByte('+')
	digits := 0
	for _, r := range raw[1:] {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			digits++
		}
	}
	if digits < minPhoneDigits || digits > maxPhoneDigits {
		return ""
	}
	return b.String()
}
