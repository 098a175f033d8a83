package messaging

import "strings"

// NormalizePhone keeps only the digits of raw and adds the North American
// country code to bare 10-digit numbers. Anything else is passed through
// for the provider to reject.
func NormalizePhone(raw string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if len(digits) == 10 {
		return "1" + digits
	}
	return digits
}
