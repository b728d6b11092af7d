package wizard

import "strings"

// FormatUAEPhone reformats local or international UAE numbers as
// "+971 XX XXX XXXX" while they are typed. Anything it does not recognise is
// returned unchanged.
func FormatUAEPhone(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	var rest string
	switch {
	case strings.HasPrefix(digits, "971"):
		rest = digits[3:]
	case strings.HasPrefix(digits, "0"):
		rest = digits[1:]
	default:
		return value
	}
	if len(rest) > 9 {
		return value
	}

	var parts []string
	for _, size := range []int{2, 3, 4} {
		if rest == "" {
			break
		}
		n := min(size, len(rest))
		parts = append(parts, rest[:n])
		rest = rest[n:]
	}
	return "+971 " + strings.Join(parts, " ")
}
