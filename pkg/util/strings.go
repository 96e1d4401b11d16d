package util

// Truncate returns s unchanged when it is at most max runes long, otherwise
// the first max runes followed by "...".
//
// It is safe for empty inputs and for max <= 0 (returns "...").
func Truncate(s string, max int) string {
	if max <= 0 {
		return "..."
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
