package utils

// Preview truncates s to at most max runes for notification bodies and inbox
// rows, appending an ellipsis when anything was cut.
func Preview(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
