package handlers

import "strings"

// trimmed returns a trimmed copy of *s, or nil when s is nil.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

const unknownName = "Unknown"

func nameOr(names map[string]string, id string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return unknownName
}
