package sanitizer

import (
	"strings"
	"unicode"
)

// Trim removes leading and trailing whitespace only. Used for fields whose
// inner layout is the user's business, such as notes and phone numbers.
func Trim(s string) string {
	return strings.TrimSpace(s)
}

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

func NormalizeSearch(term string) string {
	return strings.ToLower(TrimAndNormalize(term))
}

// ContainsFold reports whether needle occurs in haystack, ignoring case.
// An empty needle matches everything.
func ContainsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
