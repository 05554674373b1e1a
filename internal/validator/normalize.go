package validator

import "strings"

// Normalize canonicalizes source text for fuzzy comparison: surrounding
// whitespace is trimmed, inner whitespace runs become a single space and the
// result is lowercased.
func Normalize(code string) string {
	return strings.ToLower(strings.Join(strings.Fields(code), " "))
}

// Compact returns the normalized code with every space removed. Operator-shaped
// idioms ("a,b=b,a") are matched against this form so spacing never matters.
func Compact(code string) string {
	return strings.ReplaceAll(Normalize(code), " ", "")
}
