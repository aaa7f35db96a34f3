package model

import "strings"

// NormalizeSymbol returns the canonical form of an instrument identifier:
// surrounding whitespace removed, upper case.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
