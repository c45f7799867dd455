package validation

import (
	"regexp"
	"strings"
)

// FieldErrors maps an input field to a user-facing message. Validation
// accumulates every applicable error instead of stopping at the first one.
type FieldErrors map[string]string

// Empty reports whether no field failed.
func (e FieldErrors) Empty() bool {
	return len(e) == 0
}

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether the address matches the basic local@domain.tld
// shape. No normalization is applied; addresses are case-sensitive as stored.
func ValidEmail(addr string) bool {
	return emailShape.MatchString(addr)
}

// Blank reports whether the value is empty after trimming whitespace.
func Blank(v string) bool {
	return strings.TrimSpace(v) == ""
}
