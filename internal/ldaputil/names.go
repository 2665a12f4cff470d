// Package ldaputil has internal utilities for comparing and validating
// the protocol's string identifiers.
package ldaputil

import (
	"golang.org/x/text/cases"
)

// Fold returns s case-folded for caseless comparison.  A fresh caser is
// created per call because cases.Caser is not safe for concurrent use.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// EqualFold reports whether a and b are equal under case folding.
// Attribute descriptions are compared caselessly per RFC 4512 1.4.
func EqualFold(a, b string) bool {
	if a == b {
		return true
	}
	return Fold(a) == Fold(b)
}
