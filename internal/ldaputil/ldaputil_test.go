package ldaputil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqualFold(t *testing.T) {
	tests := []struct {
		a, b  string
		equal bool
	}{
		{"cn", "cn", true},
		{"cn", "CN", true},
		{"objectClass", "OBJECTCLASS", true},
		{"cn", "sn", false},
		{"", "", true},
		{"straße", "STRASSE", true},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.equal, EqualFold(tc.a, tc.b), "%q vs %q", tc.a, tc.b)
	}
}

func TestValidOID(t *testing.T) {
	valid := []string{
		"1.2.840.113556.1.4.319",
		"2.16.840.1.113730.3.4.2",
		"0.0",
		"1.3.6.1.4.1.1466.20037",
	}
	for _, s := range valid {
		assert.True(t, ValidOID(s), s)
	}

	invalid := []string{
		"",
		"1",
		"1.",
		".1",
		"1..2",
		"1.02",
		"1.2a",
		"1 .2",
	}
	for _, s := range invalid {
		assert.False(t, ValidOID(s), "%q", s)
	}
}
