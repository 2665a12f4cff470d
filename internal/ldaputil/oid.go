package ldaputil

// ValidOID reports whether s is a dotted-decimal OID: two or more
// numeric arcs separated by single dots, with no leading zeros on
// multi-digit arcs.
func ValidOID(s string) bool {
	if s == "" {
		return false
	}
	arcs := 1
	digits := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			if digits > 0 && s[i-digits] == '0' {
				return false
			}
			digits++
		case c == '.':
			if digits == 0 {
				return false
			}
			arcs++
			digits = 0
		default:
			return false
		}
	}
	return digits > 0 && arcs >= 2
}
