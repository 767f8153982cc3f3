// Package taxid recognises the customer tax numbers accepted at checkout.
package taxid

import "regexp"

// Supported formats: DEXXXXXXXXX, ITXXXXXXXXXXX, GRXXXXXXXXX and FRYYXXXXXXXXX,
// where X is a digit and Y an upper-case letter.
var pattern = regexp.MustCompile(`^(DE\d{9}|IT\d{11}|GR\d{9}|FR[A-Z]{2}\d{9})$`)

// Valid reports whether s is a tax number in one of the supported formats.
func Valid(s string) bool {
	return pattern.MatchString(s)
}

// CountryCode returns the two-character country prefix of a tax number. It
// does not validate the format; shorter inputs are returned unchanged.
func CountryCode(taxNumber string) string {
	if len(taxNumber) < 2 {
		return taxNumber
	}
	return taxNumber[:2]
}
