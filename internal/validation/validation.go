// Package validation checks the format of customer-supplied order IDs and contact details.
package validation

import "regexp"

var (
	orderIDPattern = regexp.MustCompile(`^\d{3}-\d{7}$`)
	// Accepts the local@domain.tld shape; deliverability is not checked.
	emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+`)
	phonePattern = regexp.MustCompile(`^\d{10}$`)
)

// IsOrderID reports whether s is a canonical order ID (DDD-DDDDDDD).
func IsOrderID(s string) bool {
	return orderIDPattern.MatchString(s)
}

// IsEmail reports whether s looks like an email address.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsPhone reports whether s is exactly ten digits.
func IsPhone(s string) bool {
	return phonePattern.MatchString(s)
}
