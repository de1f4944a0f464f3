package validation

import (
	"regexp"
	"strings"
)

var (
	emailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	mobileRegex = regexp.MustCompile(`^\+?[0-9]{10,14}$`)
	otpRegex    = regexp.MustCompile(`^[0-9]+$`)
	gstinRegex  = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)
	panRegex    = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
)

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}

// ValidateMobile accepts 10 to 14 digits with an optional leading '+'.
func ValidateMobile(mobile string) bool {
	return mobileRegex.MatchString(mobile)
}

// ValidateOTP checks that code is exactly length decimal digits.
func ValidateOTP(code string, length int) bool {
	return len(code) == length && otpRegex.MatchString(code)
}

// ValidateGSTIN validates an Indian GST identification number.
func ValidateGSTIN(gstin string) bool {
	return gstinRegex.MatchString(gstin)
}

// ValidatePAN validates an Indian permanent account number.
func ValidatePAN(pan string) bool {
	return panRegex.MatchString(pan)
}

// SanitizeString removes potentially harmful characters
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")
	return input
}
