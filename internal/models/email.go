package models

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail applies the syntactic check shared by the questionnaire identity
// step and unlock requests: local-part "@" domain "." TLD, no whitespace.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// NormalizeEmail trims surrounding whitespace and lowercases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
