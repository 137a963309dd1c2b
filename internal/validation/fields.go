// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLength     = 50
	MaxEmailLength    = 254
	MinPasswordLength = 8
	// bcrypt ignores input beyond 72 bytes.
	MaxPasswordBytes = 72
	MaxBioLength     = 500
	MaxContentLength = 5000
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateName checks a display name. Callers pass the trimmed value.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("name must not exceed %d characters", MaxNameLength)
	}
	return nil
}

// ValidateEmail checks that email is present and looks like an address.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > MaxEmailLength {
		return fmt.Errorf("email must not exceed %d characters", MaxEmailLength)
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("email address is invalid")
	}
	return nil
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword checks the password length bounds.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordBytes)
	}
	return nil
}

// ValidateBio checks the optional profile bio. An empty bio is allowed.
func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return fmt.Errorf("bio must not exceed %d characters", MaxBioLength)
	}
	return nil
}

// ValidateContent checks post text length. Emptiness is decided by the caller.
func ValidateContent(content string) error {
	if utf8.RuneCountInString(content) > MaxContentLength {
		return fmt.Errorf("content must not exceed %d characters", MaxContentLength)
	}
	return nil
}
