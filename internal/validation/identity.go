// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	passwordSpecials   = "!@#$%^&*()_+"
	minUsernameLetters = 3
	maxUsernameSymbols = 3
	maxUsernameLength  = 150
	maxNameLength      = 255
	minPasswordLength  = 8
	maxPasswordLength  = 128
	maxEmailLength     = 254
)

var (
	usernameCharset = regexp.MustCompile(`^[\w.@+-]+$`)
	emailRegex      = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// ValidatePassword checks if a password meets security requirements
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("password must not exceed %d characters", maxPasswordLength)
	}

	var hasLetter, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}
	if !hasLetter {
		return fmt.Errorf("password must contain at least one letter")
	}
	if !hasDigit {
		return fmt.Errorf("password must contain at least one digit")
	}
	if !hasSpecial {
		return fmt.Errorf("password must contain at least one special character (%s)", passwordSpecials)
	}
	return nil
}

// ValidatePasswordPair checks that both entries match and are strong enough.
func ValidatePasswordPair(password, password2 string) error {
	if password != password2 {
		return fmt.Errorf("passwords do not match")
	}
	return ValidatePassword(password)
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if strings.IndexFunc(username, unicode.IsSpace) >= 0 {
		return fmt.Errorf("username can not contain spaces")
	}
	if len(username) > maxUsernameLength {
		return fmt.Errorf("username must not exceed %d characters", maxUsernameLength)
	}
	if !usernameCharset.MatchString(username) {
		return fmt.Errorf("username may only contain letters, digits and @/./+/-/_ characters")
	}

	letters, symbols := 0, 0
	for _, r := range username {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
		default:
			symbols++
		}
	}
	if letters < minUsernameLetters {
		return fmt.Errorf("username must contain at least %d letters", minUsernameLetters)
	}
	if symbols > maxUsernameSymbols {
		return fmt.Errorf("username can contain at most %d special characters", maxUsernameSymbols)
	}
	return nil
}

// ValidateName allows letters and spaces only.
func ValidateName(name string) error {
	if len(name) > maxNameLength {
		return fmt.Errorf("name must not exceed %d characters", maxNameLength)
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && r != ' ' {
			return fmt.Errorf("name may only contain letters and spaces")
		}
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	if len(email) > maxEmailLength {
		return fmt.Errorf("email must not exceed %d characters", maxEmailLength)
	}
	return nil
}

// DefaultName derives a display name from the local part of an email.
func DefaultName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, r := range local {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		} else if b.Len() > 0 {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
