// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/samber/oops"
)

// Input validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxEmailLength    = 254
)

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, and underscores
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// emailRegex checks the coarse local@domain.tld shape. Deliverability is not
// this package's concern.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateUsername validates a username against rules.
// Username requirements:
// - Length: MinUsernameLength to MaxUsernameLength characters
// - Must start with a letter
// - Can contain only letters (a-z, A-Z), numbers (0-9), and underscores (_)
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code(CodeInvalidInput).
			With("field", "username").
			Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code(CodeInvalidInput).
			With("field", "username").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code(CodeInvalidInput).
			With("field", "username").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code(CodeInvalidInput).
			With("field", "username").
			Errorf("username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// ValidateEmail validates the structural shape of an email address.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code(CodeInvalidInput).
			With("field", "email").
			Errorf("email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return oops.Code(CodeInvalidInput).
			With("field", "email").
			With("max", MaxEmailLength).
			Errorf("email must be at most %d characters", MaxEmailLength)
	}
	if !emailRegex.MatchString(email) {
		return oops.Code(CodeInvalidInput).
			With("field", "email").
			Errorf("email is not a valid address")
	}
	return nil
}

// ValidatePassword validates password length and complexity. The plaintext is
// never logged or stored; only its length and character classes are examined.
func ValidatePassword(password string) error {
	if password == "" {
		return oops.Code(CodeInvalidInput).
			With("field", "password").
			Errorf("password cannot be empty")
	}
	if len(password) < MinPasswordLength {
		return oops.Code(CodeInvalidInput).
			With("field", "password").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return oops.Code(CodeInvalidInput).
			With("field", "password").
			With("max", MaxPasswordLength).
			Errorf("password must be at most %d characters", MaxPasswordLength)
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return oops.Code(CodeInvalidInput).
			With("field", "password").
			Errorf("password must contain at least one letter and one digit")
	}
	return nil
}

// ValidateRegistration checks raw registration input and returns the first
// violated rule. It performs no I/O and must run before any store access.
func ValidateRegistration(username, email, password string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return ValidatePassword(password)
}

// ValidateRegistrationAll is ValidateRegistration in "all errors" mode: every
// violated rule is reported, joined into a single error.
func ValidateRegistrationAll(username, email, password string) error {
	err := errors.Join(
		ValidateUsername(username),
		ValidateEmail(email),
		ValidatePassword(password),
	)
	if err == nil {
		return nil
	}
	return oops.Code(CodeInvalidInput).Wrap(err)
}

// ValidateSignIn checks raw sign-in input and returns the first violated
// rule. Sign-in only checks presence and bounds; the full complexity rules
// apply at registration time so older passwords keep working.
func ValidateSignIn(username, password string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if strings.TrimSpace(password) == "" {
		return oops.Code(CodeInvalidInput).
			With("field", "password").
			Errorf("password cannot be empty")
	}
	if len(password) > MaxPasswordLength {
		return oops.Code(CodeInvalidInput).
			With("field", "password").
			With("max", MaxPasswordLength).
			Errorf("password must be at most %d characters", MaxPasswordLength)
	}
	return nil
}
