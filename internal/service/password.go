package service

import "natours-api/internal/domain"

const MinPasswordLen = 8

// validatePassword enforces the password policy on a new password.
func validatePassword(password, confirm string) error {
	if password == "" {
		return domain.Validation("Please provide a password")
	}
	if len(password) < MinPasswordLen {
		return domain.Validation("Password must have at least 8 characters")
	}
	if password != confirm {
		return domain.Validation("Passwords are not the same!")
	}
	return nil
}
