package services

import "errors"

// ClearAllConfirmation is the literal a user must type to wipe all data.
const ClearAllConfirmation = "DELETE ALL"

var ErrConfirmationMismatch = errors.New(`please type "DELETE ALL" to confirm`)

// ConfirmClearAll accepts only the exact, case-sensitive confirmation text.
func ConfirmClearAll(text string) error {
	if text != ClearAllConfirmation {
		return ErrConfirmationMismatch
	}
	return nil
}
