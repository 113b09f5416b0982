// Package errors provides user-facing errors with actionable hints.
package errors

import "fmt"

// UserFriendlyError provides an error with helpful hints for the user
type UserFriendlyError struct {
	Message string   // The primary error message
	Hints   []string // Actionable suggestions for the user
	Cause   error    // The underlying error (if any)
}

// Error implements the error interface
func (e *UserFriendlyError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	if len(e.Hints) > 0 {
		msg += "\n\nSuggested actions:"
		for _, hint := range e.Hints {
			msg += fmt.Sprintf("\n  → %s", hint)
		}
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As compatibility
func (e *UserFriendlyError) Unwrap() error {
	return e.Cause
}

// AlreadyRunning creates an error for when another bob instance holds the lock
func AlreadyRunning(lockPath string) *UserFriendlyError {
	return &UserFriendlyError{
		Message: "Another bob instance appears to be running",
		Hints: []string{
			"Quit the other instance first",
			fmt.Sprintf("If it crashed, remove the stale lock: rm %s", lockPath),
		},
	}
}

// ConfigInvalid creates an error for a config file that failed to load or validate
func ConfigInvalid(path string, cause error) *UserFriendlyError {
	return &UserFriendlyError{
		Message: fmt.Sprintf("Configuration file %s is invalid", path),
		Hints: []string{
			"Fix the reported field, or delete the file to fall back to defaults",
		},
		Cause: cause,
	}
}

// StoreUnreadable creates an error for a project list that cannot be loaded
func StoreUnreadable(path string, cause error) *UserFriendlyError {
	return &UserFriendlyError{
		Message: fmt.Sprintf("Project list %s cannot be read", path),
		Hints: []string{
			"Move the file aside to start with an empty project list",
		},
		Cause: cause,
	}
}
