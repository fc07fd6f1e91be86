package models

import "errors"

var (
	// ErrValidation is returned when a required field is missing or invalid
	ErrValidation = errors.New("validation failed")

	// ErrDuplicate is returned when a record already exists for the name today
	ErrDuplicate = errors.New("attendance already marked today")

	// ErrNotFound is returned when a table has never been initialized
	ErrNotFound = errors.New("no attendance data found")

	// ErrInvalidEmail is returned when an email cannot identify a scope
	ErrInvalidEmail = errors.New("invalid email")

	// ErrSessionNotFound is returned for unknown or expired sessions
	ErrSessionNotFound = errors.New("session not found")
)
