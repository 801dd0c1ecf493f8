package domain

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCardAlreadyIssued is returned when a card issuance would violate
	// the at-most-one-card-per-attendee invariant. Callers treat it as an
	// idempotent success, not a failure.
	ErrCardAlreadyIssued = errors.New("attendee already has a card")

	// ErrPlatformNotConfigured signals that a wallet platform is missing
	// credentials and should be skipped rather than reported as failed.
	ErrPlatformNotConfigured = errors.New("wallet platform not configured")

	ErrInvalidInput = errors.New("invalid input")
)
