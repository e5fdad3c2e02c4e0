package model

import "errors"

var (
	// Navigation
	ErrNoNextPage     = errors.New("no next page")
	ErrNoPreviousPage = errors.New("already on the first page")
	ErrNoContainer    = errors.New("no container selected")
	ErrSuperseded     = errors.New("request superseded by a newer one")

	// Selection
	ErrNotSelectable = errors.New("item is not a selectable file")

	// Metadata
	ErrEmptyMetadataKey     = errors.New("metadata key cannot be empty")
	ErrDuplicateMetadataKey = errors.New("metadata key already exists")

	// Sessions and uploads
	ErrSessionNotFound = errors.New("session not found")
	ErrBatchNotFound   = errors.New("upload batch not found")
	ErrPromptNotFound  = errors.New("no pending overwrite prompt")
	ErrEntryNotFound   = errors.New("entry not found in current listing")

	// Auth
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
