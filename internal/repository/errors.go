package repository

import "errors"

var (
	// ErrValidation covers empty or over-length text, unknown message types,
	// and dangling reply references.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden is returned when the requester is neither the sender nor
	// a moderator.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when a referenced message does not exist.
	ErrNotFound = errors.New("message not found")

	// ErrAlreadyDeleted is returned on edit or delete of a soft-deleted
	// message.
	ErrAlreadyDeleted = errors.New("message is already deleted")

	// ErrStorageUnavailable wraps failures reaching the durable store.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
