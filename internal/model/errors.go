package model

import "errors"

var (
	// ErrNotFound is returned when an entity does not exist or is owned by
	// a different user. The two cases are indistinguishable on purpose.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredential is returned when a presented API key does not
	// match any stored credential.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrStorageUnavailable marks a failed or timed out call to the index
	// or the document store. Safe to retry with backoff.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrPartialWrite marks a create or append where the index write
	// succeeded but the document write failed. The reconciler can repair it.
	ErrPartialWrite = errors.New("partial write: index updated, document write failed")
	// ErrTideCompleted is returned on appends against a completed tide.
	ErrTideCompleted = errors.New("tide is completed")
	// ErrInvalidTransition is returned on a status change the state machine
	// does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)
