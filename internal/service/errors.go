package service

import "errors"

var (
	// ErrValidation means the input was malformed or incomplete
	ErrValidation = errors.New("validation failed")
	// ErrNotFound means no record (or object) exists for the identifier
	ErrNotFound = errors.New("file not found")
	// ErrExpired means the record exists but is past its expiry
	ErrExpired = errors.New("file expired")
	// ErrUnauthorized means a credential is missing or wrong
	ErrUnauthorized = errors.New("invalid credentials")
	// ErrForbidden means a valid credential lacks the required role
	ErrForbidden = errors.New("forbidden")
	// ErrStorageUnavailable wraps failures of the metadata or object store.
	// Callers may retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrSlugExhausted means no free slug was found within the attempt budget
	ErrSlugExhausted = errors.New("could not allocate a free slug")
)
