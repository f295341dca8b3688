package service

import "errors"

var (
	// ErrInvalidInput marks requests rejected before any storage access.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStorageUnavailable marks failures to acquire or query the record store.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
