package validation

import "errors"

var (
	ErrNotFound         = errors.New("validation record not found")
	ErrInvalidInput     = errors.New("invalid validation input")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrNotAutomatic     = errors.New("category requires a manual payload")
	ErrNotManual        = errors.New("category is computed automatically")
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrOwnerNotFound    = errors.New("owner not found")
	ErrQueueUnavailable = errors.New("validation queue not configured")
)
