package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrNotValid is returned when a request or resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrRateLimited is returned when a client exceeded its request window.
	ErrRateLimited = errors.New("rate limited")
	// ErrCLINotFound is returned when the wrapped CLI executable is missing.
	ErrCLINotFound = errors.New("wrapped CLI not found")
	// ErrTimeout is returned when an execution exceeded its wall-clock budget.
	ErrTimeout = errors.New("execution timed out")
)
