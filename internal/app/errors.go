package service

import "errors"

// Errors surfaced to the HTTP layer.
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateJob = errors.New("scoring job already in flight")
	ErrQueueFull    = errors.New("scoring queue full")
	ErrNotStarted   = errors.New("service not started")
	ErrInvalidInput = errors.New("invalid input")
)
