package repository

import "errors"

// Sentinel store errors.
var (
	ErrNotFound          = errors.New("assessment not found")
	ErrDuplicate         = errors.New("assessment already exists")
	ErrInvalidAssessment = errors.New("invalid assessment")
	ErrUnsupportedDriver = errors.New("unsupported store driver")
)
