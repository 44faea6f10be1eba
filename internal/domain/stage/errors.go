package stage

import "errors"

// Question bank errors.
var (
	ErrInvalidBank = errors.New("invalid question bank")
	ErrEmptyBank   = errors.New("empty question bank")
)
