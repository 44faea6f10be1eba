package projection

import "errors"

// ErrInvalidInput is returned for out-of-range caller features.
var ErrInvalidInput = errors.New("invalid projection input")
