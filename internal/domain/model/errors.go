package model

import "errors"

// ErrMalformedPayload is returned when a stored scoring result cannot be decoded.
var ErrMalformedPayload = errors.New("malformed result payload")
