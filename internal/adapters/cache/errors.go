package cache

import "errors"

var (
	// ErrCacheMiss is returned when no snapshot is mirrored for the key.
	ErrCacheMiss = errors.New("cache: key not found")

	ErrConnection    = errors.New("cache: connection failed")
	ErrSerialization = errors.New("cache: serialization failed")
)
