package config

import (
	"errors"
)

// ErrInvalidConfig wraps validation failures; ErrLoadConfig wraps source failures.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
