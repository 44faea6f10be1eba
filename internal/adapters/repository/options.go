package repository

import "github.com/okian/nexus-ssn/pkg/logger"

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithMaxConns bounds the connection pool.
func WithMaxConns(n int) Option {
	return func(s *SQLStore) {
		if n > 0 {
			s.maxConns = n
		}
	}
}

// WithLogger sets the logger used for row-level warnings.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLStore) {
		s.logger = l
	}
}
