package scoring

import "time"

// Option configures a Scorer.
type Option func(*Scorer)

// WithClock overrides the clock stamping progression points.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the progression point id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Scorer) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithBatchConcurrency bounds concurrent writes during RecomputeBatch.
func WithBatchConcurrency(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}
