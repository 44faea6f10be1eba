package projection

import "time"

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock stamping projections.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides the projection id generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// WithDefaultWeeklyHours sets the hours used when a request has none.
func WithDefaultWeeklyHours(h float64) Option {
	return func(e *Engine) {
		if h >= 0 {
			e.defaultHours = h
		}
	}
}

// WithDefaultMethodology sets the methodology used when a request has none.
func WithDefaultMethodology(m float64) Option {
	return func(e *Engine) {
		if m >= 0 && m <= 100 {
			e.defaultMethodology = m
		}
	}
}
