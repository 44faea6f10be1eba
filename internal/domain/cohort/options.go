package cohort

import "time"

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the clock used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMirror publishes every computed snapshot to m.
func WithMirror(m Mirror) Option {
	return func(c *Cache) {
		c.mirror = m
	}
}

// WithMirrorErrorHandler is called when publishing to the mirror fails.
func WithMirrorErrorHandler(fn func(Key, error)) Option {
	return func(c *Cache) {
		c.onMirrorError = fn
	}
}
