package cache

import "time"

// Option applies a configuration option to the SnapshotMirror.
type Option func(*SnapshotMirror)

// WithTTL sets the expiry of mirrored snapshots. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(m *SnapshotMirror) {
		if ttl >= 0 {
			m.ttl = ttl
		}
	}
}

// WithPrefix namespaces mirror keys.
func WithPrefix(prefix string) Option {
	return func(m *SnapshotMirror) {
		if prefix != "" {
			m.prefix = prefix
		}
	}
}
