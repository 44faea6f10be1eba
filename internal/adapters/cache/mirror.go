// Package cache mirrors cohort snapshots to Redis so that replicas and
// restarted processes can serve the last computed statistics.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/nexus-ssn/internal/domain/cohort"
)

const (
	defaultPrefix = "nexus:cohort:"
	defaultTTL    = 24 * time.Hour
)

// SnapshotMirror stores one JSON snapshot per cohort key.
type SnapshotMirror struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewSnapshotMirror wraps an existing client.
func NewSnapshotMirror(client redis.Cmdable, opts ...Option) *SnapshotMirror {
	m := &SnapshotMirror{client: client, prefix: defaultPrefix, ttl: defaultTTL}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dial creates a client and checks the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnection, addr, err)
	}
	return client, nil
}

// Key returns the redis key holding a cohort snapshot.
func (m *SnapshotMirror) Key(k cohort.Key) string {
	return m.prefix + k.String()
}

// Publish writes s with the configured TTL.
func (m *SnapshotMirror) Publish(ctx context.Context, s cohort.Snapshot) error {
	buf, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	if err := m.client.Set(ctx, m.Key(s.Key()), buf, m.ttl).Err(); err != nil {
		return fmt.Errorf("publish cohort %s: %w", s.Key(), err)
	}
	return nil
}

// Load reads the mirrored snapshot. Returns ErrCacheMiss when absent.
func (m *SnapshotMirror) Load(ctx context.Context, k cohort.Key) (cohort.Snapshot, error) {
	buf, err := m.client.Get(ctx, m.Key(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cohort.Snapshot{}, fmt.Errorf("%w: %s", ErrCacheMiss, k)
	}
	if err != nil {
		return cohort.Snapshot{}, fmt.Errorf("load cohort %s: %w", k, err)
	}

	var s cohort.Snapshot
	if err := json.Unmarshal(buf, &s); err != nil {
		return cohort.Snapshot{}, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return s, nil
}

var _ cohort.Mirror = (*SnapshotMirror)(nil)
