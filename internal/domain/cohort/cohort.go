// Package cohort computes and memoizes the reference distribution used to
// normalize raw composites.
package cohort

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// Cohort defaults.
const (
	// LowSampleThreshold is the sample size below which a cohort is flagged.
	LowSampleThreshold = 30
	// FallbackStd replaces a zero dispersion.
	FallbackStd = 15.0
	// PriorMean is reported for a cohort without any sample.
	PriorMean = 50.0

	statsPrecision = 100.0
)

// Key identifies a cohort. An empty Version spans every version of Type.
type Key struct {
	Type    string
	Version string
}

// keyEscaper keeps "@" unique to the type/version separator.
var keyEscaper = strings.NewReplacer("%", "%25", "@", "%40")

// String renders the key as type or type@version. "@" and "%" inside either
// part are percent-escaped, so distinct keys never render the same.
func (k Key) String() string {
	if k.Version == "" {
		return keyEscaper.Replace(k.Type)
	}
	return keyEscaper.Replace(k.Type) + "@" + keyEscaper.Replace(k.Version)
}

// Snapshot is one computation of a cohort's statistics.
type Snapshot struct {
	Type        string    `json:"type"`
	Version     string    `json:"version,omitempty"`
	Mean        float64   `json:"mean"`
	Std         float64   `json:"std"`
	SampleSize  int       `json:"sampleSize"`
	IsLowSample bool      `json:"isLowSample"`
	ComputedAt  time.Time `json:"computedAt"`
}

// Key returns the cache key of the snapshot.
func (s Snapshot) Key() Key { return Key{Type: s.Type, Version: s.Version} }

// Delta compares a snapshot with the one it superseded.
type Delta struct {
	SampleDelta int     `json:"sampleDelta"`
	MeanDelta   float64 `json:"meanDelta"`
	StdDelta    float64 `json:"stdDelta"`
}

// Audit is the outcome of an audited recomputation. Previous and Delta are
// nil the first time a key is computed.
type Audit struct {
	Type     string    `json:"type"`
	Stats    Snapshot  `json:"stats"`
	Previous *Snapshot `json:"previousStats"`
	Delta    *Delta    `json:"delta,omitempty"`
}

// Source supplies the raw scores of a cohort, nulls already removed.
type Source interface {
	FetchRawScores(ctx context.Context, key Key) ([]float64, error)
}

// Mirror receives every computed snapshot. Publishing is best effort.
type Mirror interface {
	Publish(ctx context.Context, snap Snapshot) error
}

// Cache holds the latest snapshot per key. Writers race last-writer-wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]Snapshot

	source        Source
	mirror        Mirror
	onMirrorError func(Key, error)
	now           func() time.Time
}

// NewCache creates an empty cache reading populations from src.
func NewCache(src Source, opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[Key]Snapshot),
		source:  src,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compute fetches the population for key, computes its statistics and
// replaces the cached snapshot. An empty population yields the prior
// (mean 50, std 15) flagged as low sample.
func (c *Cache) Compute(ctx context.Context, key Key) (Snapshot, error) {
	scores, err := c.source.FetchRawScores(ctx, key)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch raw scores for cohort %s: %w", key, err)
	}

	snap := Summarize(key, scores, c.now())

	c.mu.Lock()
	c.entries[key] = snap
	c.mu.Unlock()

	if c.mirror != nil {
		if err := c.mirror.Publish(ctx, snap); err != nil && c.onMirrorError != nil {
			c.onMirrorError(key, err)
		}
	}
	return snap, nil
}

// Cached returns the cached snapshot for key without computing.
func (c *Cache) Cached(key Key) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.entries[key]
	return snap, ok
}

// ComputeWithAudit recomputes key and reports the change against the
// snapshot cached before the call.
func (c *Cache) ComputeWithAudit(ctx context.Context, key Key) (Audit, error) {
	prev, hadPrev := c.Cached(key)

	snap, err := c.Compute(ctx, key)
	if err != nil {
		return Audit{}, err
	}

	out := Audit{Type: key.Type, Stats: snap}
	if hadPrev {
		out.Previous = &prev
		out.Delta = &Delta{
			SampleDelta: snap.SampleSize - prev.SampleSize,
			MeanDelta:   round2(snap.Mean - prev.Mean),
			StdDelta:    round2(snap.Std - prev.Std),
		}
	}
	return out, nil
}

// Keys lists cached keys in a stable order.
func (c *Cache) Keys() []Key {
	c.mu.RLock()
	keys := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}
		return keys[i].Version < keys[j].Version
	})
	return keys
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Summarize computes the snapshot of scores for key. Std is the population
// standard deviation; mean and std are rounded to two decimals.
func Summarize(key Key, scores []float64, at time.Time) Snapshot {
	snap := Snapshot{
		Type:        key.Type,
		Version:     key.Version,
		Mean:        PriorMean,
		Std:         FallbackStd,
		IsLowSample: true,
		ComputedAt:  at,
	}

	var sum float64
	n := 0
	for _, s := range scores {
		if math.IsNaN(s) {
			continue
		}
		sum += s
		n++
	}
	if n == 0 {
		return snap
	}

	mean := sum / float64(n)
	var sq float64
	for _, s := range scores {
		if math.IsNaN(s) {
			continue
		}
		d := s - mean
		sq += d * d
	}
	std := round2(math.Sqrt(sq / float64(n)))
	if std == 0 {
		std = FallbackStd
	}

	snap.Mean = round2(mean)
	snap.Std = std
	snap.SampleSize = n
	snap.IsLowSample = n < LowSampleThreshold
	return snap
}

func round2(v float64) float64 {
	return math.Round(v*statsPrecision) / statsPrecision
}
