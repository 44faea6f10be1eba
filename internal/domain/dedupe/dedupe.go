// Package dedupe tracks in-flight scoring jobs so an assessment is not
// queued twice while a job for it is pending.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

const defaultMaxSize = 100_000

// Deduper records ids of pending work.
type Deduper interface {
	// SeenAndRecord atomically reports whether id is already pending and
	// records it when it is not.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord releases id once its work finished or could not be queued.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps ids in insertion order. When full, the oldest id
// is evicted so a stuck job cannot block its assessment forever.
type inMemoryDeduper struct {
	mu      sync.Mutex
	order   *list.List
	index   map[string]*list.Element
	maxSize int
}

// NewInMemoryDeduper creates a Deduper. A non-positive max size disables eviction.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		order:   list.New(),
		index:   make(map[string]*list.Element),
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.index[id]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.index, oldest.Value.(string))
	}
	d.index[id] = d.order.PushBack(id)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.index[id]; ok {
		d.order.Remove(el)
		delete(d.index, id)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
