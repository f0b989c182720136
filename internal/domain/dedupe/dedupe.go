// Package dedupe tracks idempotency keys so a retried recommendation request
// is not recorded twice.
package dedupe

import (
	"container/list"
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultMaxSize = 50000
	defaultTTL     = 24 * time.Hour
)

// Deduper records seen idempotency keys.
type Deduper interface {
	// SeenAndRecord atomically checks whether key was seen and records it if
	// not. It returns true when the key was already present.
	SeenAndRecord(ctx context.Context, key string) (bool, error)

	// Unrecord forgets key so that a request which failed after recording can
	// be retried with the same key.
	Unrecord(ctx context.Context, key string) error
}

// Key scopes an idempotency key to a subject. The subject is length prefixed
// so that separators inside either part cannot make two pairs collide.
func Key(subject, key string) string {
	return strconv.Itoa(len(subject)) + ":" + subject + ":" + key
}

type entry struct {
	key     string
	expires time.Time
}

// InMemoryDeduper keeps keys in insertion order. When full, the oldest key is
// evicted; keys also expire after the configured TTL.
type InMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	size    atomic.Int64
}

// NewInMemoryDeduper creates an in-memory deduper.
func NewInMemoryDeduper(opts ...Option) *InMemoryDeduper {
	d := &InMemoryDeduper{
		maxSize: defaultMaxSize,
		ttl:     defaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

// SeenAndRecord implements Deduper. It never returns an error.
func (d *InMemoryDeduper) SeenAndRecord(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.expire(now)

	if _, ok := d.seen[key]; ok {
		return true, nil
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.remove(d.order.Front())
	}
	var expires time.Time
	if d.ttl > 0 {
		expires = now.Add(d.ttl)
	}
	d.seen[key] = d.order.PushBack(&entry{key: key, expires: expires})
	d.size.Add(1)
	return false, nil
}

// Unrecord implements Deduper.
func (d *InMemoryDeduper) Unrecord(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.seen[key]; ok {
		d.remove(el)
	}
	return nil
}

// Size returns the number of keys currently tracked.
func (d *InMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// expire drops keys from the front while they are past their deadline.
// Entries are in insertion order and share one TTL, so deadlines are sorted.
// Must be called with d.mu held.
func (d *InMemoryDeduper) expire(now time.Time) {
	if d.ttl <= 0 {
		return
	}
	for el := d.order.Front(); el != nil; el = d.order.Front() {
		if now.Before(el.Value.(*entry).expires) {
			return
		}
		d.remove(el)
	}
}

// Must be called with d.mu held.
func (d *InMemoryDeduper) remove(el *list.Element) {
	if el == nil {
		return
	}
	e := d.order.Remove(el).(*entry)
	delete(d.seen, e.key)
	d.size.Add(-1)
}
