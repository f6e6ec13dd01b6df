// Package queue implements the durable offline queue for failed telemetry
// sends.
//
// Entries live in the durable store as (prefix+index) -> url with a persisted
// count scalar under prefix+"count". The keys prefix+0 .. prefix+(count-1)
// always denote exactly the live, un-drained entries: removals update the
// persisted count in the same operation, so a crash at any point leaves a
// consistent queue for the next start.
package queue

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"sync"

	"github.com/Moqi/ganalytics/internal/store"
)

// ErrQueueFull reports an append beyond the configured capacity. The event is
// dropped; the caller logs and moves on.
var ErrQueueFull = errors.New("offline queue is full")

// Default queue configuration
const (
	// DefaultPrefix namespaces queue keys in the durable store.
	DefaultPrefix = "ga_evt_"
	// DefaultMaxEntries of 0 means unlimited. Storage-constrained deployments
	// set a small positive cap.
	DefaultMaxEntries = 0
)

// Opts holds queue configuration.
type Opts struct {
	// Prefix namespaces the queue's keys in the durable store.
	Prefix string
	// MaxEntries caps the queue length; <= 0 means unlimited.
	MaxEntries int
}

// Option configures the queue.
type Option func(*Opts)

// WithPrefix sets the durable store key prefix.
func WithPrefix(prefix string) Option {
	return func(o *Opts) { o.Prefix = prefix }
}

// WithMaxEntries caps the number of queued entries; <= 0 means unlimited.
func WithMaxEntries(max int) Option {
	return func(o *Opts) { o.MaxEntries = max }
}

// Queue is a durable, indexed list of pending request URLs. All methods are
// safe for use from the session goroutines and the drain pass concurrently.
type Queue struct {
	mu     sync.Mutex
	kv     store.KV
	prefix string
	max    int
}

// New creates a queue over the given durable store.
func New(kv store.KV, opts ...Option) *Queue {
	cfg := Opts{Prefix: DefaultPrefix, MaxEntries: DefaultMaxEntries}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	return &Queue{kv: kv, prefix: cfg.Prefix, max: cfg.MaxEntries}
}

func (q *Queue) entryKey(index int) string {
	return q.prefix + strconv.Itoa(index)
}

func (q *Queue) countKey() string {
	return q.prefix + "count"
}

// Len returns the persisted number of queued entries.
func (q *Queue) Len() int {
	return q.kv.GetInt(q.countKey(), 0)
}

// Append persists url at the tail of the queue. Returns ErrQueueFull when the
// configured capacity is reached; the store is left unchanged in that case.
func (q *Queue) Append(url string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	count := q.kv.GetInt(q.countKey(), 0)
	if q.max > 0 && count >= q.max {
		slog.Warn("Queue.Append: queue full, dropping event", "count", count, "max", q.max)
		return ErrQueueFull
	}
	if err := q.kv.SetString(q.entryKey(count), url); err != nil {
		return fmt.Errorf("failed to persist queue entry %d: %w", count, err)
	}
	if err := q.kv.SetInt(q.countKey(), count+1); err != nil {
		return fmt.Errorf("failed to persist queue count: %w", err)
	}
	slog.Debug("Queue.Append: event queued", "index", count, "count", count+1)
	return nil
}

// Peek returns the URL stored at index, or "" if the key is absent. Callers
// validate the index range; an empty result means the entry was already
// removed.
func (q *Queue) Peek(index int) string {
	return q.kv.GetString(q.entryKey(index))
}

// Ack removes the entry at index and persists the decremented count in the
// same step. Entries appended while a drain pass holds higher indices are
// shifted down so the key space 0..count-1 stays dense.
func (q *Queue) Ack(index int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	count := q.kv.GetInt(q.countKey(), 0)
	if index >= count {
		// Count already reflects this removal.
		return q.kv.DeleteKey(q.entryKey(index))
	}
	if err := q.kv.DeleteKey(q.entryKey(index)); err != nil {
		return fmt.Errorf("failed to delete queue entry %d: %w", index, err)
	}
	// Concurrent appends land above the index a drain pass is working at;
	// shift them down one slot so no live entry sits above the count.
	for j := index + 1; j < count; j++ {
		val := q.kv.GetString(q.entryKey(j))
		if err := q.kv.SetString(q.entryKey(j-1), val); err != nil {
			return fmt.Errorf("failed to shift queue entry %d: %w", j, err)
		}
		if err := q.kv.DeleteKey(q.entryKey(j)); err != nil {
			return fmt.Errorf("failed to delete shifted entry %d: %w", j, err)
		}
	}
	if err := q.kv.SetInt(q.countKey(), count-1); err != nil {
		return fmt.Errorf("failed to persist queue count: %w", err)
	}
	return nil
}

// PurgeAll deletes every queued entry and resets the count to zero. Entries
// are removed one at a time, yielding between deletions so a long purge does
// not monopolize the scheduler.
func (q *Queue) PurgeAll() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	count := q.kv.GetInt(q.countKey(), 0)
	slog.Debug("Queue.PurgeAll: purging queued events", "count", count)
	for i := 0; i < count; i++ {
		if err := q.kv.DeleteKey(q.entryKey(i)); err != nil {
			return fmt.Errorf("failed to purge queue entry %d: %w", i, err)
		}
		runtime.Gosched()
	}
	if err := q.kv.SetInt(q.countKey(), 0); err != nil {
		return fmt.Errorf("failed to reset queue count: %w", err)
	}
	return nil
}
