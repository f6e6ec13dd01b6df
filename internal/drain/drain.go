// Package drain implements the controller that flushes the offline queue.
//
// A pass runs at most once at a time (single-flight guard), starts only when
// entries are pending and the last live transmission succeeded (reachability
// heuristic), and walks the queue tail-to-head so an aborted pass leaves the
// oldest entries intact and resumes at the newest unprocessed point with no
// separate cursor.
package drain

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Moqi/ganalytics/internal/queue"
	"github.com/Moqi/ganalytics/internal/transport"
)

// DefaultThrottle is the pause after each successfully drained entry so a
// backlog flush does not burst against the collector.
const DefaultThrottle = time.Second

// Controller owns the drain state machine.
type Controller struct {
	q        *queue.Queue
	sender   transport.Sender
	throttle time.Duration

	// draining is the single-flight guard: ticks keep arriving while a pass
	// is suspended on a network call, and a second pass must never start.
	draining atomic.Bool
	// lastOK mirrors the outcome of the most recent live transmission,
	// direct or drained. Starts optimistic so a restart with a healthy
	// network drains the backlog without waiting for a direct send.
	lastOK atomic.Bool
	// pending caches queue non-emptiness so idle ticks stay cheap.
	pending atomic.Bool
}

// New creates a Controller over the queue. Pending state is reconstructed
// from the persisted queue count, so a restarted process resumes where the
// previous one stopped.
func New(q *queue.Queue, sender transport.Sender, throttle time.Duration) *Controller {
	if throttle < 0 {
		throttle = DefaultThrottle
	}
	c := &Controller{q: q, sender: sender, throttle: throttle}
	c.lastOK.Store(true)
	if n := q.Len(); n > 0 {
		slog.Info("Controller.New: pending events recovered from previous run", "count", n)
		c.pending.Store(true)
	}
	return c
}

// RecordResult feeds the reachability heuristic with the outcome of a live
// transmission.
func (c *Controller) RecordResult(succeeded bool) {
	c.lastOK.Store(succeeded)
}

// MarkPending notes that the queue has at least one entry.
func (c *Controller) MarkPending() {
	c.pending.Store(true)
}

// ClearPending notes that the queue was emptied outside a drain pass (purge).
func (c *Controller) ClearPending() {
	c.pending.Store(false)
}

// HasPending reports whether queued entries are awaiting a drain.
func (c *Controller) HasPending() bool {
	return c.pending.Load()
}

// Draining reports whether a pass is currently in flight.
func (c *Controller) Draining() bool {
	return c.draining.Load()
}

// LastSendOK reports the most recent live transmission outcome.
func (c *Controller) LastSendOK() bool {
	return c.lastOK.Load()
}

// Tick is invoked periodically by the owning service. It starts a drain pass
// when one is warranted and reports whether it did. A pass already in flight,
// an empty queue, or a network that just failed all leave the controller idle.
func (c *Controller) Tick(ctx context.Context) bool {
	if !c.pending.Load() || !c.lastOK.Load() {
		return false
	}
	if !c.draining.CompareAndSwap(false, true) {
		return false
	}
	go c.drainPass(ctx)
	return true
}

// drainPass flushes the queue from the most recently queued entry backward,
// stopping at the first failure. The persisted count is updated with every
// removal, so terminating mid-pass never strands state.
func (c *Controller) drainPass(ctx context.Context) {
	defer c.draining.Store(false)

	n := c.q.Len()
	slog.Debug("Controller.drainPass: starting drain pass", "entries", n)
	for i := n - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			slog.Debug("Controller.drainPass: context cancelled, stopping", "index", i)
			return
		}
		url := c.q.Peek(i)
		if url == "" {
			// The entry was removed but the count not yet updated when a
			// previous process died. Treat it as already sent.
			slog.Warn("Controller.drainPass: missing queue entry, treating as sent", "index", i)
			if err := c.q.Ack(i); err != nil {
				slog.Error("Controller.drainPass: failed to ack missing entry", "index", i, "error", err)
				return
			}
			continue
		}

		res := c.sender.Send(ctx, url)
		c.RecordResult(res.Succeeded)
		if !res.Succeeded {
			slog.Warn("Controller.drainPass: send failed, aborting pass", "index", i, "url", res.FinalURL, "error", res.Err)
			return
		}
		if err := c.q.Ack(i); err != nil {
			slog.Error("Controller.drainPass: failed to remove drained entry", "index", i, "error", err)
			return
		}
		slog.Debug("Controller.drainPass: entry drained", "index", i)

		if i > 0 && c.throttle > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.throttle):
			}
		}
	}
	if c.q.Len() == 0 {
		c.pending.Store(false)
	}
	slog.Debug("Controller.drainPass: pass complete", "remaining", c.q.Len())
}
