// Package session tracks the visitor session and drives direct telemetry
// sends.
//
// The session is process-wide state with an init-once lifecycle: the cookie
// id is assigned randomly on first ever run and persisted forever, the visit
// counter and run epochs persist across restarts, and the last page title
// lives only in memory. Transport failures never reach the caller; when
// offline logging is enabled the failing URL is handed to the offline queue.
package session

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/Moqi/ganalytics/internal/drain"
	"github.com/Moqi/ganalytics/internal/encoder"
	"github.com/Moqi/ganalytics/internal/models"
	"github.com/Moqi/ganalytics/internal/queue"
	"github.com/Moqi/ganalytics/internal/store"
	"github.com/Moqi/ganalytics/internal/transport"
)

// Durable store keys for session state.
const (
	keyCookieID = "ga_cookie"
	keyFirstRun = "ga_first_run"
	keyLastRun  = "ga_last_run"
	keyVisits   = "ga_visits"
)

// DefaultSessionTimeout is the idle gap after which a new view starts a fresh
// session and bumps the visit counter.
const DefaultSessionTimeout = 30 * time.Minute

// Manager owns the mutable session state and the direct send path.
type Manager struct {
	mu sync.Mutex

	// ctx bounds the lifetime of transmit goroutines; once the owning
	// service cancels it, in-flight sends stop queueing their URLs.
	ctx context.Context

	kv             store.KV
	enc            *encoder.Encoder
	sender         transport.Sender
	q              *queue.Queue
	ctl            *drain.Controller
	offlineLogging bool
	sessionTimeout time.Duration

	cookieID      int
	firstRun      int64
	lastRun       int64
	sessionStart  int64
	visits        int
	lastPageTitle string
	lastHit       time.Time
}

// NewManager loads or initializes the persisted session state. The cookie id
// is assigned once per durable store lifetime; the last-run epoch is rewritten
// at every session start; the visit counter increments per session.
func NewManager(ctx context.Context, kv store.KV, enc *encoder.Encoder, sender transport.Sender, q *queue.Queue, ctl *drain.Controller, offlineLogging bool, sessionTimeout time.Duration) *Manager {
	if ctx == nil {
		ctx = context.Background()
	}
	if sessionTimeout <= 0 {
		sessionTimeout = DefaultSessionTimeout
	}
	m := &Manager{
		ctx:            ctx,
		kv:             kv,
		enc:            enc,
		sender:         sender,
		q:              q,
		ctl:            ctl,
		offlineLogging: offlineLogging,
		sessionTimeout: sessionTimeout,
	}

	now := time.Now().Unix()
	if !kv.HasKey(keyCookieID) {
		m.cookieID = int(rand.Int31())
		if err := kv.SetInt(keyCookieID, m.cookieID); err != nil {
			slog.Error("Manager.NewManager: failed to persist cookie id", "error", err)
		}
		if err := kv.SetInt(keyFirstRun, int(now)); err != nil {
			slog.Error("Manager.NewManager: failed to persist first run epoch", "error", err)
		}
		slog.Info("Manager.NewManager: new visitor cookie assigned", "cookie_id", m.cookieID)
	} else {
		m.cookieID = kv.GetInt(keyCookieID, 0)
	}
	m.firstRun = int64(kv.GetInt(keyFirstRun, int(now)))
	// The previous run's start becomes this session's "previous visit" field.
	m.lastRun = int64(kv.GetInt(keyLastRun, int(now)))
	if err := kv.SetInt(keyLastRun, int(now)); err != nil {
		slog.Error("Manager.NewManager: failed to persist last run epoch", "error", err)
	}
	m.sessionStart = now
	m.visits = kv.GetInt(keyVisits, 0) + 1
	if err := kv.SetInt(keyVisits, m.visits); err != nil {
		slog.Error("Manager.NewManager: failed to persist visit counter", "error", err)
	}
	slog.Debug("Manager.NewManager: session initialized", "cookie_id", m.cookieID, "visits", m.visits)
	return m
}

// RegisterView records a page/view visit and sends it directly. Network state
// never surfaces to the caller.
func (m *Manager) RegisterView(pageTitle string) {
	m.mu.Lock()
	m.touch()
	m.lastPageTitle = pageTitle
	url := m.enc.PageView(pageTitle, m.snapshotLocked())
	m.mu.Unlock()

	slog.Debug("Manager.RegisterView: view registered", "page", pageTitle)
	go m.transmit(url)
}

// RegisterEvent records a categorized action on the given page and sends it
// directly. Label may be empty and value nil; both are then omitted.
func (m *Manager) RegisterEvent(pageTitle, category, action, label string, value *int) {
	m.mu.Lock()
	m.touch()
	m.lastPageTitle = pageTitle
	url := m.enc.Event(pageTitle, category, action, label, value, m.snapshotLocked())
	m.mu.Unlock()

	slog.Debug("Manager.RegisterEvent: event registered", "page", pageTitle, "category", category, "action", action)
	go m.transmit(url)
}

// Snapshot returns the current session counters.
func (m *Manager) Snapshot() models.SessionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// LastPageTitle returns the most recently registered page title.
func (m *Manager) LastPageTitle() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPageTitle
}

// touch refreshes session liveness. A hit arriving after the idle timeout
// starts a new session: fresh session-start epoch, incremented visit counter.
// Caller holds m.mu.
func (m *Manager) touch() {
	now := time.Now()
	if !m.lastHit.IsZero() && now.Sub(m.lastHit) > m.sessionTimeout {
		m.lastRun = m.sessionStart
		m.sessionStart = now.Unix()
		m.visits++
		if err := m.kv.SetInt(keyVisits, m.visits); err != nil {
			slog.Error("Manager.touch: failed to persist visit counter", "error", err)
		}
		if err := m.kv.SetInt(keyLastRun, int(now.Unix())); err != nil {
			slog.Error("Manager.touch: failed to persist last run epoch", "error", err)
		}
		slog.Debug("Manager.touch: session timed out, new session started", "visits", m.visits)
	}
	m.lastHit = now
}

func (m *Manager) snapshotLocked() models.SessionSnapshot {
	return models.SessionSnapshot{
		CookieID:     m.cookieID,
		FirstRun:     m.firstRun,
		LastRun:      m.lastRun,
		SessionStart: m.sessionStart,
		Visits:       m.visits,
	}
}

// transmit performs the direct send and, on failure, hands the URL to the
// offline queue. Runs on its own goroutine; the registering caller has
// already returned.
func (m *Manager) transmit(url string) {
	res := m.sender.Send(m.ctx, url)
	m.ctl.RecordResult(res.Succeeded)
	if res.Succeeded {
		slog.Debug("Manager.transmit: direct send succeeded")
		return
	}

	slog.Debug("Manager.transmit: direct send failed", "url", res.FinalURL, "error", res.Err)
	if m.ctx.Err() != nil {
		// The service is shutting down; the send failed because of the
		// cancelled context, not the network. Do not queue it.
		slog.Debug("Manager.transmit: shutting down, send not queued")
		return
	}
	if !m.offlineLogging {
		return
	}
	if err := m.q.Append(url); err != nil {
		if errors.Is(err, queue.ErrQueueFull) {
			slog.Warn("Manager.transmit: offline queue full, event dropped")
		} else {
			slog.Error("Manager.transmit: failed to queue event", "error", err)
		}
		return
	}
	m.ctl.MarkPending()
}

// PurgeLoggedEvents discards every queued offline event.
func (m *Manager) PurgeLoggedEvents() error {
	if err := m.q.PurgeAll(); err != nil {
		return err
	}
	m.ctl.ClearPending()
	slog.Info("Manager.PurgeLoggedEvents: offline queue purged")
	return nil
}
