// Package analytics wires the ganalytics components into one long-lived
// service.
//
// The service owns all mutable telemetry state: the session manager, the
// offline queue and the drain controller. It is constructed once at process
// start and never torn down; Run drives the drain controller with a periodic
// tick until the context is cancelled.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Moqi/ganalytics/internal/drain"
	"github.com/Moqi/ganalytics/internal/encoder"
	"github.com/Moqi/ganalytics/internal/models"
	"github.com/Moqi/ganalytics/internal/queue"
	"github.com/Moqi/ganalytics/internal/session"
	"github.com/Moqi/ganalytics/internal/store"
	"github.com/Moqi/ganalytics/internal/transport"
)

// Default service configuration
const (
	// DefaultDrainInterval is the tick period driving the drain controller.
	DefaultDrainInterval = 5 * time.Second
)

// Opts holds service configuration.
type Opts struct {
	// Account is the telemetry tracking account (UA-XXXX-Y).
	Account string
	// Domain is the host domain reported with every event.
	Domain string
	// CollectorURL overrides the telemetry endpoint; empty uses the default.
	CollectorURL string
	// QueuePrefix namespaces the offline queue in the durable store.
	QueuePrefix string
	// MaxQueued caps the offline queue; <= 0 means unlimited.
	MaxQueued int
	// OfflineLogging enables queueing of failed sends for later retry.
	OfflineLogging bool
	// DrainInterval is the tick period for the drain controller.
	DrainInterval time.Duration
	// Throttle is the pause between successfully drained entries.
	Throttle time.Duration
	// SendTimeout bounds a single telemetry request.
	SendTimeout time.Duration
	// SessionTimeout is the idle gap that starts a new session.
	SessionTimeout time.Duration
	// Sender overrides the HTTP transport. Used by tests.
	Sender transport.Sender
}

// Option configures the service.
type Option func(*Opts)

// WithAccount sets the tracking account.
func WithAccount(account string) Option {
	return func(o *Opts) { o.Account = account }
}

// WithDomain sets the reported host domain.
func WithDomain(domain string) Option {
	return func(o *Opts) { o.Domain = domain }
}

// WithCollectorURL overrides the telemetry endpoint.
func WithCollectorURL(u string) Option {
	return func(o *Opts) { o.CollectorURL = u }
}

// WithQueuePrefix sets the offline queue key prefix.
func WithQueuePrefix(prefix string) Option {
	return func(o *Opts) { o.QueuePrefix = prefix }
}

// WithMaxQueued caps the offline queue length.
func WithMaxQueued(max int) Option {
	return func(o *Opts) { o.MaxQueued = max }
}

// WithOfflineLogging toggles queueing of failed sends.
func WithOfflineLogging(enabled bool) Option {
	return func(o *Opts) { o.OfflineLogging = enabled }
}

// WithDrainInterval sets the drain tick period.
func WithDrainInterval(d time.Duration) Option {
	return func(o *Opts) { o.DrainInterval = d }
}

// WithThrottle sets the pause between drained entries.
func WithThrottle(d time.Duration) Option {
	return func(o *Opts) { o.Throttle = d }
}

// WithSendTimeout bounds a single telemetry request.
func WithSendTimeout(d time.Duration) Option {
	return func(o *Opts) { o.SendTimeout = d }
}

// WithSessionTimeout sets the idle gap that starts a new session.
func WithSessionTimeout(d time.Duration) Option {
	return func(o *Opts) { o.SessionTimeout = d }
}

// WithSender overrides the transport. Used by tests.
func WithSender(s transport.Sender) Option {
	return func(o *Opts) { o.Sender = s }
}

// Service is the process-wide telemetry emitter.
type Service struct {
	kv            store.KV
	q             *queue.Queue
	ctl           *drain.Controller
	session       *session.Manager
	drainInterval time.Duration
	// cancel ends the service lifetime context handed to the session
	// manager, stopping in-flight transmit goroutines from queueing.
	cancel context.CancelFunc
}

// New constructs the service over the given durable store. Pending offline
// entries from a previous run are recovered from the persisted queue count.
func New(kv store.KV, opts ...Option) (*Service, error) {
	cfg := Opts{
		OfflineLogging: true,
		DrainInterval:  DefaultDrainInterval,
		Throttle:       drain.DefaultThrottle,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Account == "" {
		return nil, fmt.Errorf("tracking account not set")
	}
	if cfg.Domain == "" {
		return nil, fmt.Errorf("tracking domain not set")
	}
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = DefaultDrainInterval
	}

	sender := cfg.Sender
	if sender == nil {
		sender = transport.NewHTTPSender(cfg.SendTimeout)
	}
	enc := encoder.New(cfg.Account, cfg.Domain, cfg.CollectorURL)
	q := queue.New(kv, queue.WithPrefix(cfg.QueuePrefix), queue.WithMaxEntries(cfg.MaxQueued))
	ctl := drain.New(q, sender, cfg.Throttle)
	lifeCtx, cancel := context.WithCancel(context.Background())
	sess := session.NewManager(lifeCtx, kv, enc, sender, q, ctl, cfg.OfflineLogging, cfg.SessionTimeout)

	slog.Info("Service.New: analytics service initialized",
		"account", cfg.Account, "domain", cfg.Domain,
		"offline_logging", cfg.OfflineLogging, "pending", ctl.HasPending())

	return &Service{
		kv:            kv,
		q:             q,
		ctl:           ctl,
		session:       sess,
		drainInterval: cfg.DrainInterval,
		cancel:        cancel,
	}, nil
}

// Run drives the drain controller until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	slog.Info("Service.Run: starting drain loop", "interval", s.drainInterval)
	ticker := time.NewTicker(s.drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Service.Run: stopping")
			return
		case <-ticker.C:
			s.ctl.Tick(ctx)
		}
	}
}

// RegisterView records a page/view visit.
func (s *Service) RegisterView(pageTitle string) {
	s.session.RegisterView(pageTitle)
}

// RegisterEvent records a categorized action.
func (s *Service) RegisterEvent(pageTitle, category, action, label string, value *int) {
	s.session.RegisterEvent(pageTitle, category, action, label, value)
}

// PurgeLoggedEvents discards every queued offline event.
func (s *Service) PurgeLoggedEvents() error {
	return s.session.PurgeLoggedEvents()
}

// Status reports queue depth, drain state and session counters.
func (s *Service) Status() models.StatusResponse {
	return models.StatusResponse{
		QueueLength: s.q.Len(),
		Draining:    s.ctl.Draining(),
		LastSendOK:  s.ctl.LastSendOK(),
		Session:     s.session.Snapshot(),
	}
}

// Close stops in-flight transmits and releases the durable store.
func (s *Service) Close() error {
	s.cancel()
	return s.kv.Close()
}
