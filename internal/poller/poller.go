package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/chatlink/internal/model"
)

// HistoryFetcher is satisfied by *api.Client.
type HistoryFetcher interface {
	GetMessages(ctx context.Context, contactID string) ([]model.Message, error)
}

// ContactSource provides the contacts to sync.
type ContactSource interface {
	ContactIDs() []string
}

// HistoryHandler receives fetched history.
type HistoryHandler interface {
	HandleHistory(contactID string, messages []model.Message) error
}

// HistoryHandlerFunc is a function adapter for HistoryHandler.
type HistoryHandlerFunc func(string, []model.Message) error

func (f HistoryHandlerFunc) HandleHistory(contactID string, messages []model.Message) error {
	return f(contactID, messages)
}

// Config holds poller configuration.
type Config struct {
	Interval    time.Duration // Poll interval (default: 5m)
	Concurrency int           // Max concurrent requests (default: 4)
	Timeout     time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    5 * time.Minute,
		Concurrency: 4,
		Timeout:     10 * time.Second,
	}
}

// Stats contains poller counters.
type Stats struct {
	Cycles  int64
	Fetched int64
	Errors  int64
}

// Poller periodically syncs per-contact history via the REST API.
type Poller struct {
	cfg      Config
	client   HistoryFetcher
	contacts ContactSource
	handler  HistoryHandler
	logger   *slog.Logger

	trigger chan struct{}

	cycles, fetched, errors atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, client HistoryFetcher, contacts ContactSource, handler HistoryHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:      cfg,
		client:   client,
		contacts: contacts,
		handler:  handler,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("history poller started",
		"interval", p.cfg.Interval,
		"concurrency", p.cfg.Concurrency,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("history poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Trigger requests a cycle as soon as possible. Requests made while one is
// already pending are coalesced.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Stats returns current counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Cycles:  p.cycles.Load(),
		Fetched: p.fetched.Load(),
		Errors:  p.errors.Load(),
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollAll()
		case <-p.trigger:
			p.pollAll()
		}
	}
}

// pollAll fetches history for all contacts concurrently.
func (p *Poller) pollAll() {
	start := time.Now()

	ids := p.contacts.ContactIDs()
	if len(ids) == 0 {
		p.logger.Debug("no contacts to sync")
		return
	}

	// Semaphore for bounded concurrency.
	sem := make(chan struct{}, max(p.cfg.Concurrency, 1))
	var wg sync.WaitGroup
	var fetched, failed atomic.Int64

	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-p.ctx.Done():
				return
			}

			if err := p.pollContact(id); err != nil {
				p.logger.Warn("failed to sync history",
					"contact_id", id,
					"error", err,
				)
				failed.Add(1)
				return
			}

			fetched.Add(1)
		}()
	}

	wg.Wait()

	p.cycles.Add(1)
	p.fetched.Add(fetched.Load())
	p.errors.Add(failed.Load())

	p.logger.Info("history sync complete",
		"contacts", len(ids),
		"fetched", fetched.Load(),
		"errors", failed.Load(),
		"duration", time.Since(start),
	)
}

// pollContact fetches and handles a single contact's history.
func (p *Poller) pollContact(contactID string) error {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	messages, err := p.client.GetMessages(ctx, contactID)
	if err != nil {
		return err
	}

	if p.handler != nil {
		return p.handler.HandleHistory(contactID, messages)
	}
	return nil
}
