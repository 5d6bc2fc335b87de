package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/parkwatch/lot-occupancy-service/internal/domain"
	"github.com/parkwatch/lot-occupancy-service/internal/observability"
)

// fetchFunc issues one upstream occupancy request and returns the resulting
// snapshot update.
type fetchFunc func(ctx context.Context) (domain.SnapshotUpdate, error)

// Poller runs the recurring fetch cycle for one lot. Cycles fire on every
// interval tick whether or not the previous cycle has completed; slow
// responses therefore complete out of issue order, and results are delivered
// in completion order. A failed cycle reports the error and keeps polling.
//
// Stop is idempotent and guarantees that neither callback fires after it
// returns, even for fetches still in flight: delivery checks the stop flag
// under the same lock Stop takes, rather than relying on the ticker alone.
type Poller struct {
	lot      string
	fetch    fetchFunc
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	onUpdate func(domain.SnapshotUpdate)
	onError  func(error)

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
}

func newPoller(lot string, fetch fetchFunc, interval time.Duration, clock clockwork.Clock,
	logger *slog.Logger, metrics *observability.Metrics,
	onUpdate func(domain.SnapshotUpdate), onError func(error)) *Poller {
	return &Poller{
		lot:      lot,
		fetch:    fetch,
		interval: interval,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
		onUpdate: onUpdate,
		onError:  onError,
	}
}

// Start begins the poll loop with an immediate first cycle. Calling Start
// again, or after Stop, is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()

	p.logger.Info("poller started", "lot", p.lot, "interval", p.interval)
	go p.loop(ctx)
}

// Stop cancels the poll loop. Safe to call multiple times; once it returns,
// no further update or error callback will fire.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.logger.Info("poller stopped", "lot", p.lot)
}

func (p *Poller) loop(ctx context.Context) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	go p.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			// Cycles are not mutually exclusive; each runs on its own
			// goroutine so a slow response never delays the next tick.
			go p.cycle(ctx)
		}
	}
}

func (p *Poller) cycle(ctx context.Context) {
	start := time.Now()
	update, err := p.fetch(ctx)
	p.metrics.PollDuration.WithLabelValues(p.lot).Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.metrics.PollsTotal.WithLabelValues(p.lot, "error").Inc()
		p.logger.Warn("poll cycle failed", "lot", p.lot, "error", err)
		p.deliver(func() { p.onError(err) })
		return
	}
	p.metrics.PollsTotal.WithLabelValues(p.lot, "success").Inc()
	p.deliver(func() { p.onUpdate(update) })
}

// deliver invokes a callback unless the poller has stopped. The lock is held
// across the callback, so a concurrent Stop waits out any delivery already in
// progress before returning.
func (p *Poller) deliver(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		p.metrics.StaleDiscards.Inc()
		return
	}
	fn()
}
