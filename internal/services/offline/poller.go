package offline

import (
	"context"
	"sync"
	"time"

	"github.com/openkiosk/donation-engine/internal/domain/ports"
	"github.com/openkiosk/donation-engine/pkg/resilience"
)

// Poller drives Monitor.Refresh on a fixed interval. Failed refreshes back
// off exponentially instead of hammering a terminal that is clearly unwell,
// then return to the regular cadence on the first success.
type Poller struct {
	monitor  *Monitor
	logger   ports.Logger
	interval time.Duration
	backoff  resilience.BackoffStrategy

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewPoller creates a poller. A nil backoff falls back to the offline-poll
// profile.
func NewPoller(monitor *Monitor, interval time.Duration, backoff resilience.BackoffStrategy, logger ports.Logger) *Poller {
	if backoff == nil {
		backoff = resilience.OfflinePollBackoff()
	}
	return &Poller{
		monitor:  monitor,
		logger:   logger,
		interval: interval,
		backoff:  backoff,
	}
}

// Start launches the polling goroutine. The first refresh runs immediately.
func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()

		failures := 0
		for {
			if err := p.monitor.Refresh(ctx); err != nil {
				delay := p.backoff.NextDelay(failures)
				failures++
				p.logger.Warn("offline refresh failed",
					ports.Err(err),
					ports.Int("consecutive_failures", failures),
					ports.String("retry_in", delay.String()))
				if !sleep(ctx, delay) {
					return
				}
				continue
			}
			failures = 0
			if !sleep(ctx, p.interval) {
				return
			}
		}
	}()
}

// Shutdown stops the poller and waits for the in-flight refresh to finish.
func (p *Poller) Shutdown(ctx context.Context) error {
	p.once.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sleep waits for d, returning false when ctx is canceled first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
