package shutdown

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// InFlightTracker tracks in-flight work so graceful shutdown can wait for it.
// The payment orchestrator registers each donation attempt here: a kiosk must
// never cut power on a card interaction that the terminal already started.
type InFlightTracker struct {
	wg         sync.WaitGroup
	shutdownCh chan struct{}
	logger     *zap.Logger
	name       string
}

// NewInFlightTracker creates a new in-flight work tracker
func NewInFlightTracker(name string, logger *zap.Logger) *InFlightTracker {
	return &InFlightTracker{
		shutdownCh: make(chan struct{}),
		logger:     logger,
		name:       name,
	}
}

// Add increments the in-flight work counter.
// Returns false if shutdown has been initiated (don't start new work).
func (ift *InFlightTracker) Add() bool {
	select {
	case <-ift.shutdownCh:
		return false
	default:
		ift.wg.Add(1)
		return true
	}
}

// Done decrements the in-flight work counter, typically via defer.
func (ift *InFlightTracker) Done() {
	ift.wg.Done()
}

// IsShuttingDown returns true if shutdown has been initiated
func (ift *InFlightTracker) IsShuttingDown() bool {
	select {
	case <-ift.shutdownCh:
		return true
	default:
		return false
	}
}

// Shutdown initiates shutdown and waits for all in-flight work to complete.
// Returns an error if the context expires before all work completes.
func (ift *InFlightTracker) Shutdown(ctx context.Context) error {
	close(ift.shutdownCh)

	ift.logger.Info("waiting for in-flight work to complete",
		zap.String("tracker", ift.name),
	)

	done := make(chan struct{})
	go func() {
		ift.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		ift.logger.Info("all in-flight work completed",
			zap.String("tracker", ift.name),
		)
		return nil
	case <-ctx.Done():
		ift.logger.Warn("shutdown timeout, some work may be incomplete",
			zap.String("tracker", ift.name),
		)
		return ctx.Err()
	}
}
