// Package terminalsim is an in-memory stand-in for a real card-reader SDK,
// used by the wiring binary in development and by integration-style tests.
// It approves every payment after a short delay.
package terminalsim

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openkiosk/donation-engine/internal/domain/models"
	"github.com/openkiosk/donation-engine/internal/domain/ports"
)

// Terminal simulates an authorized SDK with one ready reader and an empty
// offline queue.
type Terminal struct {
	logger ports.Logger
	delay  time.Duration

	mu      sync.Mutex
	readers []models.Reader
	offline []models.OfflinePayment
}

func New(logger ports.Logger) *Terminal {
	return &Terminal{
		logger: logger,
		delay:  500 * time.Millisecond,
		readers: []models.Reader{{
			ID:    "sim-reader-1",
			Label: "Simulated Reader",
			State: models.ReaderReady,
		}},
	}
}

func (t *Terminal) IsAuthorized() bool { return true }

// StartPayment approves the payment after the configured delay. The delay
// runs on its own goroutine so the caller returns immediately, matching how
// a real SDK delivers results.
func (t *Terminal) StartPayment(ctx context.Context, req ports.TerminalPayment, cb ports.TerminalCallbacks) error {
	t.logger.Info("simulated payment started",
		ports.String("idempotency_key", req.IdempotencyKey),
		ports.Int("amount_minor_units", int(req.AmountMinorUnits)))

	go func() {
		select {
		case <-ctx.Done():
			cb.OnCancel()
		case <-time.After(t.delay):
			cb.OnFinish(uuid.New().String())
		}
	}()
	return nil
}

func (t *Terminal) OfflinePayments(ctx context.Context) ([]models.OfflinePayment, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.OfflinePayment, len(t.offline))
	copy(out, t.offline)
	return out, nil
}

// QueueOfflinePayment seeds the simulated offline queue.
func (t *Terminal) QueueOfflinePayment(p models.OfflinePayment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.offline = append(t.offline, p)
}

func (t *Terminal) Readers() []models.Reader {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.Reader, len(t.readers))
	copy(out, t.readers)
	return out
}

func (t *Terminal) StartPairing(ctx context.Context) error { return nil }

func (t *Terminal) BluetoothAvailable() bool { return true }

func (t *Terminal) LocationPermissionGranted() bool { return true }
