// Package offline tracks payments the terminal accepted locally that are
// still awaiting confirmation with the remote processor.
package offline

import (
	"context"
	"fmt"
	"sync"

	"github.com/openkiosk/donation-engine/internal/domain/models"
	"github.com/openkiosk/donation-engine/internal/domain/ports"
	pkgerrors "github.com/openkiosk/donation-engine/pkg/errors"
	"github.com/openkiosk/donation-engine/pkg/observability"
)

// Monitor observes the terminal's offline payment queue. It is poll-driven:
// callers (or the Poller) decide the cadence, the monitor only reacts to
// what each query returns.
type Monitor struct {
	terminal ports.Terminal
	sink     ports.OfflineStatusSink
	logger   ports.Logger

	mu              sync.Mutex
	payments        map[string]models.OfflinePayment
	pending         int
	supportsOffline bool
}

// NewMonitor creates a monitor publishing queue events to the given sink.
func NewMonitor(terminal ports.Terminal, sink ports.OfflineStatusSink, logger ports.Logger) *Monitor {
	return &Monitor{
		terminal: terminal,
		sink:     sink,
		logger:   logger,
		payments: make(map[string]models.OfflinePayment),
	}
}

// Refresh queries the offline queue once. When the terminal SDK is not
// authorized it fails fast: zero pending, offline unsupported, no error.
func (m *Monitor) Refresh(ctx context.Context) error {
	if !m.terminal.IsAuthorized() {
		m.mu.Lock()
		m.pending = 0
		m.supportsOffline = false
		m.mu.Unlock()
		observability.SetOfflinePending(0)
		return nil
	}

	queue, err := m.terminal.OfflinePayments(ctx)
	if err != nil {
		return fmt.Errorf("query offline queue: %w", err)
	}

	m.mu.Lock()
	m.supportsOffline = true

	pending := 0
	for _, p := range queue {
		if p.Status == models.OfflineStatusQueued {
			pending++
		}
	}
	m.pending = pending

	// Upsert by local id and pick out per-payment status transitions. A
	// later query's entries replace same-id entries.
	var uploaded, failed []models.OfflinePayment
	for _, p := range queue {
		prev, seen := m.payments[p.LocalID]
		m.payments[p.LocalID] = p
		if seen && prev.Status == p.Status {
			continue
		}
		switch p.Status {
		case models.OfflineStatusUploaded:
			if seen {
				uploaded = append(uploaded, p)
			}
		case models.OfflineStatusFailedToProcess, models.OfflineStatusFailedToUpload:
			failed = append(failed, p)
		}
	}
	m.mu.Unlock()

	observability.SetOfflinePending(pending)

	for _, p := range uploaded {
		m.logger.Info("offline payment uploaded",
			ports.String("local_id", p.LocalID))
	}
	if len(uploaded) > 0 && pending == 0 {
		m.sink.OfflinePaymentsProcessed("Offline payments processed")
	}

	// A failing payment may belong to an earlier transaction; surface the
	// warning without discarding other pending payments.
	for _, p := range failed {
		observability.RecordOfflineFailure(string(p.Status))
		err := pkgerrors.New("OFFLINE_PAYMENT_FAILED",
			fmt.Sprintf("offline payment %s: %s", p.LocalID, p.Status),
			pkgerrors.CategoryOffline, false)
		m.logger.Warn("offline payment failed",
			ports.String("local_id", p.LocalID),
			ports.String("status", string(p.Status)))
		m.sink.OfflinePaymentFailed(p.LocalID, err)
	}

	return nil
}

// PendingCount returns the number of payments still awaiting upload.
func (m *Monitor) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// SupportsOffline reports whether the terminal can queue offline payments at
// all, as observed on the last refresh.
func (m *Monitor) SupportsOffline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.supportsOffline
}

// PaymentStatus looks up the last observed status for a payment.
func (m *Monitor) PaymentStatus(localID string) (models.OfflinePaymentStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[localID]
	if !ok {
		return "", false
	}
	return p.Status, true
}
