package ports

import (
	"context"

	"github.com/openkiosk/donation-engine/internal/domain/models"
)

// TerminalPayment describes one payment request handed to the card reader.
// Amounts cross this boundary in integer minor currency units only.
type TerminalPayment struct {
	IdempotencyKey   string
	AmountMinorUnits int64
	Currency         string
	OrderID          string // links the charge to a created order, empty on the direct path
}

// TerminalCallbacks receives the outcome of a payment request. The terminal
// integration is expected to deliver exactly one of the three; callers must
// stay correct even if a misbehaving integration calls back more than once.
type TerminalCallbacks struct {
	OnFinish func(paymentID string)
	OnFail   func(err error)
	OnCancel func()
}

// Terminal is the card-present terminal integration: payment capture, the
// offline queue, and reader enumeration/pairing.
type Terminal interface {
	// IsAuthorized reports whether the terminal SDK has been authorized.
	IsAuthorized() bool

	// StartPayment begins one asynchronous payment attempt. A non-nil error
	// means the attempt never started and no callback will be delivered.
	StartPayment(ctx context.Context, req TerminalPayment, cb TerminalCallbacks) error

	// OfflinePayments returns the current contents of the offline queue.
	OfflinePayments(ctx context.Context) ([]models.OfflinePayment, error)

	// Readers enumerates the readers currently known to the SDK.
	Readers() []models.Reader

	// StartPairing begins asynchronous reader discovery/pairing.
	StartPairing(ctx context.Context) error

	BluetoothAvailable() bool
	LocationPermissionGranted() bool
}
