package ports

import "github.com/openkiosk/donation-engine/internal/domain/models"

// ConnectionStatusSink receives connection-status snapshots from the reader
// tracker. Injected at construction so the tracker never holds a back
// reference into whatever consumes its state. One call per refresh; the
// snapshot is complete, so late subscribers can query current state instead
// of relying on field assignment order.
type ConnectionStatusSink interface {
	PublishConnectionStatus(status models.ConnectionStatus)
}

// OfflineStatusSink receives offline-queue events from the offline payment
// monitor. These are distinct from any in-flight transaction's completion:
// a failing offline payment may belong to an earlier transaction.
type OfflineStatusSink interface {
	// OfflinePaymentsProcessed fires when the last pending offline payment
	// uploads successfully.
	OfflinePaymentsProcessed(message string)

	// OfflinePaymentFailed surfaces a non-fatal sticky warning for one
	// payment's terminal failure.
	OfflinePaymentFailed(localID string, err error)
}

// AuthChecker reports whether the kiosk is authenticated with the backend.
type AuthChecker interface {
	IsAuthenticated() bool
}
