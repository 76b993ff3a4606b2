package models

import "time"

// OfflinePaymentStatus is the terminal integration's view of a queued payment.
type OfflinePaymentStatus string

const (
	OfflineStatusQueued          OfflinePaymentStatus = "queued"
	OfflineStatusUploaded        OfflinePaymentStatus = "uploaded"
	OfflineStatusFailedToProcess OfflinePaymentStatus = "failed_to_process"
	OfflineStatusFailedToUpload  OfflinePaymentStatus = "failed_to_upload"
)

// OfflinePayment is a payment the terminal accepted locally but has not yet
// confirmed with the remote processor. Owned by the terminal integration;
// the engine only observes and counts these.
type OfflinePayment struct {
	LocalID    string
	Status     OfflinePaymentStatus
	UploadedAt *time.Time // set only on Status == uploaded
}
