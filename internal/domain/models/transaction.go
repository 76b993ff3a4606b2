package models

import "github.com/shopspring/decimal"

// TransactionState represents where a donation attempt is in its lifecycle.
type TransactionState string

const (
	StateReady            TransactionState = "ready"
	StateResolvingItem    TransactionState = "resolving_item"
	StateCreatingOrder    TransactionState = "creating_order"
	StateAwaitingTerminal TransactionState = "awaiting_terminal"
	StateCompleted        TransactionState = "completed"
	StateFailed           TransactionState = "failed"
	StateCanceled         TransactionState = "canceled"
)

// FailureReason classifies why a transaction failed before or at the terminal.
type FailureReason string

const (
	ReasonNotAuthenticated   FailureReason = "not-authenticated"
	ReasonSDKNotAuthorized   FailureReason = "sdk-not-authorized"
	ReasonReaderNotConnected FailureReason = "reader-not-connected"
	ReasonOrderFailed        FailureReason = "order-creation-failed"
	ReasonMalformedResponse  FailureReason = "malformed-response"
	ReasonTerminalFailed     FailureReason = "terminal-failed"
	ReasonKeyStoreFailed     FailureReason = "key-store-failed"
	ReasonShuttingDown       FailureReason = "shutting-down"
)

// Transaction is one payment attempt. The idempotency key is 1:1 with the
// caller-supplied transaction identifier and stable across retries of the
// same logical transaction.
type Transaction struct {
	TransactionID  string
	IdempotencyKey string
	Amount         decimal.Decimal
	IsCustomAmount bool
	ResolvedItemID string // remote item id for the order line, empty for custom amounts
	OrderID        string // set once order creation succeeds
	State          TransactionState
	Result         *PaymentResult // absent until terminal
}

// PaymentResult is the successful outcome delivered to the caller: the
// terminal-assigned payment identifier plus the order id retained for
// receipt display (empty on the direct-processing path).
type PaymentResult struct {
	PaymentID string
	OrderID   string
}
