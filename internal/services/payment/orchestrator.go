// Package payment drives a single donation attempt from request to terminal
// outcome: guards, item resolution, optional order creation, and exactly one
// completion back to the caller.
package payment

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openkiosk/donation-engine/internal/domain/models"
	"github.com/openkiosk/donation-engine/internal/domain/ports"
	pkgerrors "github.com/openkiosk/donation-engine/pkg/errors"
	"github.com/openkiosk/donation-engine/pkg/observability"
	"github.com/openkiosk/donation-engine/pkg/shutdown"
)

// CompletionFunc receives the single outcome of a donation attempt. It is
// invoked exactly once per Charge call, whatever the terminal integration
// does. result is nil on failure and cancellation.
type CompletionFunc func(success bool, result *models.PaymentResult)

// ChargeRequest describes one donation attempt. TransactionID is the
// caller's stable identifier for the logical transaction; re-invoking with
// the same id reuses the same idempotency key.
type ChargeRequest struct {
	TransactionID  string
	Amount         decimal.Decimal
	IsCustomAmount bool
	Note           string
}

// KeySource hands out durable idempotency keys keyed by transaction id.
type KeySource interface {
	GetKey(transactionID string) (string, error)
	RemoveKey(transactionID string) error
}

// ItemResolver maps a donation amount to a remote catalog item id when a
// synced preset carries that amount.
type ItemResolver interface {
	ResolveItem(amount decimal.Decimal) (string, bool)
}

// ReaderGate reports whether a ready card reader is available.
type ReaderGate interface {
	Ready() bool
}

// Config carries the static knobs of the orchestrator. CreateOrders selects
// order-based processing; when false the direct path skips order creation
// entirely.
type Config struct {
	OrgID        string
	Currency     string
	CreateOrders bool
}

// Orchestrator runs the per-transaction state machine
// Ready -> ResolvingItem -> (CreatingOrder) -> AwaitingTerminal ->
// {Completed | Failed | Canceled}.
type Orchestrator struct {
	cfg      Config
	keys     KeySource
	resolver ItemResolver
	readers  ReaderGate
	auth     ports.AuthChecker
	orders   ports.OrderService
	terminal ports.Terminal
	inflight *shutdown.InFlightTracker
	logger   ports.Logger

	mu        sync.Mutex
	lastError error
}

func NewOrchestrator(cfg Config, keys KeySource, resolver ItemResolver, readers ReaderGate, auth ports.AuthChecker, orders ports.OrderService, terminal ports.Terminal, inflight *shutdown.InFlightTracker, logger ports.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		keys:     keys,
		resolver: resolver,
		readers:  readers,
		auth:     auth,
		orders:   orders,
		terminal: terminal,
		inflight: inflight,
		logger:   logger,
	}
}

// LastError returns the sticky error from the most recent failed attempt,
// or nil after a successful one.
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastError
}

// completion holds the caller's handler and clears it on first claim, so a
// misbehaving terminal integration calling back twice delivers nothing the
// second time.
type completion struct {
	mu sync.Mutex
	fn CompletionFunc
}

func (c *completion) take() CompletionFunc {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn := c.fn
	c.fn = nil
	return fn
}

// attempt is the per-transaction context shared between the synchronous
// charge path and the asynchronous terminal callbacks.
type attempt struct {
	txn     models.Transaction
	done    *completion
	started time.Time
	tracked bool // registered with the in-flight tracker
}

// Charge runs one donation attempt. All outcomes, including guard failures
// on this synchronous path, are delivered through complete; Charge itself
// never reports the result.
func (o *Orchestrator) Charge(ctx context.Context, req ChargeRequest, complete CompletionFunc) {
	a := &attempt{
		txn: models.Transaction{
			TransactionID:  req.TransactionID,
			Amount:         req.Amount,
			IsCustomAmount: req.IsCustomAmount,
			State:          models.StateReady,
		},
		done:    &completion{fn: complete},
		started: time.Now(),
	}

	if !o.inflight.Add() {
		o.fail(a, models.ReasonShuttingDown,
			pkgerrors.New("ENGINE_SHUTTING_DOWN", "engine is shutting down", pkgerrors.CategoryConfiguration, false))
		return
	}
	a.tracked = true

	if !o.auth.IsAuthenticated() {
		o.fail(a, models.ReasonNotAuthenticated,
			pkgerrors.New("NOT_AUTHENTICATED", "caller is not authenticated", pkgerrors.CategoryConfiguration, false))
		return
	}
	a.txn.State = models.StateResolvingItem

	if !o.terminal.IsAuthorized() {
		o.fail(a, models.ReasonSDKNotAuthorized,
			pkgerrors.New("SDK_NOT_AUTHORIZED", "terminal SDK is not authorized", pkgerrors.CategoryConfiguration, false))
		return
	}

	// A preset with no synced remote counterpart still charges correctly,
	// just without catalog attribution.
	if !req.IsCustomAmount {
		if itemID, ok := o.resolver.ResolveItem(req.Amount); ok {
			a.txn.ResolvedItemID = itemID
		}
	}

	key, err := o.keys.GetKey(req.TransactionID)
	if err != nil {
		o.fail(a, models.ReasonKeyStoreFailed,
			pkgerrors.New("KEY_STORE_FAILED", err.Error(), pkgerrors.CategoryData, true))
		return
	}
	a.txn.IdempotencyKey = key

	if o.cfg.CreateOrders {
		a.txn.State = models.StateCreatingOrder
		orderID, err := o.orders.CreateOrder(ctx, o.cfg.OrgID, o.lineItems(a.txn), req.Note)
		if err != nil {
			o.fail(a, models.ReasonOrderFailed,
				pkgerrors.New("ORDER_CREATION_FAILED", err.Error(), pkgerrors.CategoryTransport, true))
			return
		}
		if orderID == "" {
			o.fail(a, models.ReasonMalformedResponse,
				pkgerrors.New("MALFORMED_RESPONSE", "order response is missing the order id", pkgerrors.CategoryTransport, false))
			return
		}
		a.txn.OrderID = orderID
	}

	if !o.readers.Ready() {
		o.fail(a, models.ReasonReaderNotConnected,
			pkgerrors.New("READER_NOT_CONNECTED", "no ready card reader", pkgerrors.CategoryConfiguration, false))
		return
	}
	a.txn.State = models.StateAwaitingTerminal

	err = o.terminal.StartPayment(ctx, ports.TerminalPayment{
		IdempotencyKey:   a.txn.IdempotencyKey,
		AmountMinorUnits: minorUnits(a.txn.Amount),
		Currency:         o.cfg.Currency,
		OrderID:          a.txn.OrderID,
	}, ports.TerminalCallbacks{
		OnFinish: func(paymentID string) { o.finish(a, paymentID) },
		OnFail:   func(err error) { o.terminalFailed(a, err) },
		OnCancel: func() { o.cancel(a) },
	})
	if err != nil {
		// A start error means no callback will ever arrive.
		o.fail(a, models.ReasonTerminalFailed,
			pkgerrors.New("TERMINAL_START_FAILED", err.Error(), pkgerrors.CategoryTerminal, false))
	}
}

// finish handles the terminal's success callback.
func (o *Orchestrator) finish(a *attempt, paymentID string) {
	fn := a.done.take()
	if fn == nil {
		o.logger.Warn("duplicate terminal callback ignored",
			ports.String("transaction_id", a.txn.TransactionID))
		return
	}
	defer o.inflight.Done()

	a.txn.State = models.StateCompleted
	a.txn.Result = &models.PaymentResult{PaymentID: paymentID, OrderID: a.txn.OrderID}

	o.mu.Lock()
	o.lastError = nil
	o.mu.Unlock()

	if err := o.keys.RemoveKey(a.txn.TransactionID); err != nil {
		o.logger.Warn("failed to remove idempotency key",
			ports.String("transaction_id", a.txn.TransactionID), ports.Err(err))
	}

	observability.RecordTransaction("completed", "", o.cfg.Currency,
		minorUnits(a.txn.Amount), time.Since(a.started).Seconds())
	o.logger.Info("donation completed",
		ports.String("transaction_id", a.txn.TransactionID),
		ports.String("payment_id", paymentID),
		ports.String("order_id", a.txn.OrderID))

	fn(true, a.txn.Result)
}

// terminalFailed handles the terminal's definitive failure callback. The
// idempotency key is retained: a retry of the same logical transaction must
// reuse it.
func (o *Orchestrator) terminalFailed(a *attempt, err error) {
	o.fail(a, models.ReasonTerminalFailed,
		pkgerrors.New("TERMINAL_PAYMENT_FAILED", err.Error(), pkgerrors.CategoryTerminal, false))
}

// cancel handles the terminal-driven cancellation callback.
func (o *Orchestrator) cancel(a *attempt) {
	fn := a.done.take()
	if fn == nil {
		o.logger.Warn("duplicate terminal callback ignored",
			ports.String("transaction_id", a.txn.TransactionID))
		return
	}
	defer o.inflight.Done()

	a.txn.State = models.StateCanceled

	if err := o.keys.RemoveKey(a.txn.TransactionID); err != nil {
		o.logger.Warn("failed to remove idempotency key",
			ports.String("transaction_id", a.txn.TransactionID), ports.Err(err))
	}

	observability.RecordTransaction("canceled", "", o.cfg.Currency,
		0, time.Since(a.started).Seconds())
	o.logger.Info("donation canceled",
		ports.String("transaction_id", a.txn.TransactionID))

	fn(false, nil)
}

// fail concludes an attempt with a failure reason. err becomes the sticky
// error until the next successful attempt clears it.
func (o *Orchestrator) fail(a *attempt, reason models.FailureReason, err error) {
	fn := a.done.take()
	if fn == nil {
		o.logger.Warn("duplicate terminal callback ignored",
			ports.String("transaction_id", a.txn.TransactionID))
		return
	}
	if a.tracked {
		defer o.inflight.Done()
	}

	a.txn.State = models.StateFailed

	o.mu.Lock()
	o.lastError = err
	o.mu.Unlock()

	observability.RecordTransaction("failed", string(reason), o.cfg.Currency,
		0, time.Since(a.started).Seconds())
	o.logger.Error("donation failed",
		ports.String("transaction_id", a.txn.TransactionID),
		ports.String("reason", string(reason)),
		ports.Err(err))

	fn(false, nil)
}

// lineItems builds the single order line for the attempt: a catalog
// reference when an item was resolved, otherwise a custom line.
func (o *Orchestrator) lineItems(txn models.Transaction) []ports.OrderLineItem {
	if txn.ResolvedItemID != "" {
		return []ports.OrderLineItem{{
			CatalogObjectID: txn.ResolvedItemID,
			Quantity:        1,
		}}
	}
	return []ports.OrderLineItem{{
		Name:                "Donation",
		Quantity:            1,
		BaseMoneyMinorUnits: minorUnits(txn.Amount),
		Currency:            o.cfg.Currency,
	}}
}

// minorUnits converts a decimal major-unit amount to integer minor units.
// Two-decimal currencies only, which covers every currency the kiosk takes.
func minorUnits(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}
