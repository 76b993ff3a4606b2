package payment_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openkiosk/donation-engine/internal/domain/models"
	"github.com/openkiosk/donation-engine/internal/domain/ports"
	"github.com/openkiosk/donation-engine/internal/services/payment"
	pkgerrors "github.com/openkiosk/donation-engine/pkg/errors"
	"github.com/openkiosk/donation-engine/pkg/shutdown"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, fields ...ports.Field) {}
func (nopLogger) Info(msg string, fields ...ports.Field)  {}
func (nopLogger) Warn(msg string, fields ...ports.Field)  {}
func (nopLogger) Error(msg string, fields ...ports.Field) {}

type MockKeySource struct {
	mock.Mock
}

func (m *MockKeySource) GetKey(transactionID string) (string, error) {
	args := m.Called(transactionID)
	return args.String(0), args.Error(1)
}

func (m *MockKeySource) RemoveKey(transactionID string) error {
	args := m.Called(transactionID)
	return args.Error(0)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, orgID string, lineItems []ports.OrderLineItem, note string) (string, error) {
	args := m.Called(ctx, orgID, lineItems, note)
	return args.String(0), args.Error(1)
}

// fakeTerminal captures the payment request and callbacks so tests drive the
// asynchronous outcome themselves, including misbehaving double deliveries.
type fakeTerminal struct {
	authorized bool
	startErr   error
	started    int
	lastReq    ports.TerminalPayment
	callbacks  ports.TerminalCallbacks
}

func (f *fakeTerminal) IsAuthorized() bool { return f.authorized }

func (f *fakeTerminal) StartPayment(ctx context.Context, req ports.TerminalPayment, cb ports.TerminalCallbacks) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started++
	f.lastReq = req
	f.callbacks = cb
	return nil
}

func (f *fakeTerminal) OfflinePayments(ctx context.Context) ([]models.OfflinePayment, error) {
	return nil, nil
}

func (f *fakeTerminal) Readers() []models.Reader             { return nil }
func (f *fakeTerminal) StartPairing(ctx context.Context) error { return nil }
func (f *fakeTerminal) BluetoothAvailable() bool             { return true }
func (f *fakeTerminal) LocationPermissionGranted() bool      { return true }

type authStub struct{ ok bool }

func (a authStub) IsAuthenticated() bool { return a.ok }

type readerStub struct{ ready bool }

func (r readerStub) Ready() bool { return r.ready }

type resolverStub struct {
	itemID string
	ok     bool
}

func (r resolverStub) ResolveItem(amount decimal.Decimal) (string, bool) {
	return r.itemID, r.ok
}

// recorder captures every completion delivery.
type recorder struct {
	calls   int
	success bool
	result  *models.PaymentResult
}

func (r *recorder) fn(success bool, result *models.PaymentResult) {
	r.calls++
	r.success = success
	r.result = result
}

type fixture struct {
	keys     *MockKeySource
	orders   *MockOrderService
	terminal *fakeTerminal
	auth     authStub
	readers  readerStub
	resolver resolverStub
	cfg      payment.Config
}

func defaultFixture() *fixture {
	return &fixture{
		keys:     new(MockKeySource),
		orders:   new(MockOrderService),
		terminal: &fakeTerminal{authorized: true},
		auth:     authStub{ok: true},
		readers:  readerStub{ready: true},
		cfg:      payment.Config{OrgID: "org-1", Currency: "USD"},
	}
}

func (f *fixture) orchestrator() *payment.Orchestrator {
	tracker := shutdown.NewInFlightTracker("payments", zap.NewNop())
	return payment.NewOrchestrator(f.cfg, f.keys, f.resolver, f.readers, f.auth, f.orders, f.terminal, tracker, nopLogger{})
}

func charge(t *testing.T, o *payment.Orchestrator, amount string) *recorder {
	t.Helper()
	rec := &recorder{}
	o.Charge(context.Background(), payment.ChargeRequest{
		TransactionID:  "txn-1",
		Amount:         decimal.RequireFromString(amount),
		IsCustomAmount: true,
	}, rec.fn)
	return rec
}

func TestOrchestrator_Charge_Success(t *testing.T) {
	f := defaultFixture()
	f.keys.On("GetKey", "txn-1").Return("key-1", nil)
	f.keys.On("RemoveKey", "txn-1").Return(nil)
	o := f.orchestrator()

	rec := charge(t, o, "12.34")
	require.Equal(t, 1, f.terminal.started)
	assert.Equal(t, "key-1", f.terminal.lastReq.IdempotencyKey)
	assert.Equal(t, int64(1234), f.terminal.lastReq.AmountMinorUnits)
	assert.Equal(t, "USD", f.terminal.lastReq.Currency)
	assert.Empty(t, f.terminal.lastReq.OrderID)

	f.terminal.callbacks.OnFinish("pay-1")

	require.Equal(t, 1, rec.calls)
	assert.True(t, rec.success)
	require.NotNil(t, rec.result)
	assert.Equal(t, "pay-1", rec.result.PaymentID)
	assert.NoError(t, o.LastError())
	f.keys.AssertCalled(t, "RemoveKey", "txn-1")
}

func TestOrchestrator_Charge_NotAuthenticated(t *testing.T) {
	f := defaultFixture()
	f.auth = authStub{ok: false}
	o := f.orchestrator()

	rec := charge(t, o, "10")

	require.Equal(t, 1, rec.calls)
	assert.False(t, rec.success)
	assert.Nil(t, rec.result)
	assert.Zero(t, f.terminal.started)
	assert.Equal(t, pkgerrors.CategoryConfiguration, pkgerrors.CategoryOf(o.LastError()))
}

func TestOrchestrator_Charge_SDKNotAuthorized(t *testing.T) {
	f := defaultFixture()
	f.terminal.authorized = false
	o := f.orchestrator()

	rec := charge(t, o, "10")

	require.Equal(t, 1, rec.calls)
	assert.False(t, rec.success)
	assert.Zero(t, f.terminal.started)
}

func TestOrchestrator_Charge_ReaderNotConnected(t *testing.T) {
	f := defaultFixture()
	f.readers = readerStub{ready: false}
	f.keys.On("GetKey", "txn-1").Return("key-1", nil)
	o := f.orchestrator()

	rec := charge(t, o, "10")

	require.Equal(t, 1, rec.calls)
	assert.False(t, rec.success)
	assert.Zero(t, f.terminal.started)
	assert.Equal(t, pkgerrors.CategoryConfiguration, pkgerrors.CategoryOf(o.LastError()))
}

func TestOrchestrator_Charge_OrderCreationFails(t *testing.T) {
	f := defaultFixture()
	f.cfg.CreateOrders = true
	f.keys.On("GetKey", "txn-1").Return("key-1", nil)
	f.orders.On("CreateOrder", mock.Anything, "org-1", mock.Anything, "").
		Return("", assert.AnError)
	o := f.orchestrator()

	rec := charge(t, o, "10")

	require.Equal(t, 1, rec.calls)
	assert.False(t, rec.success)
	assert.Nil(t, rec.result)
	assert.Zero(t, f.terminal.started)
	assert.Equal(t, pkgerrors.CategoryTransport, pkgerrors.CategoryOf(o.LastError()))
}

func TestOrchestrator_Charge_MissingOrderIDIsMalformedResponse(t *testing.T) {
	f := defaultFixture()
	f.cfg.CreateOrders = true
	f.keys.On("GetKey", "txn-1").Return("key-1", nil)
	f.orders.On("CreateOrder", mock.Anything, "org-1", mock.Anything, "").
		Return("", nil)
	o := f.orchestrator()

	rec := charge(t, o, "10")

	require.Equal(t, 1, rec.calls)
	assert.False(t, rec.success)
	assert.Nil(t, rec.result)
	assert.Zero(t, f.terminal.started)

	var ee *pkgerrors.EngineError
	require.ErrorAs(t, o.LastError(), &ee)
	assert.Equal(t, "MALFORMED_RESPONSE", ee.Code)
}

func TestOrchestrator_Charge_OrderLinksTerminalPayment(t *testing.T) {
	f := defaultFixture()
	f.cfg.CreateOrders = true
	f.resolver = resolverStub{itemID: "item-a", ok: true}
	f.keys.On("GetKey", "txn-1").Return("key-1", nil)
	f.orders.On("CreateOrder", mock.Anything, "org-1", mock.MatchedBy(func(items []ports.OrderLineItem) bool {
		return len(items) == 1 && items[0].CatalogObjectID == "item-a" && items[0].Quantity == 1
	}), "").Return("order-1", nil)
	o := f.orchestrator()

	rec := &recorder{}
	o.Charge(context.Background(), payment.ChargeRequest{
		TransactionID: "txn-1",
		Amount:        decimal.RequireFromString("25"),
	}, rec.fn)

	require.Equal(t, 1, f.terminal.started)
	assert.Equal(t, "order-1", f.terminal.lastReq.OrderID)
	f.orders.AssertExpectations(t)
}

func TestOrchestrator_Charge_UnresolvedPresetChargesAsCustomLine(t *testing.T) {
	f := defaultFixture()
	f.cfg.CreateOrders = true
	f.resolver = resolverStub{ok: false}
	f.keys.On("GetKey", "txn-1").Return("key-1", nil)
	f.orders.On("CreateOrder", mock.Anything, "org-1", mock.MatchedBy(func(items []ports.OrderLineItem) bool {
		return len(items) == 1 && items[0].CatalogObjectID == "" &&
			items[0].BaseMoneyMinorUnits == 2500 && items[0].Currency == "USD"
	}), "").Return("order-1", nil)
	o := f.orchestrator()

	o.Charge(context.Background(), payment.ChargeRequest{
		TransactionID: "txn-1",
		Amount:        decimal.RequireFromString("25"),
	}, (&recorder{}).fn)

	require.Equal(t, 1, f.terminal.started)
	f.orders.AssertExpectations(t)
}

func TestOrchestrator_Charge_DuplicateCallbacksDeliverOnce(t *testing.T) {
	f := defaultFixture()
	f.keys.On("GetKey", "txn-1").Return("key-1", nil)
	f.keys.On("RemoveKey", "txn-1").Return(nil)
	o := f.orchestrator()

	rec := charge(t, o, "10")
	require.Equal(t, 1, f.terminal.started)

	f.terminal.callbacks.OnFinish("pay-1")
	f.terminal.callbacks.OnFail(assert.AnError)
	f.terminal.callbacks.OnFinish("pay-2")
	f.terminal.callbacks.OnCancel()

	require.Equal(t, 1, rec.calls)
	assert.True(t, rec.success)
	assert.Equal(t, "pay-1", rec.result.PaymentID)
	assert.NoError(t, o.LastError(), "late failure callback must not overwrite the outcome")
}

func TestOrchestrator_Charge_TerminalFailureKeepsKey(t *testing.T) {
	f := defaultFixture()
	f.keys.On("GetKey", "txn-1").Return("key-1", nil)
	o := f.orchestrator()

	rec := charge(t, o, "10")
	require.Equal(t, 1, f.terminal.started)

	f.terminal.callbacks.OnFail(assert.AnError)

	require.Equal(t, 1, rec.calls)
	assert.False(t, rec.success)
	assert.Equal(t, pkgerrors.CategoryTerminal, pkgerrors.CategoryOf(o.LastError()))
	f.keys.AssertNotCalled(t, "RemoveKey", "txn-1")
}

func TestOrchestrator_Charge_CancelRemovesKey(t *testing.T) {
	f := defaultFixture()
	f.keys.On("GetKey", "txn-1").Return("key-1", nil)
	f.keys.On("RemoveKey", "txn-1").Return(nil)
	o := f.orchestrator()

	rec := charge(t, o, "10")
	f.terminal.callbacks.OnCancel()

	require.Equal(t, 1, rec.calls)
	assert.False(t, rec.success)
	assert.Nil(t, rec.result)
	f.keys.AssertCalled(t, "RemoveKey", "txn-1")
}

func TestOrchestrator_Charge_StartErrorFailsWithoutCallback(t *testing.T) {
	f := defaultFixture()
	f.terminal.startErr = assert.AnError
	f.keys.On("GetKey", "txn-1").Return("key-1", nil)
	o := f.orchestrator()

	rec := charge(t, o, "10")

	require.Equal(t, 1, rec.calls)
	assert.False(t, rec.success)
	assert.Equal(t, pkgerrors.CategoryTerminal, pkgerrors.CategoryOf(o.LastError()))
}

func TestOrchestrator_Charge_SuccessClearsStickyError(t *testing.T) {
	f := defaultFixture()
	f.keys.On("GetKey", mock.Anything).Return("key-1", nil)
	f.keys.On("RemoveKey", mock.Anything).Return(nil)
	o := f.orchestrator()

	rec := charge(t, o, "10")
	f.terminal.callbacks.OnFail(assert.AnError)
	require.Equal(t, 1, rec.calls)
	require.Error(t, o.LastError())

	rec2 := &recorder{}
	o.Charge(context.Background(), payment.ChargeRequest{
		TransactionID:  "txn-2",
		Amount:         decimal.RequireFromString("10"),
		IsCustomAmount: true,
	}, rec2.fn)
	f.terminal.callbacks.OnFinish("pay-2")

	require.Equal(t, 1, rec2.calls)
	assert.True(t, rec2.success)
	assert.NoError(t, o.LastError())
}
