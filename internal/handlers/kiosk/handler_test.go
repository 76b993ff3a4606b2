package kiosk

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openkiosk/donation-engine/internal/domain/models"
	"github.com/openkiosk/donation-engine/internal/services/payment"
	pkgerrors "github.com/openkiosk/donation-engine/pkg/errors"
)

// stubCharger completes every charge immediately with a canned outcome.
type stubCharger struct {
	success  bool
	result   *models.PaymentResult
	lastErr  error
	requests []payment.ChargeRequest
}

func (s *stubCharger) Charge(ctx context.Context, req payment.ChargeRequest, complete payment.CompletionFunc) {
	s.requests = append(s.requests, req)
	complete(s.success, s.result)
}

func (s *stubCharger) LastError() error { return s.lastErr }

type stubPresets struct {
	presets  []models.PresetDonation
	addErr   error
	syncErr  error
	syncedAt time.Time
	removed  []string
}

func (s *stubPresets) Presets() []models.PresetDonation { return s.presets }

func (s *stubPresets) AddPreset(amount string) (models.PresetDonation, error) {
	if s.addErr != nil {
		return models.PresetDonation{}, s.addErr
	}
	p := models.PresetDonation{ID: "p-new", Amount: amount}
	s.presets = append(s.presets, p)
	return p, nil
}

func (s *stubPresets) UpdatePreset(id, amount string) error { return s.addErr }

func (s *stubPresets) RemovePreset(ctx context.Context, id string) error {
	s.removed = append(s.removed, id)
	return nil
}

func (s *stubPresets) SyncUp(ctx context.Context) error { return s.syncErr }

func (s *stubPresets) LastSync() (time.Time, string) { return s.syncedAt, "" }

type stubConnection struct {
	state models.ConnectionState
	ready bool
}

func (s stubConnection) State() models.ConnectionState { return s.state }
func (s stubConnection) Ready() bool                   { return s.ready }

type stubOffline struct {
	pending  int
	supports bool
}

func (s stubOffline) PendingCount() int     { return s.pending }
func (s stubOffline) SupportsOffline() bool { return s.supports }

type fixture struct {
	charger    *stubCharger
	presets    *stubPresets
	connection stubConnection
	offline    stubOffline
}

func (f *fixture) serve(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(f.charger, f.presets, f.connection, f.offline, zap.NewNop())
	mux := http.NewServeMux()
	h.Routes(mux)

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reqBody)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func defaultHandlerFixture() *fixture {
	return &fixture{
		charger:    &stubCharger{},
		presets:    &stubPresets{},
		connection: stubConnection{state: models.ConnectionReady, ready: true},
		offline:    stubOffline{supports: true},
	}
}

func TestHandler_Donate_Success(t *testing.T) {
	f := defaultHandlerFixture()
	f.charger.success = true
	f.charger.result = &models.PaymentResult{PaymentID: "pay-1", OrderID: "order-1"}

	rec := f.serve(t, "POST", "/v1/donations", DonationRequest{
		TransactionID: "txn-1",
		Amount:        "25.00",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DonationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "pay-1", resp.PaymentID)
	assert.Equal(t, "order-1", resp.OrderID)

	require.Len(t, f.charger.requests, 1)
	assert.Equal(t, "txn-1", f.charger.requests[0].TransactionID)
	assert.Equal(t, "25", f.charger.requests[0].Amount.String())
}

func TestHandler_Donate_FailureCarriesLastError(t *testing.T) {
	f := defaultHandlerFixture()
	f.charger.success = false
	f.charger.lastErr = pkgerrors.New("READER_NOT_CONNECTED", "no ready card reader", pkgerrors.CategoryConfiguration, false)

	rec := f.serve(t, "POST", "/v1/donations", DonationRequest{
		TransactionID: "txn-1",
		Amount:        "10",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DonationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "READER_NOT_CONNECTED")
}

func TestHandler_Donate_RejectsBadAmount(t *testing.T) {
	f := defaultHandlerFixture()

	for _, amount := range []string{"", "abc", "-5", "0"} {
		rec := f.serve(t, "POST", "/v1/donations", DonationRequest{
			TransactionID: "txn-1",
			Amount:        amount,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "amount %q", amount)
	}
	assert.Empty(t, f.charger.requests)
}

func TestHandler_Donate_RequiresTransactionID(t *testing.T) {
	f := defaultHandlerFixture()

	rec := f.serve(t, "POST", "/v1/donations", DonationRequest{Amount: "10"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ListPresets(t *testing.T) {
	f := defaultHandlerFixture()
	f.presets.presets = []models.PresetDonation{{ID: "p1", Amount: "10", IsSynced: true}}

	rec := f.serve(t, "GET", "/v1/presets", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp PresetsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Presets, 1)
	assert.Equal(t, "p1", resp.Presets[0].ID)
}

func TestHandler_AddPreset_ValidationErrorIs400(t *testing.T) {
	f := defaultHandlerFixture()
	f.presets.addErr = pkgerrors.NewValidationError("amount", "duplicate preset amount")

	rec := f.serve(t, "POST", "/v1/presets", PresetRequest{Amount: "10"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_AddPreset_Created(t *testing.T) {
	f := defaultHandlerFixture()

	rec := f.serve(t, "POST", "/v1/presets", PresetRequest{Amount: "15"})

	require.Equal(t, http.StatusCreated, rec.Code)
	var preset models.PresetDonation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preset))
	assert.Equal(t, "15", preset.Amount)
}

func TestHandler_RemovePreset(t *testing.T) {
	f := defaultHandlerFixture()

	rec := f.serve(t, "DELETE", "/v1/presets/p1", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"p1"}, f.presets.removed)
}

func TestHandler_SyncCatalog_TransportErrorIs502(t *testing.T) {
	f := defaultHandlerFixture()
	f.presets.syncErr = pkgerrors.New("NETWORK_ERROR", "failed to reach remote service", pkgerrors.CategoryTransport, true)

	rec := f.serve(t, "POST", "/v1/catalog/sync", nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandler_Status(t *testing.T) {
	f := defaultHandlerFixture()
	f.offline = stubOffline{pending: 2, supports: true}
	f.presets.syncedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	rec := f.serve(t, "GET", "/v1/status", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.ConnectionState)
	assert.True(t, resp.ReaderConnected)
	assert.Equal(t, 2, resp.PendingOffline)
	assert.Equal(t, "2024-05-01T12:00:00Z", resp.LastSyncedAt)
}
