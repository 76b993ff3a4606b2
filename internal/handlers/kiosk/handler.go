// Package kiosk is the HTTP bridge the kiosk frontend talks to: donations,
// preset management, catalog sync, and a status snapshot.
package kiosk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/openkiosk/donation-engine/internal/domain/models"
	"github.com/openkiosk/donation-engine/internal/services/payment"
	pkgerrors "github.com/openkiosk/donation-engine/pkg/errors"
)

// Charger runs donation attempts.
type Charger interface {
	Charge(ctx context.Context, req payment.ChargeRequest, complete payment.CompletionFunc)
	LastError() error
}

// PresetService manages the preset donation amounts.
type PresetService interface {
	Presets() []models.PresetDonation
	AddPreset(amount string) (models.PresetDonation, error)
	UpdatePreset(id, amount string) error
	RemovePreset(ctx context.Context, id string) error
	SyncUp(ctx context.Context) error
	LastSync() (time.Time, string)
}

// ConnectionSource reports reader connection state.
type ConnectionSource interface {
	State() models.ConnectionState
	Ready() bool
}

// OfflineSource reports offline-queue state.
type OfflineSource interface {
	PendingCount() int
	SupportsOffline() bool
}

// Handler handles the kiosk-facing HTTP endpoints
type Handler struct {
	charger    Charger
	presets    PresetService
	connection ConnectionSource
	offline    OfflineSource
	logger     *zap.Logger
}

// NewHandler creates a new kiosk handler
func NewHandler(charger Charger, presets PresetService, connection ConnectionSource, offline OfflineSource, logger *zap.Logger) *Handler {
	return &Handler{
		charger:    charger,
		presets:    presets,
		connection: connection,
		offline:    offline,
		logger:     logger,
	}
}

// Routes registers all kiosk endpoints on mux
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/donations", h.Donate)
	mux.HandleFunc("GET /v1/presets", h.ListPresets)
	mux.HandleFunc("POST /v1/presets", h.AddPreset)
	mux.HandleFunc("PUT /v1/presets/{id}", h.UpdatePreset)
	mux.HandleFunc("DELETE /v1/presets/{id}", h.RemovePreset)
	mux.HandleFunc("POST /v1/catalog/sync", h.SyncCatalog)
	mux.HandleFunc("GET /v1/status", h.Status)
}

// DonationRequest represents the request body for a donation
type DonationRequest struct {
	TransactionID  string `json:"transaction_id"`
	Amount         string `json:"amount"`
	IsCustomAmount bool   `json:"is_custom_amount"`
}

// DonationResponse represents the outcome of a donation attempt
type DonationResponse struct {
	Success   bool   `json:"success"`
	PaymentID string `json:"payment_id,omitempty"`
	OrderID   string `json:"order_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Donate handles POST /v1/donations. It blocks until the attempt concludes;
// the frontend shows its own progress UI meanwhile.
func (h *Handler) Donate(w http.ResponseWriter, r *http.Request) {
	var req DonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TransactionID == "" {
		h.respondError(w, http.StatusBadRequest, "transaction_id is required")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		h.respondError(w, http.StatusBadRequest, "amount must be a positive decimal")
		return
	}

	h.logger.Info("Donation requested",
		zap.String("transaction_id", req.TransactionID),
		zap.String("amount", req.Amount),
	)

	type outcome struct {
		success bool
		result  *models.PaymentResult
	}
	done := make(chan outcome, 1)

	h.charger.Charge(r.Context(), payment.ChargeRequest{
		TransactionID:  req.TransactionID,
		Amount:         amount,
		IsCustomAmount: req.IsCustomAmount,
	}, func(success bool, result *models.PaymentResult) {
		done <- outcome{success: success, result: result}
	})

	select {
	case <-r.Context().Done():
		// The attempt keeps running; the frontend re-queries status.
		h.respondError(w, http.StatusRequestTimeout, "request canceled")
		return
	case o := <-done:
		resp := DonationResponse{Success: o.success}
		if o.result != nil {
			resp.PaymentID = o.result.PaymentID
			resp.OrderID = o.result.OrderID
		}
		if !o.success {
			if lastErr := h.charger.LastError(); lastErr != nil {
				resp.Error = lastErr.Error()
			}
		}
		h.respondJSON(w, http.StatusOK, resp)
	}
}

// PresetsResponse represents the preset list
type PresetsResponse struct {
	Presets []models.PresetDonation `json:"presets"`
}

// ListPresets handles GET /v1/presets
func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, PresetsResponse{Presets: h.presets.Presets()})
}

// PresetRequest represents the request body for preset create/update
type PresetRequest struct {
	Amount string `json:"amount"`
}

// AddPreset handles POST /v1/presets
func (h *Handler) AddPreset(w http.ResponseWriter, r *http.Request) {
	var req PresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	preset, err := h.presets.AddPreset(req.Amount)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, preset)
}

// UpdatePreset handles PUT /v1/presets/{id}
func (h *Handler) UpdatePreset(w http.ResponseWriter, r *http.Request) {
	var req PresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.presets.UpdatePreset(r.PathValue("id"), req.Amount); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemovePreset handles DELETE /v1/presets/{id}
func (h *Handler) RemovePreset(w http.ResponseWriter, r *http.Request) {
	if err := h.presets.RemovePreset(r.Context(), r.PathValue("id")); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncCatalog handles POST /v1/catalog/sync
func (h *Handler) SyncCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.presets.SyncUp(r.Context()); err != nil {
		h.logger.Warn("Catalog sync failed", zap.Error(err))
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, PresetsResponse{Presets: h.presets.Presets()})
}

// StatusResponse is the kiosk status snapshot
type StatusResponse struct {
	ConnectionState  string `json:"connection_state"`
	ReaderConnected  bool   `json:"reader_connected"`
	PendingOffline   int    `json:"pending_offline"`
	SupportsOffline  bool   `json:"supports_offline"`
	LastSyncedAt     string `json:"last_synced_at,omitempty"`
	LastSyncError    string `json:"last_sync_error,omitempty"`
	LastPaymentError string `json:"last_payment_error,omitempty"`
}

// Status handles GET /v1/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		ConnectionState: string(h.connection.State()),
		ReaderConnected: h.connection.Ready(),
		PendingOffline:  h.offline.PendingCount(),
		SupportsOffline: h.offline.SupportsOffline(),
	}

	syncedAt, syncErr := h.presets.LastSync()
	if !syncedAt.IsZero() {
		resp.LastSyncedAt = syncedAt.Format(time.RFC3339)
	}
	resp.LastSyncError = syncErr

	if err := h.charger.LastError(); err != nil {
		resp.LastPaymentError = err.Error()
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors onto HTTP statuses: validation
// problems are the client's fault, transport problems are the remote's.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var verr *pkgerrors.ValidationError
	if errors.As(err, &verr) {
		h.respondError(w, http.StatusBadRequest, verr.Error())
		return
	}
	if pkgerrors.CategoryOf(err) == pkgerrors.CategoryTransport {
		h.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.respondError(w, http.StatusInternalServerError, err.Error())
}
