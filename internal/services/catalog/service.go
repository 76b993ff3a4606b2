// Package catalog keeps the kiosk's preset donation amounts consistent with
// the remote product catalog.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openkiosk/donation-engine/internal/domain/models"
	"github.com/openkiosk/donation-engine/internal/domain/ports"
	pkgerrors "github.com/openkiosk/donation-engine/pkg/errors"
	"github.com/openkiosk/donation-engine/pkg/observability"
)

const (
	bucket       = "catalog"
	keyPresets   = "presets"
	keySyncState = "sync_state"
)

// syncState is the persisted sync metadata alongside the preset list.
type syncState struct {
	ParentItemID  string    `json:"parent_item_id,omitempty"`
	LastSyncedAt  time.Time `json:"last_synced_at"`
	LastSyncError string    `json:"last_sync_error,omitempty"`
}

// Service owns the merged preset list. Writes are serialized behind one
// mutex (read-modify-write-then-publish); readers get snapshots, so a
// reconciliation landing mid-payment is visible to the next item resolution
// without any caller-side caching.
type Service struct {
	store  ports.KVStore
	remote ports.CatalogService
	logger ports.Logger
	orgID  string

	mu      sync.Mutex
	presets []models.PresetDonation
	sync    syncState
}

// NewService creates the catalog service, loading any persisted preset list.
func NewService(store ports.KVStore, remote ports.CatalogService, orgID string, logger ports.Logger) (*Service, error) {
	s := &Service{
		store:  store,
		remote: remote,
		logger: logger,
		orgID:  orgID,
	}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}
	return s, nil
}

// Presets returns a snapshot of the current merged preset list.
func (s *Service) Presets() []models.PresetDonation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PresetDonation, len(s.presets))
	copy(out, s.presets)
	return out
}

// ResolveItem finds the remote item id for a preset matching amount. It
// returns ok=false when no synced preset carries that amount; the caller
// then proceeds with a custom line item.
func (s *Service) ResolveItem(amount decimal.Decimal) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.presets {
		d, ok := p.AmountDecimal()
		if !ok {
			continue
		}
		if d.Equal(amount) && p.IsSynced && p.RemoteItemID != "" {
			return p.RemoteItemID, true
		}
	}
	return "", false
}

// AddPreset validates and appends a new preset amount. Amounts equal in
// value to an existing preset are rejected: "7.5" duplicates "7.50".
func (s *Service) AddPreset(amount string) (models.PresetDonation, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return models.PresetDonation{}, pkgerrors.NewValidationError("amount", "not a valid decimal amount")
	}
	if !d.IsPositive() {
		return models.PresetDonation{}, pkgerrors.NewValidationError("amount", "must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.presets {
		existing, ok := p.AmountDecimal()
		if ok && existing.Equal(d) {
			return models.PresetDonation{}, pkgerrors.NewValidationError("amount", "duplicate preset amount")
		}
	}

	preset := models.PresetDonation{
		ID:     uuid.New().String(),
		Amount: amount,
	}
	s.presets = append(s.presets, preset)
	models.SortPresets(s.presets)

	if err := s.persist(); err != nil {
		return models.PresetDonation{}, err
	}

	s.logger.Info("preset added", ports.String("amount", amount))
	return preset, nil
}

// UpdatePreset changes a preset's amount. The edit always demotes the
// preset to unsynced; the stale remote id is retained until the next
// reconciliation re-establishes or abandons the link.
func (s *Service) UpdatePreset(id, amount string) error {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return pkgerrors.NewValidationError("amount", "not a valid decimal amount")
	}
	if !d.IsPositive() {
		return pkgerrors.NewValidationError("amount", "must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, p := range s.presets {
		if p.ID == id {
			idx = i
			continue
		}
		existing, ok := p.AmountDecimal()
		if ok && existing.Equal(d) {
			return pkgerrors.NewValidationError("amount", "duplicate preset amount")
		}
	}
	if idx < 0 {
		return pkgerrors.NewValidationError("id", "preset not found")
	}

	s.presets[idx].Amount = amount
	s.presets[idx].IsSynced = false
	models.SortPresets(s.presets)

	return s.persist()
}

// RemovePreset deletes a preset. A synced preset's remote item is deleted
// first; if that fails the local entry stays so the two sides cannot drift.
func (s *Service) RemovePreset(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, p := range s.presets {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return pkgerrors.NewValidationError("id", "preset not found")
	}

	preset := s.presets[idx]
	if preset.IsSynced && preset.RemoteItemID != "" {
		if err := s.remote.Delete(ctx, s.orgID, preset.RemoteItemID); err != nil {
			s.sync.LastSyncError = err.Error()
			return fmt.Errorf("delete remote item: %w", err)
		}
	}

	s.presets = append(s.presets[:idx], s.presets[idx+1:]...)
	return s.persist()
}

// Reconcile merges a fresh remote snapshot into the preset list. When
// nothing changed the computed list is discarded: no persistence, no
// spurious change downstream.
func (s *Service) Reconcile(remote []models.CatalogItem) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged, changed := mergePresets(s.presets, remote)
	observability.RecordReconciliation(changed)
	if !changed {
		return false, nil
	}

	s.presets = merged
	s.sync.LastSyncedAt = time.Now()
	s.sync.LastSyncError = ""

	if err := s.persist(); err != nil {
		return true, err
	}

	s.logger.Info("preset list reconciled",
		ports.Int("preset_count", len(merged)))
	return true, nil
}

// SyncUp pushes the local amounts to the remote catalog, then re-fetches
// and reconciles so local state reflects what the remote actually stored.
func (s *Service) SyncUp(ctx context.Context) error {
	s.mu.Lock()
	amounts := make([]decimal.Decimal, 0, len(s.presets))
	for _, p := range s.presets {
		// An unparseable amount is skipped, never fatal to the batch.
		if d, ok := p.AmountDecimal(); ok {
			amounts = append(amounts, d)
		}
	}
	parentID := s.sync.ParentItemID
	s.mu.Unlock()

	newParentID, err := s.remote.Upsert(ctx, s.orgID, amounts, parentID)
	if err != nil {
		s.recordSyncError(err)
		return fmt.Errorf("catalog upsert: %w", err)
	}

	items, err := s.remote.List(ctx, s.orgID)
	if err != nil {
		s.recordSyncError(err)
		return fmt.Errorf("catalog list: %w", err)
	}

	s.mu.Lock()
	s.sync.ParentItemID = newParentID
	s.mu.Unlock()

	if _, err := s.Reconcile(items); err != nil {
		return err
	}

	// Reconcile skips persistence when unchanged, but the parent id and
	// cleared error still need to land.
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync.LastSyncedAt = time.Now()
	s.sync.LastSyncError = ""
	return s.persist()
}

// LastSync reports the sync metadata: last success time and sticky error.
func (s *Service) LastSync() (time.Time, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync.LastSyncedAt, s.sync.LastSyncError
}

func (s *Service) recordSyncError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync.LastSyncError = err.Error()
	if perr := s.persist(); perr != nil {
		s.logger.Error("failed to persist sync error", ports.Err(perr))
	}
}

// load restores presets and sync metadata from the durable store.
func (s *Service) load() error {
	data, err := s.store.Get(bucket, keyPresets)
	if err != nil {
		return err
	}
	if data != nil {
		if err := json.Unmarshal(data, &s.presets); err != nil {
			return fmt.Errorf("decode presets: %w", err)
		}
	}

	data, err = s.store.Get(bucket, keySyncState)
	if err != nil {
		return err
	}
	if data != nil {
		if err := json.Unmarshal(data, &s.sync); err != nil {
			return fmt.Errorf("decode sync state: %w", err)
		}
	}
	return nil
}

// persist writes presets and sync metadata. Callers hold s.mu.
func (s *Service) persist() error {
	data, err := json.Marshal(s.presets)
	if err != nil {
		return fmt.Errorf("encode presets: %w", err)
	}
	if err := s.store.Set(bucket, keyPresets, data); err != nil {
		return fmt.Errorf("persist presets: %w", err)
	}

	data, err = json.Marshal(s.sync)
	if err != nil {
		return fmt.Errorf("encode sync state: %w", err)
	}
	if err := s.store.Set(bucket, keySyncState, data); err != nil {
		return fmt.Errorf("persist sync state: %w", err)
	}
	return nil
}
