// Package keystore issues a stable idempotency key per logical transaction
// so retried payment attempts are never double-charged.
package keystore

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/openkiosk/donation-engine/internal/domain/ports"
)

const bucket = "idempotency_keys"

// Store maps caller-supplied transaction identifiers to idempotency keys.
// The mapping is durable: a key returned once is returned again for the same
// transaction id, across retries and process restarts.
type Store struct {
	kv     ports.KVStore
	logger ports.Logger
}

// NewStore creates a key store backed by the given durable KV store.
func NewStore(kv ports.KVStore, logger ports.Logger) *Store {
	return &Store{kv: kv, logger: logger}
}

// GetKey returns the existing key for transactionID, or mints a new
// globally-unique key, persists the mapping, and returns it. The persist
// happens before the key is handed out, so a caller holding a key can rely
// on it surviving a crash.
func (s *Store) GetKey(transactionID string) (string, error) {
	existing, err := s.kv.Get(bucket, transactionID)
	if err != nil {
		return "", fmt.Errorf("get idempotency key: %w", err)
	}
	if existing != nil {
		return string(existing), nil
	}

	key := uuid.New().String()
	if err := s.kv.Set(bucket, transactionID, []byte(key)); err != nil {
		return "", fmt.Errorf("persist idempotency key: %w", err)
	}

	s.logger.Debug("minted idempotency key",
		ports.String("transaction_id", transactionID))

	return key, nil
}

// RemoveKey deletes the mapping for a fully resolved transaction, bounding
// storage growth. Removing an unknown id is a no-op.
func (s *Store) RemoveKey(transactionID string) error {
	if err := s.kv.Delete(bucket, transactionID); err != nil {
		return fmt.Errorf("remove idempotency key: %w", err)
	}
	return nil
}

// ClearAllKeys wipes all mappings. Administrative reset only.
func (s *Store) ClearAllKeys() error {
	if err := s.kv.DeleteAll(bucket); err != nil {
		return fmt.Errorf("clear idempotency keys: %w", err)
	}
	s.logger.Warn("cleared all idempotency keys")
	return nil
}
