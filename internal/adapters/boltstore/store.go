// Package boltstore implements the durable key-value port on BoltDB.
//
// BoltDB is an embedded store backed by a single file, which fits a kiosk:
// no external database process, and a committed write survives abrupt power
// loss. Idempotency keys and the preset list both live here.
package boltstore

import (
	"time"

	bolt "github.com/boltdb/bolt"
)

// Store wraps a BoltDB database behind the KVStore port.
type Store struct {
	db *bolt.DB
}

// New opens (or creates) a BoltDB database at the given path.
// Buckets are created lazily on first write.
func New(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the stored value, or (nil, nil) when the bucket or key is
// absent. The returned slice is a copy; bolt's own memory is only valid
// inside the transaction.
func (s *Store) Get(bucket, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			value = make([]byte, len(v))
			copy(value, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set persists value under key. Once Set returns the write is committed;
// it will not be lost on abrupt process termination.
func (s *Store) Set(bucket, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
}

// Delete removes a key. Deleting an absent key is a no-op, which is exactly
// the idempotent behaviour retrying callers need.
func (s *Store) Delete(bucket, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// DeleteAll drops every key in the bucket.
func (s *Store) DeleteAll(bucket string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(bucket)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(bucket))
	})
}
