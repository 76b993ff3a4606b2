package ports

// KVStore is the durable key-value store used for idempotency keys and
// preset-list persistence. Implementations must survive process restart:
// once Set returns, the value must not be lost on abrupt termination.
type KVStore interface {
	// Get returns the stored value, or (nil, nil) when the key is absent.
	Get(bucket, key string) ([]byte, error)
	Set(bucket, key string, value []byte) error
	Delete(bucket, key string) error
	// DeleteAll removes every key in the bucket. Administrative reset only.
	DeleteAll(bucket string) error
}
