package models

// ConnectionState is the reader-availability state machine's position,
// independent of any single payment.
type ConnectionState string

const (
	ConnectionUnauthorized   ConnectionState = "unauthorized"
	ConnectionNoReader       ConnectionState = "no_reader"
	ConnectionPairing        ConnectionState = "pairing"
	ConnectionReaderNotReady ConnectionState = "reader_not_ready"
	ConnectionReady          ConnectionState = "ready"
)

// ReaderState is a reader's own status as reported by the terminal SDK.
// Values other than ReaderReady are surfaced to the user verbatim.
type ReaderState string

const (
	ReaderReady ReaderState = "ready"
)

// Reader is a card reader known to the terminal SDK.
type Reader struct {
	ID    string
	Label string
	State ReaderState
}

// ConnectionStatus is one atomic connection-status snapshot. Connected and
// Message always describe the same refresh; observers never see the boolean
// paired with a stale message.
type ConnectionStatus struct {
	State     ConnectionState
	Connected bool
	Message   string
}
