// Package reader tracks card-reader availability and pairing, independent of
// any single payment attempt.
package reader

import (
	"context"
	"sync"

	"github.com/openkiosk/donation-engine/internal/domain/models"
	"github.com/openkiosk/donation-engine/internal/domain/ports"
	"github.com/openkiosk/donation-engine/pkg/observability"
)

// Status messages surfaced to the kiosk UI.
const (
	msgUnauthorized    = "Terminal SDK not authorized"
	msgBluetooth       = "Bluetooth required"
	msgLocation        = "Location access needed"
	msgNoReader        = "No reader connected"
	msgStartingPairing = "Starting pairing…"
	msgPairing         = "Pairing in progress"
	msgReady           = "Reader connected"
)

// Tracker is a small state machine over reader availability. Refreshes are
// driven externally (permission checks, reader-list changes), never by an
// internal timer. Each refresh publishes exactly one atomic status snapshot
// through the injected sink, so the connected flag and the human-readable
// message always belong to the same refresh.
type Tracker struct {
	terminal ports.Terminal
	sink     ports.ConnectionStatusSink
	logger   ports.Logger

	mu       sync.Mutex
	state    models.ConnectionState
	selected *models.Reader
	pairing  bool
}

// NewTracker creates a tracker. The sink is injected at construction so the
// tracker never holds a back-reference into the payment path.
func NewTracker(terminal ports.Terminal, sink ports.ConnectionStatusSink, logger ports.Logger) *Tracker {
	return &Tracker{
		terminal: terminal,
		sink:     sink,
		logger:   logger,
		state:    models.ConnectionUnauthorized,
	}
}

// RefreshStatus re-evaluates reader readiness. Each guard short-circuits the
// rest, in policy order: SDK authorization, Bluetooth, location permission,
// reader list, reader readiness. Pairing is triggered at most once while a
// pairing is already in flight.
func (t *Tracker) RefreshStatus(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.terminal.IsAuthorized() {
		t.transition(models.ConnectionUnauthorized, msgUnauthorized)
		return
	}

	// Bluetooth and location problems are reported without reclassifying the
	// reader state: a previously connected reader is still connected as far
	// as this refresh can tell.
	if !t.terminal.BluetoothAvailable() {
		t.publish(t.state, msgBluetooth)
		return
	}
	if !t.terminal.LocationPermissionGranted() {
		t.publish(t.state, msgLocation)
		return
	}

	readers := t.terminal.Readers()
	if len(readers) == 0 {
		t.selected = nil
		if t.pairing {
			t.transition(models.ConnectionPairing, msgPairing)
			return
		}
		t.pairing = true
		if err := t.terminal.StartPairing(ctx); err != nil {
			t.pairing = false
			t.logger.Error("failed to start pairing", ports.Err(err))
			t.transition(models.ConnectionNoReader, msgNoReader)
			return
		}
		t.logger.Info("reader pairing started")
		t.transition(models.ConnectionPairing, msgStartingPairing)
		return
	}

	// Readers exist, so any pairing that was in flight has resolved.
	t.pairing = false

	for i := range readers {
		if readers[i].State == models.ReaderReady {
			if t.selected == nil {
				r := readers[i]
				t.selected = &r
				t.logger.Info("selected reader", ports.String("reader_id", r.ID))
			}
			t.transition(models.ConnectionReady, msgReady)
			return
		}
	}

	// Surface the selected (or first known) reader's own status verbatim.
	current := readers[0]
	if t.selected != nil {
		for i := range readers {
			if readers[i].ID == t.selected.ID {
				current = readers[i]
				break
			}
		}
	}
	t.transition(models.ConnectionReaderNotReady, string(current.State))
}

// PairingFinished tells the tracker that the discovery flow resolved, so a
// later empty reader list may trigger pairing again.
func (t *Tracker) PairingFinished() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pairing = false
}

// State returns the current connection state.
func (t *Tracker) State() models.ConnectionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Ready reports whether a usable reader is connected.
func (t *Tracker) Ready() bool {
	return t.State() == models.ConnectionReady
}

// SelectedReader returns the currently selected reader, or nil.
func (t *Tracker) SelectedReader() *models.Reader {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.selected == nil {
		return nil
	}
	r := *t.selected
	return &r
}

// transition updates the state and publishes. Callers hold t.mu.
func (t *Tracker) transition(state models.ConnectionState, message string) {
	if state != t.state {
		observability.RecordReaderState(string(state))
	}
	t.state = state
	t.publish(state, message)
}

// publish emits one atomic snapshot. Callers hold t.mu, which also orders
// publications: a refresh's flag and message are never split.
func (t *Tracker) publish(state models.ConnectionState, message string) {
	t.sink.PublishConnectionStatus(models.ConnectionStatus{
		State:     state,
		Connected: state == models.ConnectionReady,
		Message:   message,
	})
}
