// pkg/driver/interfaces.go
package driver

import (
	"context"

	"mouse-service/internal/model"
)

// PointerDriver is the interface implemented by pointing-device drivers
type PointerDriver interface {
	// Probe checks whether a compatible device answers on the transport.
	// It must leave the transport exactly as it found it, whatever the
	// outcome. A false result is silent: the device simply did not match.
	Probe(ctx context.Context) (bool, error)

	// Start performs the handshake and, on success, begins polling the
	// device on a dedicated worker goroutine. On failure the transport is
	// released and the driver is left in the FAILED state.
	Start(ctx context.Context) error

	// Stop terminates the polling worker and releases the transport.
	// Idempotent, and a no-op when the driver never started.
	Stop() error

	// State returns the current lifecycle state.
	State() model.DriverState
}

// EventSink receives decoded pointer events, one fire-and-forget call per
// valid frame, in frame-read order.
type EventSink interface {
	ReportRelativeMotion(event model.PointerEvent)
}
