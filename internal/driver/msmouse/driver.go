// internal/driver/msmouse/driver.go
package msmouse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mouse-service/internal/model"
	"mouse-service/internal/transport"
	"mouse-service/pkg/driver"
)

// ErrNotIdle is returned when Probe or Start is called on a driver that has
// already left the idle state. A failed driver stays failed; retrying means
// creating a fresh instance.
var ErrNotIdle = errors.New("driver is not idle")

// Driver owns one serial transport for its lifetime and runs the state
// machine IDLE -> PROBING/ACQUIRED -> POLLING -> STOPPING -> STOPPED.
// It implements driver.PointerDriver.
type Driver struct {
	transport transport.Transport
	sink      driver.EventSink
	logger    *zap.Logger

	// mutex serializes state transitions; only one of Probe, Start and
	// Stop runs at a time.
	mutex  sync.Mutex
	state  model.DriverState
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a driver over the given transport. The transport is not
// touched until Probe or Start.
func New(t transport.Transport, sink driver.EventSink, logger *zap.Logger) *Driver {
	return &Driver{
		transport: t,
		sink:      sink,
		logger:    logger.With(zap.String("component", "msmouse")),
		state:     model.DriverStateIdle,
	}
}

// State returns the current lifecycle state.
func (d *Driver) State() model.DriverState {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.state
}

// Probe checks whether a mouse answers on the transport without committing
// to it. The prior line configuration is restored and the port released
// whether or not a device matched; a non-matching device is not an error.
func (d *Driver) Probe(ctx context.Context) (bool, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.state != model.DriverStateIdle {
		return false, fmt.Errorf("%w: state %s", ErrNotIdle, d.state)
	}
	d.state = model.DriverStateProbing

	start := time.Now()
	matched := d.probe(ctx)
	d.state = model.DriverStateIdle

	d.logger.Debug("Probe completed",
		zap.Bool("matched", matched),
		zap.Duration("duration", time.Since(start)),
	)
	return matched, nil
}

// probe acquires the port, snapshots its configuration, negotiates, and
// unconditionally restores the snapshot and releases the port.
func (d *Driver) probe(ctx context.Context) bool {
	if err := d.transport.Acquire(true); err != nil {
		d.logger.Debug("Probe could not acquire port", zap.Error(err))
		return false
	}
	defer d.transport.Release()

	snapshot, err := transport.ReadConfiguration(d.transport)
	if err != nil {
		d.logger.Debug("Probe could not read line configuration", zap.Error(err))
		return false
	}
	defer func() {
		if err := transport.WriteConfiguration(d.transport, snapshot); err != nil {
			d.logger.Warn("Failed to restore line configuration after probe",
				zap.Error(err),
			)
		}
	}()

	if err := negotiate(ctx, d.transport, d.logger); err != nil {
		d.logger.Debug("No serial mouse on port", zap.Error(err))
		return false
	}
	return true
}

// Start performs the committing handshake and spawns the polling worker.
// On success the driver keeps the transport configured for the device and
// enters POLLING. On failure the transport is released exactly once, the
// driver enters FAILED, and the error is returned to the caller.
func (d *Driver) Start(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.state != model.DriverStateIdle {
		return fmt.Errorf("%w: state %s", ErrNotIdle, d.state)
	}

	sessionID := uuid.NewString()
	logger := d.logger.With(zap.String("session_id", sessionID))
	start := time.Now()

	if err := d.transport.Acquire(true); err != nil {
		d.state = model.DriverStateFailed
		logger.Error("Failed to acquire port", zap.Error(err))
		return fmt.Errorf("acquire port: %w", err)
	}
	d.state = model.DriverStateAcquired

	if err := negotiate(ctx, d.transport, logger); err != nil {
		d.transport.Release()
		d.state = model.DriverStateFailed
		logger.Error("Handshake failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return fmt.Errorf("negotiate: %w", err)
	}

	// Ownership of the transport passes to the worker here and comes back
	// at Stop.
	pollCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})

	eng := newEngine(d.transport, d.sink, logger)
	go func() {
		defer close(d.done)
		if err := eng.run(pollCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Polling loop ended", zap.Error(err))
		}
	}()

	d.state = model.DriverStatePolling
	logger.Info("Serial mouse attached",
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Stop cancels the polling worker and releases the transport. The release
// runs here, on the stopping caller, which is what unblocks a worker
// sitting in a blocked read; the worker itself never touches ownership.
// Stop is idempotent and a no-op from IDLE, FAILED or STOPPED.
func (d *Driver) Stop() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.state != model.DriverStatePolling {
		return nil
	}
	d.state = model.DriverStateStopping

	d.cancel()
	releaseErr := d.transport.Release()
	<-d.done

	d.state = model.DriverStateStopped
	d.logger.Info("Serial mouse detached")
	return releaseErr
}
