// internal/driver/msmouse/handshake.go
package msmouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mouse-service/internal/transport"
)

var (
	// ErrIdentTimeout means no identification byte arrived within the
	// settle delay.
	ErrIdentTimeout = errors.New("no identification byte from device")

	// ErrNotAMatch means a byte arrived but it was not the mouse
	// identification byte.
	ErrNotAMatch = errors.New("device did not identify as a serial mouse")
)

// negotiate proves that the device on the line is a Microsoft-protocol
// mouse. It pulses DTR low while holding RTS, applies the protocol's line
// configuration, waits out the settle delay, and checks the single
// identification byte the device emits in response.
//
// negotiate changes the line configuration and does not restore it; callers
// with probe semantics snapshot the configuration first.
func negotiate(ctx context.Context, t transport.Transport, logger *zap.Logger) error {
	if err := t.FlushInput(); err != nil {
		return fmt.Errorf("flush receive queue: %w", err)
	}

	// DTR wake-up pulse. The mouse is powered from the control lines and
	// emits its identification byte on the DTR rising edge.
	if err := t.SetParam(transport.ParamFlowControl, protoFlowControl); err != nil {
		return fmt.Errorf("assert control lines: %w", err)
	}
	if err := t.SetParam(transport.ParamFlowControl, protoFlowControl&^transport.LineDTR); err != nil {
		return fmt.Errorf("drop dtr: %w", err)
	}
	if err := t.SetParam(transport.ParamFlowControl, protoFlowControl); err != nil {
		return fmt.Errorf("reassert control lines: %w", err)
	}

	if err := transport.WriteConfiguration(t, requiredLineConfig()); err != nil {
		return fmt.Errorf("apply line configuration: %w", err)
	}
	if err := t.SetParam(transport.ParamActive, 1); err != nil {
		return fmt.Errorf("activate line: %w", err)
	}

	select {
	case <-time.After(identDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	var id [1]byte
	n, err := t.ReadAvailable(id[:])
	if err != nil {
		return fmt.Errorf("read identification byte: %w", err)
	}
	if n == 0 {
		return ErrIdentTimeout
	}

	logger.Debug("Device identification byte",
		zap.Uint8("id", id[0]),
	)

	if id[0] != identByte {
		return fmt.Errorf("%w: got 0x%02X", ErrNotAMatch, id[0])
	}
	return nil
}
