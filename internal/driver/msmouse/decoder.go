// internal/driver/msmouse/decoder.go
package msmouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mouse-service/internal/model"
	"mouse-service/internal/transport"
	"mouse-service/pkg/driver"
)

// Frame is one raw 3-byte packet as read from the transport. A frame is
// only meaningful at a 3-byte boundary of the stream; the decoder, not the
// transport, judges whether these bytes line up with a packet.
type Frame [packetLength]byte

// Valid reports whether the header bit marks f as frame-aligned.
func (f Frame) Valid() bool {
	return f[0]&packetHeaderBit != 0
}

// Decode unpacks the motion deltas and button state. The six low bits of
// bytes 1 and 2 carry the low bits of X and Y; the two high bits of each
// come packed into byte 0. Deltas are two's-complement. Callers must check
// Valid first.
func (f Frame) Decode(now time.Time) model.PointerEvent {
	var buttons model.Buttons
	if f[0]&packetLeftBit != 0 {
		buttons |= model.ButtonLeft
	}
	if f[0]&packetRightBit != 0 {
		buttons |= model.ButtonRight
	}

	return model.PointerEvent{
		DeltaX:    int8((f[1] & 0x3F) | ((f[0] & 0x03) << 6)),
		DeltaY:    int8((f[2] & 0x3F) | ((f[0] & 0x0C) << 4)),
		Buttons:   buttons,
		Timestamp: now,
	}
}

// engine pumps frames from the transport to the event sink. It holds no
// state across reads beyond the transport handle itself.
type engine struct {
	transport transport.Transport
	sink      driver.EventSink
	logger    *zap.Logger
}

func newEngine(t transport.Transport, sink driver.EventSink, logger *zap.Logger) *engine {
	return &engine{
		transport: t,
		sink:      sink,
		logger:    logger.With(zap.String("component", "decoder")),
	}
}

// run reads 3-byte frame attempts until the context is cancelled or the
// transport fails. Short reads are dropped without decoding. A frame with a
// clear header bit means the stream is misaligned; the only safe recovery
// is to discard the buffered backlog and wait for the next aligned read,
// since the header bit is the protocol's sole frame marker.
func (e *engine) run(ctx context.Context) error {
	var frame Frame
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := e.transport.ReadExactly(frame[:])
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read frame: %w", err)
		}
		if n != packetLength {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if n == 0 {
				// The transport has gone away under us.
				return errors.New("transport closed")
			}
			continue
		}

		if !frame.Valid() {
			e.logger.Debug("Misaligned frame, flushing receive queue",
				zap.Binary("frame", frame[:]),
			)
			if err := e.transport.FlushInput(); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("resync flush: %w", err)
			}
			continue
		}

		e.sink.ReportRelativeMotion(frame.Decode(time.Now()))
	}
}
