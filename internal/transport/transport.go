// internal/transport/transport.go
package transport

import (
	"errors"
	"fmt"
)

// Param identifies one line parameter of a serial transport
type Param int

const (
	ParamDataRate Param = iota
	ParamDataBits
	ParamStopBits
	ParamFlowControl
	ParamActive
)

func (p Param) String() string {
	switch p {
	case ParamDataRate:
		return "data_rate"
	case ParamDataBits:
		return "data_bits"
	case ParamStopBits:
		return "stop_bits"
	case ParamFlowControl:
		return "flow_control"
	case ParamActive:
		return "active"
	default:
		return fmt.Sprintf("param(%d)", int(p))
	}
}

// Control-line flags carried in the ParamFlowControl bitmask
const (
	LineRTS uint32 = 1 << iota
	LineDTR
)

// ErrPortBusy is returned by Acquire when the port is already owned,
// either by another process or by another handle in this one.
var ErrPortBusy = errors.New("serial port busy")

// ErrNotAcquired is returned when an operation needs an acquired port.
var ErrNotAcquired = errors.New("serial port not acquired")

// Error wraps an I/O failure from the underlying serial line.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transport is the capability interface the driver needs from a serial line.
// Exactly one owner holds the transport at a time; Acquire hands out that
// ownership and Release gives it back.
type Transport interface {
	// Acquire requests exclusive ownership of the line. With nonBlocking
	// set it fails immediately with ErrPortBusy instead of waiting.
	Acquire(nonBlocking bool) error

	// Release deactivates the line and gives up ownership. Idempotent:
	// releasing an unowned transport is a no-op.
	Release() error

	// GetParam reads a single line parameter.
	GetParam(p Param) (uint32, error)

	// SetParam applies a single line parameter.
	SetParam(p Param, value uint32) error

	// FlushInput discards any bytes queued in the receive buffer.
	FlushInput() error

	// ReadExactly blocks until len(p) bytes have arrived. A short count
	// without an error means the read was interrupted, typically by the
	// port being released from another goroutine.
	ReadExactly(p []byte) (int, error)

	// ReadAvailable returns immediately with whatever is buffered,
	// up to len(p) bytes, possibly zero.
	ReadAvailable(p []byte) (int, error)
}
