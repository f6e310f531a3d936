// internal/transport/serial.go
package transport

import (
	"errors"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// Defaults applied when the port is first opened; callers reconfigure the
// line through SetParam afterwards.
const (
	defaultDataRate = 9600
	defaultDataBits = 8
	defaultStopBits = 1
)

// SerialTransport implements Transport on top of a go.bug.st/serial port.
//
// The serial package exposes no parameter getters, so the transport keeps a
// shadow copy of the last applied line parameters and answers GetParam from
// it. The shadow is seeded with the mode used at open, which makes a
// read-modify-restore cycle over the same handle exact.
type SerialTransport struct {
	name   string
	logger *zap.Logger

	mutex  sync.Mutex
	port   serial.Port
	owned  bool
	active bool
	shadow LineConfig
}

// NewSerialTransport creates a transport for the named port. The port is not
// opened until Acquire.
func NewSerialTransport(name string, logger *zap.Logger) *SerialTransport {
	return &SerialTransport{
		name: name,
		logger: logger.With(
			zap.String("component", "transport"),
			zap.String("port", name),
		),
	}
}

// Name returns the port name the transport was created with.
func (t *SerialTransport) Name() string {
	return t.name
}

// Acquire opens the port exclusively. Opening an already-owned port fails
// with ErrPortBusy; the OS-level exclusive lock taken by the serial package
// maps other processes' ownership to the same error.
func (t *SerialTransport) Acquire(nonBlocking bool) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.owned {
		return ErrPortBusy
	}

	mode := &serial.Mode{
		BaudRate: defaultDataRate,
		DataBits: defaultDataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(t.name, mode)
	if err != nil {
		var portErr *serial.PortError
		if errors.As(err, &portErr) && portErr.Code() == serial.PortBusy {
			return ErrPortBusy
		}
		t.logger.Error("Failed to open serial port", zap.Error(err))
		return &Error{Op: "open", Err: err}
	}

	t.port = port
	t.owned = true
	t.active = true
	// A POSIX open asserts both modem control lines.
	t.shadow = LineConfig{
		DataRate:    defaultDataRate,
		DataBits:    defaultDataBits,
		StopBits:    defaultStopBits,
		FlowControl: LineRTS | LineDTR,
	}

	t.logger.Debug("Serial port acquired")
	return nil
}

// Release closes the port, which deactivates the line, drops the exclusive
// lock, and unblocks any goroutine sitting in ReadExactly. Releasing an
// unowned transport is a no-op.
func (t *SerialTransport) Release() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.owned || t.port == nil {
		return nil
	}

	err := t.port.Close()
	t.port = nil
	t.owned = false
	t.active = false

	if err != nil {
		t.logger.Error("Failed to close serial port", zap.Error(err))
		return &Error{Op: "close", Err: err}
	}

	t.logger.Debug("Serial port released")
	return nil
}

// GetParam reads a line parameter from the shadow configuration.
func (t *SerialTransport) GetParam(p Param) (uint32, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.owned {
		return 0, &Error{Op: "get " + p.String(), Err: ErrNotAcquired}
	}

	switch p {
	case ParamDataRate:
		return t.shadow.DataRate, nil
	case ParamDataBits:
		return t.shadow.DataBits, nil
	case ParamStopBits:
		return t.shadow.StopBits, nil
	case ParamFlowControl:
		return t.shadow.FlowControl, nil
	case ParamActive:
		if t.active {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, &Error{Op: "get", Err: errors.New("unknown parameter")}
	}
}

// SetParam applies a line parameter to the port and records it in the
// shadow configuration.
func (t *SerialTransport) SetParam(p Param, value uint32) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.owned || t.port == nil {
		return &Error{Op: "set " + p.String(), Err: ErrNotAcquired}
	}

	switch p {
	case ParamDataRate:
		t.shadow.DataRate = value
		return t.applyModeLocked()
	case ParamDataBits:
		t.shadow.DataBits = value
		return t.applyModeLocked()
	case ParamStopBits:
		t.shadow.StopBits = value
		return t.applyModeLocked()
	case ParamFlowControl:
		if err := t.port.SetRTS(value&LineRTS != 0); err != nil {
			return &Error{Op: "set rts", Err: err}
		}
		if err := t.port.SetDTR(value&LineDTR != 0); err != nil {
			return &Error{Op: "set dtr", Err: err}
		}
		t.shadow.FlowControl = value
		return nil
	case ParamActive:
		t.active = value != 0
		return nil
	default:
		return &Error{Op: "set", Err: errors.New("unknown parameter")}
	}
}

// applyModeLocked pushes the shadowed framing parameters to the port.
// Caller holds t.mutex.
func (t *SerialTransport) applyModeLocked() error {
	mode := &serial.Mode{
		BaudRate: int(t.shadow.DataRate),
		DataBits: int(t.shadow.DataBits),
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if t.shadow.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	if err := t.port.SetMode(mode); err != nil {
		t.logger.Error("Failed to apply serial mode", zap.Error(err))
		return &Error{Op: "set mode", Err: err}
	}
	return nil
}

// FlushInput discards the receive queue.
func (t *SerialTransport) FlushInput() error {
	port := t.portRef()
	if port == nil {
		return &Error{Op: "flush", Err: ErrNotAcquired}
	}
	if err := port.ResetInputBuffer(); err != nil {
		return &Error{Op: "flush", Err: err}
	}
	return nil
}

// ReadExactly blocks until len(p) bytes have arrived. The read is performed
// outside the transport mutex so that a concurrent Release can close the
// port and unblock it; in that case the error carries the short count.
func (t *SerialTransport) ReadExactly(p []byte) (int, error) {
	port := t.portRef()
	if port == nil {
		return 0, &Error{Op: "read", Err: ErrNotAcquired}
	}
	if err := port.SetReadTimeout(serial.NoTimeout); err != nil {
		return 0, &Error{Op: "set read timeout", Err: err}
	}

	total := 0
	for total < len(p) {
		n, err := port.Read(p[total:])
		total += n
		if err != nil {
			return total, &Error{Op: "read", Err: err}
		}
		if n == 0 {
			// Blocking reads return zero only when the port went away.
			return total, nil
		}
	}
	return total, nil
}

// ReadAvailable performs a single zero-timeout read and returns whatever was
// already buffered, possibly nothing.
func (t *SerialTransport) ReadAvailable(p []byte) (int, error) {
	port := t.portRef()
	if port == nil {
		return 0, &Error{Op: "read", Err: ErrNotAcquired}
	}
	if err := port.SetReadTimeout(time.Duration(0)); err != nil {
		return 0, &Error{Op: "set read timeout", Err: err}
	}

	n, err := port.Read(p)
	if err != nil {
		return n, &Error{Op: "read", Err: err}
	}
	return n, nil
}

func (t *SerialTransport) portRef() serial.Port {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.port
}
