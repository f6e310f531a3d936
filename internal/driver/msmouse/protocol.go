// internal/driver/msmouse/protocol.go

// Package msmouse implements a driver for Microsoft-protocol serial mice:
// the two-button handshake over RTS/DTR, the 3-byte relative-motion packet
// format, and the polling lifecycle that feeds decoded events to a sink.
package msmouse

import (
	"time"

	"mouse-service/internal/transport"
)

// Line settings the protocol requires before the device will talk.
const (
	protoDataRate    uint32 = 1200
	protoDataBits    uint32 = 7
	protoStopBits    uint32 = 1
	protoFlowControl        = transport.LineRTS | transport.LineDTR
)

// The device answers the DTR wake-up pulse with a single identification
// byte, ASCII 'M', after a short settle delay.
const (
	identDelay = 100 * time.Millisecond
	identByte  = 0x4D
)

// Packet layout. Bit 6 of the first byte is the only frame-alignment marker
// the protocol has; the remaining first-byte bits carry the button states
// and the two high bits of each motion delta.
const (
	packetLength    = 3
	packetHeaderBit = 0x40
	packetLeftBit   = 0x20
	packetRightBit  = 0x10
)

// requiredLineConfig returns the full line configuration the handshake
// applies before reading the identification byte.
func requiredLineConfig() transport.LineConfig {
	return transport.LineConfig{
		DataRate:    protoDataRate,
		DataBits:    protoDataBits,
		StopBits:    protoStopBits,
		FlowControl: protoFlowControl,
	}
}
