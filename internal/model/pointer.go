// internal/model/pointer.go
package model

import (
	"strings"
	"time"
)

// Buttons is a bitmask of pressed pointer buttons
type Buttons uint8

const (
	ButtonLeft Buttons = 1 << iota
	ButtonRight
)

// Left reports whether the left button is pressed
func (b Buttons) Left() bool {
	return b&ButtonLeft != 0
}

// Right reports whether the right button is pressed
func (b Buttons) Right() bool {
	return b&ButtonRight != 0
}

func (b Buttons) String() string {
	if b == 0 {
		return "NONE"
	}
	var parts []string
	if b.Left() {
		parts = append(parts, "LEFT")
	}
	if b.Right() {
		parts = append(parts, "RIGHT")
	}
	return strings.Join(parts, "|")
}

// PointerEvent is one decoded relative-motion sample. Events are forwarded
// to the sink as they are decoded and never stored by the driver.
type PointerEvent struct {
	DeltaX    int8      `json:"delta_x"`
	DeltaY    int8      `json:"delta_y"`
	Buttons   Buttons   `json:"buttons"`
	Timestamp time.Time `json:"timestamp"`
}

// DriverState represents the lifecycle state of a driver instance
type DriverState string

const (
	DriverStateIdle     DriverState = "IDLE"
	DriverStateProbing  DriverState = "PROBING"
	DriverStateAcquired DriverState = "ACQUIRED"
	DriverStatePolling  DriverState = "POLLING"
	DriverStateStopping DriverState = "STOPPING"
	DriverStateStopped  DriverState = "STOPPED"
	DriverStateFailed   DriverState = "FAILED"
)
