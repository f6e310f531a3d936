// internal/sink/sink.go

// Package sink provides EventSink implementations for hosts that have no
// input subsystem of their own: a structured-log sink for the service
// binary and a channel sink for embedders and tests.
package sink

import (
	"sync/atomic"

	"go.uber.org/zap"

	"mouse-service/internal/model"
	"mouse-service/pkg/driver"
)

// LogSink writes each decoded event to the service log.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink that logs pointer events at info level.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{
		logger: logger.With(zap.String("component", "sink")),
	}
}

// ReportRelativeMotion implements driver.EventSink.
func (s *LogSink) ReportRelativeMotion(event model.PointerEvent) {
	s.logger.Info("Pointer event",
		zap.Int8("delta_x", event.DeltaX),
		zap.Int8("delta_y", event.DeltaY),
		zap.String("buttons", event.Buttons.String()),
		zap.Time("event_time", event.Timestamp),
	)
}

// ChanSink delivers events on a buffered channel. Delivery never blocks the
// decode loop: events that arrive while the channel is full are counted and
// dropped.
type ChanSink struct {
	events  chan model.PointerEvent
	dropped atomic.Int64
}

// NewChanSink creates a channel sink with the given buffer size.
func NewChanSink(size int) *ChanSink {
	return &ChanSink{
		events: make(chan model.PointerEvent, size),
	}
}

// Events returns the channel events are delivered on.
func (s *ChanSink) Events() <-chan model.PointerEvent {
	return s.events
}

// Dropped returns how many events were discarded because the channel was
// full.
func (s *ChanSink) Dropped() int64 {
	return s.dropped.Load()
}

// ReportRelativeMotion implements driver.EventSink.
func (s *ChanSink) ReportRelativeMotion(event model.PointerEvent) {
	select {
	case s.events <- event:
	default:
		s.dropped.Add(1)
	}
}

// Discard is a sink that drops every event. Used where only the probe side
// of a driver is exercised.
var Discard driver.EventSink = discard{}

type discard struct{}

func (discard) ReportRelativeMotion(model.PointerEvent) {}
