// internal/driver/msmouse/decoder_test.go
package msmouse

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"mouse-service/internal/model"
	"mouse-service/internal/sink"
)

func TestFrameValid(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  bool
	}{
		{"header bit set", Frame{0x40, 0x00, 0x00}, true},
		{"header bit with buttons", Frame{0x70, 0x00, 0x00}, true},
		{"all zero", Frame{0x00, 0x00, 0x00}, false},
		{"garbage without header", Frame{0x3F, 0xFF, 0xFF}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.frame.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFrameDecode(t *testing.T) {
	tests := []struct {
		name    string
		frame   Frame
		deltaX  int8
		deltaY  int8
		buttons model.Buttons
	}{
		{"small positive motion", Frame{0x40, 0x01, 0x02}, 1, 2, 0},
		{"no motion no buttons", Frame{0x40, 0x00, 0x00}, 0, 0, 0},
		{"left button only", Frame{0x60, 0x00, 0x00}, 0, 0, model.ButtonLeft},
		{"right button only", Frame{0x50, 0x00, 0x00}, 0, 0, model.ButtonRight},
		{"both buttons", Frame{0x70, 0x00, 0x00}, 0, 0, model.ButtonLeft | model.ButtonRight},
		{"x minus one", Frame{0x43, 0x3F, 0x00}, -1, 0, 0},
		{"y minus one", Frame{0x4C, 0x00, 0x3F}, 0, -1, 0},
		{"x max positive", Frame{0x41, 0x3F, 0x00}, 127, 0, 0},
		{"x max negative", Frame{0x42, 0x00, 0x00}, -128, 0, 0},
		{"y max positive", Frame{0x44, 0x00, 0x3F}, 0, 127, 0},
		{"y max negative", Frame{0x48, 0x00, 0x00}, 0, -128, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Now()
			event := tt.frame.Decode(now)

			if event.DeltaX != tt.deltaX {
				t.Errorf("DeltaX = %d, want %d", event.DeltaX, tt.deltaX)
			}
			if event.DeltaY != tt.deltaY {
				t.Errorf("DeltaY = %d, want %d", event.DeltaY, tt.deltaY)
			}
			if event.Buttons != tt.buttons {
				t.Errorf("Buttons = %v, want %v", event.Buttons, tt.buttons)
			}
			if !event.Timestamp.Equal(now) {
				t.Errorf("Timestamp = %v, want %v", event.Timestamp, now)
			}
		})
	}
}

// runEngine starts the pump against the fake transport and returns a stop
// function that cancels it and waits for it to exit.
func runEngine(t *testing.T, ft *fakeTransport, events *sink.ChanSink) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	eng := newEngine(ft, events, zap.NewNop())
	go func() {
		defer close(done)
		eng.run(ctx)
	}()

	return func() {
		cancel()
		ft.Release()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("engine did not stop")
		}
	}
}

func TestEngineDecodesValidFrames(t *testing.T) {
	ft := newFakeTransport()
	ft.owned = true
	events := sink.NewChanSink(8)

	ft.frames <- []byte{0x60, 0x01, 0x02}
	ft.frames <- []byte{0x40, 0x3F, 0x00}

	stop := runEngine(t, ft, events)
	defer stop()

	first := waitEvent(t, events)
	if first.DeltaX != 1 || first.DeltaY != 2 || first.Buttons != model.ButtonLeft {
		t.Errorf("first event = %+v, want dx=1 dy=2 buttons=LEFT", first)
	}

	second := waitEvent(t, events)
	if second.DeltaX != 63 || second.DeltaY != 0 || second.Buttons != 0 {
		t.Errorf("second event = %+v, want dx=63 dy=0 buttons=NONE", second)
	}
}

func TestEngineFlushesOnInvalidFrame(t *testing.T) {
	ft := newFakeTransport()
	ft.owned = true
	events := sink.NewChanSink(8)

	// Header bit clear: the engine must flush and emit nothing for it.
	ft.frames <- []byte{0x00, 0x7F, 0x7F}
	ft.frames <- []byte{0x40, 0x05, 0x06}

	stop := runEngine(t, ft, events)
	defer stop()

	event := waitEvent(t, events)
	if event.DeltaX != 5 || event.DeltaY != 6 {
		t.Errorf("event = %+v, want dx=5 dy=6", event)
	}
	if got := ft.flushCount(); got != 1 {
		t.Errorf("flush count = %d, want 1", got)
	}
	if len(events.Events()) != 0 {
		t.Error("invalid frame produced an event")
	}
}

func TestEngineDropsShortReads(t *testing.T) {
	ft := newFakeTransport()
	ft.owned = true
	events := sink.NewChanSink(8)

	// A short read is ignored: no event, no flush, loop retries.
	ft.frames <- []byte{0x40, 0x01}
	ft.frames <- []byte{0x40, 0x07, 0x08}

	stop := runEngine(t, ft, events)
	defer stop()

	event := waitEvent(t, events)
	if event.DeltaX != 7 || event.DeltaY != 8 {
		t.Errorf("event = %+v, want dx=7 dy=8", event)
	}
	if got := ft.flushCount(); got != 0 {
		t.Errorf("flush count = %d, want 0", got)
	}
}

func TestEngineEmitsInReadOrder(t *testing.T) {
	ft := newFakeTransport()
	ft.owned = true
	events := sink.NewChanSink(16)

	want := []int8{1, 2, 3, 4, 5}
	for _, dx := range want {
		ft.frames <- []byte{0x40, byte(dx), 0x00}
	}

	stop := runEngine(t, ft, events)
	defer stop()

	for i, dx := range want {
		event := waitEvent(t, events)
		if event.DeltaX != dx {
			t.Fatalf("event %d: DeltaX = %d, want %d", i, event.DeltaX, dx)
		}
	}
}

func waitEvent(t *testing.T, events *sink.ChanSink) model.PointerEvent {
	t.Helper()
	select {
	case event := <-events.Events():
		return event
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for pointer event")
		return model.PointerEvent{}
	}
}
