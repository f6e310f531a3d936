// internal/driver/msmouse/mock_test.go
package msmouse

import (
	"errors"
	"sync"

	"mouse-service/internal/transport"
)

type paramSet struct {
	param transport.Param
	value uint32
}

// fakeTransport scripts the transport side of the driver: canned line
// parameters, a queue of identification bytes, and a channel of frame
// reads. Releasing it unblocks any goroutine waiting in ReadExactly, the
// same way closing a real port does.
type fakeTransport struct {
	mu sync.Mutex

	acquireErr error
	params     map[transport.Param]uint32
	getErr     map[transport.Param]error
	setErr     map[transport.Param]error
	setLog     []paramSet

	ident  []byte
	frames chan []byte

	owned    bool
	acquires int
	releases int
	flushes  int

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		params: map[transport.Param]uint32{
			transport.ParamDataRate:    9600,
			transport.ParamDataBits:    8,
			transport.ParamStopBits:    1,
			transport.ParamFlowControl: transport.LineRTS | transport.LineDTR,
			transport.ParamActive:      1,
		},
		getErr: make(map[transport.Param]error),
		setErr: make(map[transport.Param]error),
		frames: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeTransport) Acquire(nonBlocking bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.acquireErr != nil {
		return f.acquireErr
	}
	if f.owned {
		return transport.ErrPortBusy
	}
	f.owned = true
	f.acquires++
	return nil
}

func (f *fakeTransport) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.owned {
		return nil
	}
	f.owned = false
	f.releases++
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) GetParam(p transport.Param) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.getErr[p]; err != nil {
		return 0, err
	}
	return f.params[p], nil
}

func (f *fakeTransport) SetParam(p transport.Param, value uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.setErr[p]; err != nil {
		return err
	}
	f.params[p] = value
	f.setLog = append(f.setLog, paramSet{p, value})
	return nil
}

func (f *fakeTransport) FlushInput() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return nil
}

func (f *fakeTransport) ReadExactly(p []byte) (int, error) {
	select {
	case b := <-f.frames:
		return copy(p, b), nil
	case <-f.closed:
		return 0, &transport.Error{Op: "read", Err: errors.New("port closed")}
	}
}

func (f *fakeTransport) ReadAvailable(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.ident) == 0 {
		return 0, nil
	}
	n := copy(p, f.ident)
	f.ident = f.ident[n:]
	return n, nil
}

func (f *fakeTransport) releaseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.releases
}

func (f *fakeTransport) flushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushes
}

func (f *fakeTransport) paramSnapshot() map[transport.Param]uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := make(map[transport.Param]uint32, len(f.params))
	for p, v := range f.params {
		snapshot[p] = v
	}
	return snapshot
}

func (f *fakeTransport) paramSets() []paramSet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]paramSet(nil), f.setLog...)
}
