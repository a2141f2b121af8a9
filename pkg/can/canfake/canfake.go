// Package canfake provides an in-memory can.Bus for tests, in the spirit of
// the notnil/canbus loopback bus, adapted to the timeout-bounded Read
// contract the SDO client and heartbeat monitor are built against.
package canfake

import (
	"sync"
	"time"

	"github.com/canopenctl/canopenctl/pkg/can"
)

// Bus is a single-endpoint in-memory transport. Frames written with Write
// are not looped back to the same endpoint; NewPair returns the two sides
// of a simulated wire.
type Bus struct {
	mu     sync.Mutex
	peer   *Bus
	rx     chan can.Frame
	closed bool
}

// NewPair returns two endpoints wired to each other, simulating a CAN bus
// shared by a client and a simulated node.
func NewPair() (a, b *Bus) {
	a = &Bus{rx: make(chan can.Frame, 64)}
	b = &Bus{rx: make(chan can.Frame, 64)}
	a.peer, b.peer = b, a
	return a, b
}

// Write delivers the frame to the peer endpoint.
func (b *Bus) Write(frame can.Frame) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed || b.peer == nil {
		return nil
	}
	select {
	case b.peer.rx <- frame:
	default:
	}
	return nil
}

// Read waits up to timeout for the next frame delivered by the peer.
func (b *Bus) Read(out *can.Frame, timeout time.Duration) (can.ReadStatus, time.Time, error) {
	var timer <-chan time.Time
	switch {
	case timeout < 0:
		// block forever: no timer channel
	case timeout == 0:
		select {
		case f := <-b.rx:
			*out = f
			return can.Received, time.Now(), nil
		default:
			return can.TimedOut, time.Time{}, nil
		}
	default:
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case f := <-b.rx:
		*out = f
		return can.Received, time.Now(), nil
	case <-timer:
		return can.TimedOut, time.Time{}, nil
	}
}

// Close marks the endpoint closed. Idempotent.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
