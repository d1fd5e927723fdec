package relay

import (
	"fmt"
	"sync"
)

// outbox queues encoded frames for one websocket connection. A single writer
// goroutine drains Frames; everyone else goes through Push.
type outbox struct {
	slot   string
	frames chan []byte
	mu     sync.Mutex
	closed bool
}

// newOutbox creates an outbox for the given player slot.
//
// Postcondition: Returns an outbox with an open frames channel of at least one slot.
func newOutbox(slot string, size int) *outbox {
	if size <= 0 {
		size = 64
	}
	return &outbox{
		slot:   slot,
		frames: make(chan []byte, size),
	}
}

// Push enqueues a frame without blocking.
//
// Postcondition: The frame is enqueued, or an error is returned if the outbox is closed or full.
func (o *outbox) Push(frame []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("outbox %s is closed", o.slot)
	}
	select {
	case o.frames <- frame:
		return nil
	default:
		return fmt.Errorf("outbox %s is full", o.slot)
	}
}

// Frames returns the read-only frame channel. It is closed by Close.
func (o *outbox) Frames() <-chan []byte {
	return o.frames
}

// Close closes the frame channel. Further Push calls return an error.
func (o *outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.closed = true
		close(o.frames)
	}
}
