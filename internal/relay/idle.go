package relay

import (
	"sync"
	"time"
)

// IdleTimer fires a callback once a game has gone a full timeout without a
// Touch. It is safe for concurrent use.
type IdleTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	timeout time.Duration
	onIdle  func()
	stopped bool
}

// NewIdleTimer creates and starts a timer that calls onIdle after timeout.
// onIdle is called in a separate goroutine.
//
// Precondition: timeout > 0; onIdle must not be nil.
// Postcondition: Returns a running IdleTimer; onIdle will be called unless Touch or Stop intervenes.
func NewIdleTimer(timeout time.Duration, onIdle func()) *IdleTimer {
	it := &IdleTimer{timeout: timeout, onIdle: onIdle}
	it.timer = time.AfterFunc(timeout, it.fire)
	return it
}

func (it *IdleTimer) fire() {
	it.mu.Lock()
	stopped := it.stopped
	it.mu.Unlock()
	if !stopped {
		it.onIdle()
	}
}

// Touch restarts the countdown. It has no effect after Stop.
//
// Postcondition: unless stopped, onIdle will be called timeout after this call.
func (it *IdleTimer) Touch() {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.stopped {
		return
	}
	it.timer.Stop()
	it.timer = time.AfterFunc(it.timeout, it.fire)
}

// Stop prevents the callback from firing. Safe to call multiple times.
//
// Postcondition: onIdle will not be called after Stop returns.
func (it *IdleTimer) Stop() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.stopped = true
	it.timer.Stop()
}
