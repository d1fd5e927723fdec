package relay_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/skirmish/internal/relay"
)

func idleSignal() (chan struct{}, func()) {
	fired := make(chan struct{}, 4)
	return fired, func() { fired <- struct{}{} }
}

func TestIdleTimer_Fires(t *testing.T) {
	fired, onIdle := idleSignal()
	relay.NewIdleTimer(20*time.Millisecond, onIdle)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("idle callback never ran")
	}
	assert.Never(t, func() bool { return len(fired) > 0 }, 60*time.Millisecond, 10*time.Millisecond, "fires once")
}

func TestIdleTimer_StopPreventsCallback(t *testing.T) {
	fired, onIdle := idleSignal()
	it := relay.NewIdleTimer(30*time.Millisecond, onIdle)
	it.Stop()
	it.Touch()
	it.Stop()

	assert.Never(t, func() bool { return len(fired) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestIdleTimer_TouchExtendsDeadline(t *testing.T) {
	fired, onIdle := idleSignal()
	it := relay.NewIdleTimer(60*time.Millisecond, onIdle)
	defer it.Stop()

	time.Sleep(40 * time.Millisecond)
	it.Touch()
	// 80ms after start: past the first deadline, short of the touched one.
	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, fired)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("idle callback never ran after touch")
	}
}
