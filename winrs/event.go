package winrs

import (
	"context"
	"sync"
)

// event is a manual-reset event, the channel-based equivalent of the
// asyncio.Event used by the done/receive-cancel/receive-idle handshake
// (§4.8, §9 "reproduce using condition variables and two mutexes per
// shell").
type event struct {
	mu   sync.Mutex
	ch   chan struct{}
	flag bool
}

func newEvent() *event {
	return &event{ch: make(chan struct{})}
}

// set marks the event as signaled, waking every current and future
// waiter until the next clear.
func (e *event) set() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.flag {
		e.flag = true
		close(e.ch)
	}
}

// clear resets the event to unsignaled.
func (e *event) clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.flag {
		e.flag = false
		e.ch = make(chan struct{})
	}
}

// isSet reports whether the event is currently signaled.
func (e *event) isSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flag
}

// C returns the channel to select on for the event's current signaled
// state. A subsequent clear/set pair yields a new channel, so callers
// should re-fetch C() on each loop iteration rather than caching it.
func (e *event) C() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ch
}

// wait blocks until the event is set or ctx is done.
func (e *event) wait(ctx context.Context) error {
	select {
	case <-e.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
