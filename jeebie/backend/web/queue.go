// Package web is the browser backend. Everything touching the DOM lives in
// files built for js/wasm; the event queue below is shared and testable on
// any platform.
package web

import (
	"sync"

	"github.com/valerio/jeebie-host/jeebie/backend"
)

type eventKind int

const (
	eventKeyDown eventKind = iota
	eventKeyUp
	eventSlowdown
)

type hostEvent struct {
	kind  eventKind
	code  string
	value int
}

// eventQueue carries DOM events from JS callbacks to the driver goroutine.
// It grows as needed, so a stalled animation frame never loses input.
type eventQueue struct {
	mu      sync.Mutex
	pending []hostEvent
	spare   []hostEvent
}

func newEventQueue(capacity int) *eventQueue {
	return &eventQueue{pending: make([]hostEvent, 0, capacity)}
}

func (q *eventQueue) push(ev hostEvent) {
	q.mu.Lock()
	q.pending = append(q.pending, ev)
	q.mu.Unlock()
}

// drain dispatches every queued event through cb, in arrival order.
func (q *eventQueue) drain(cb backend.BackendCallbacks) int {
	q.mu.Lock()
	events := q.pending
	q.pending = q.spare[:0]
	q.mu.Unlock()

	for _, ev := range events {
		switch ev.kind {
		case eventKeyDown:
			cb.KeyDown(ev.code)
		case eventKeyUp:
			cb.KeyUp(ev.code)
		case eventSlowdown:
			cb.Slowdown(ev.value)
		}
	}

	q.mu.Lock()
	q.spare = events[:0]
	q.mu.Unlock()
	return len(events)
}
