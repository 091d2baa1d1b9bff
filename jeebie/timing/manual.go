package timing

import (
	"sync"
	"time"
)

// Manual is a refresher driven by hand, for tests and step-by-step hosts.
type Manual struct {
	ch   chan time.Time
	once sync.Once
	stop chan struct{}
}

// NewManual creates a manual refresher that can queue up to capacity refreshes.
func NewManual(capacity int) *Manual {
	return &Manual{
		ch:   make(chan time.Time, capacity),
		stop: make(chan struct{}),
	}
}

// Fire queues n refreshes. It blocks while the queue is full and returns
// early once the refresher is stopped.
func (m *Manual) Fire(n int) {
	for i := 0; i < n; i++ {
		select {
		case m.ch <- time.Now():
		case <-m.stop:
			return
		}
	}
}

// Pending returns the number of queued refreshes not yet consumed.
func (m *Manual) Pending() int {
	return len(m.ch)
}

func (m *Manual) C() <-chan time.Time {
	return m.ch
}

func (m *Manual) Stop() {
	m.once.Do(func() { close(m.stop) })
}
