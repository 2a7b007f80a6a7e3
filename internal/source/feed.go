// Package source provides in-process implementations of tracking.Source.
// Capturing real OS focus and power events is platform work that lives
// outside this repository; the daemon consumes events from a feed that
// anything — a platform shim, a replay file, a test — can push into.
package source

import (
	"sync"

	"github.com/timetrail/timetrail/internal/domain/tracking"
)

// Feed is a tracking.Source fed programmatically via Emit.
type Feed struct {
	mu       sync.Mutex
	handlers map[int]func(tracking.Event)
	next     int
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{handlers: make(map[int]func(tracking.Event))}
}

// Subscribe registers a handler and returns its unsubscribe function.
func (f *Feed) Subscribe(handler func(tracking.Event)) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.handlers[id] = handler
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.handlers, id)
		f.mu.Unlock()
	}
}

// Emit delivers one event to every subscribed handler, in subscription
// order for a single Emit call. Handlers run on the caller's goroutine.
func (f *Feed) Emit(ev tracking.Event) {
	f.mu.Lock()
	handlers := make([]func(tracking.Event), 0, len(f.handlers))
	for id := 0; id < f.next; id++ {
		if h, ok := f.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}
