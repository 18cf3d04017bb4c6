// Package notify delivers user feedback events (the vibration or chime a
// device plays when a recording starts or a match fails) without blocking the
// caller.
package notify

import (
	"sync"

	"Song-Rec-Go/pkg/logging"
)

// Event is the kind of feedback to play.
type Event string

const (
	Success Event = "success"
	Warning Event = "warning"
	Error   Event = "error"
)

// Notifier plays feedback for an event.
type Notifier interface {
	Notify(Event)
}

// Func adapts a function to Notifier.
type Func func(Event)

func (f Func) Notify(e Event) { f(e) }

// Discard ignores every event.
var Discard Notifier = Func(func(Event) {})

var log = logging.For("notify")

// LogNotifier records events in the log.
type LogNotifier struct{}

func (LogNotifier) Notify(e Event) {
	log.WithField("event", string(e)).Debug("feedback")
}

// Async forwards events to another Notifier from a single worker goroutine.
// Notify never blocks; events arriving while the buffer is full are dropped.
type Async struct {
	next    Notifier
	ch      chan Event
	done    chan struct{}
	closeMu sync.RWMutex
	closed  bool
}

// NewAsync starts the worker. buffer <= 0 uses 16.
func NewAsync(next Notifier, buffer int) *Async {
	if buffer <= 0 {
		buffer = 16
	}
	a := &Async{next: next, ch: make(chan Event, buffer), done: make(chan struct{})}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.ch {
		a.next.Notify(e)
	}
}

// Notify queues e or drops it when the queue is full or closed.
func (a *Async) Notify(e Event) {
	a.closeMu.RLock()
	defer a.closeMu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.ch <- e:
	default:
		log.WithField("event", string(e)).Debug("feedback dropped")
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (a *Async) Close() {
	a.closeMu.Lock()
	if !a.closed {
		a.closed = true
		close(a.ch)
	}
	a.closeMu.Unlock()
	<-a.done
}
