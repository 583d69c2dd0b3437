// Package notify implements the transient notification shown by the portal
// screens: a single modal that closes itself after a fixed delay.
package notify

import (
	"sync"
	"time"
)

// State is a snapshot of the notification.
type State struct {
	Visible bool
	Title   string
	Body    string
}

// Notification is a single-instance modal. Every Show schedules its own
// dismissal, so an earlier timer may close a notification opened after it.
type Notification struct {
	mu       sync.Mutex
	state    State
	delay    time.Duration
	sched    Scheduler
	timers   map[int]Timer
	nextID   int
	onChange func()
}

// New creates a hidden notification. onChange, if not nil, is called after a
// timer closes the notification.
func New(delay time.Duration, sched Scheduler, onChange func()) *Notification {
	if sched == nil {
		sched = RealScheduler{}
	}
	return &Notification{
		delay:    delay,
		sched:    sched,
		timers:   make(map[int]Timer),
		onChange: onChange,
	}
}

// Show overwrites title and body, makes the notification visible and
// schedules a dismissal after the configured delay.
func (n *Notification) Show(title, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = State{Visible: true, Title: title, Body: body}
	n.nextID++
	id := n.nextID
	n.timers[id] = n.sched.AfterFunc(n.delay, func() { n.expire(id) })
}

func (n *Notification) expire(id int) {
	n.mu.Lock()
	if _, ok := n.timers[id]; !ok {
		n.mu.Unlock()
		return
	}
	delete(n.timers, id)
	n.state.Visible = false
	cb := n.onChange
	n.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Dismiss hides the notification. Pending timers keep running and are harmless.
func (n *Notification) Dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state.Visible = false
}

// State returns a snapshot of the notification.
func (n *Notification) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Delay returns the auto-dismiss delay.
func (n *Notification) Delay() time.Duration { return n.delay }

// Stop cancels every pending dismissal. Used when the owning screen goes away.
func (n *Notification) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, t := range n.timers {
		t.Stop()
		delete(n.timers, id)
	}
}
