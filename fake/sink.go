// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"
	"time"

	"github.com/momentics/etlisten/api"
)

// EventKind names a recorded sink callback.
type EventKind string

const (
	KindAccepted EventKind = "accepted"
	KindReceived EventKind = "received"
	KindClosed   EventKind = "closed"
	KindError    EventKind = "error"
)

// Event is one recorded sink callback.
type Event struct {
	Kind EventKind
	Conn api.ConnInfo
	Data string
	Op   string
	Err  error
}

// Sink records every callback. It is safe to inspect from another goroutine
// while the reactor runs.
type Sink struct {
	mu     sync.Mutex
	events []Event
}

func (s *Sink) add(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *Sink) Accepted(c api.ConnInfo) { s.add(Event{Kind: KindAccepted, Conn: c}) }

// Received copies the chunk, which the reader reuses after the call.
func (s *Sink) Received(c api.ConnInfo, chunk []byte) {
	s.add(Event{Kind: KindReceived, Conn: c, Data: string(chunk)})
}

func (s *Sink) Closed(c api.ConnInfo) { s.add(Event{Kind: KindClosed, Conn: c}) }

func (s *Sink) Error(op string, c api.ConnInfo, err error) {
	s.add(Event{Kind: KindError, Conn: c, Op: op, Err: err})
}

// Events returns a copy of everything recorded so far.
func (s *Sink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Filter returns recorded events of the given kind.
func (s *Sink) Filter(kind EventKind) []Event {
	var out []Event
	for _, ev := range s.Events() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// Data concatenates the chunks received on connection id in order.
func (s *Sink) Data(id uint64) string {
	var out string
	for _, ev := range s.Filter(KindReceived) {
		if ev.Conn.ID == id {
			out += ev.Data
		}
	}
	return out
}

// WaitFor polls until cond holds or timeout passes, and reports which.
func (s *Sink) WaitFor(timeout time.Duration, cond func(evs []Event) bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond(s.Events()) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(2 * time.Millisecond)
	}
}
