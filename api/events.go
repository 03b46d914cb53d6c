// File: api/events.go
// Package api defines the reactor event sink.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "net/netip"

// ConnInfo identifies a connection in sink callbacks.
type ConnInfo struct {
	ID   uint64         // reactor handle; unique for the process lifetime
	FD   int            // OS descriptor, may be reused after close
	Peer netip.AddrPort // numeric peer address, informational only
}

// Sink receives reactor events. All calls happen on the event loop goroutine.
type Sink interface {
	// Accepted is called after a connection is registered with the reactor.
	Accepted(c ConnInfo)

	// Received is called once per chunk read. chunk is only valid for the
	// duration of the call.
	Received(c ConnInfo, chunk []byte)

	// Closed is called after the connection descriptor has been closed.
	Closed(c ConnInfo)

	// Error reports a recoverable failure. c is the affected descriptor.
	Error(op string, c ConnInfo, err error)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Accepted(ConnInfo) {}
func (NopSink) Received(ConnInfo, []byte) {}
func (NopSink) Closed(ConnInfo) {}
func (NopSink) Error(string, ConnInfo, error) {}
