// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral reactor types.

package reactor

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/momentics/etlisten/api"
)

// Role tells the dispatcher what a registered descriptor is.
type Role uint8

const (
	RoleListener Role = iota + 1
	RoleConn
	RoleWake
)

func (r Role) String() string {
	switch r {
	case RoleListener:
		return "listener"
	case RoleConn:
		return "conn"
	case RoleWake:
		return "wake"
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// Handle is the stable identity of a table slot. The generation changes every
// time the slot is released, so a Handle never refers to a later occupant.
type Handle struct {
	index uint32
	gen   uint32
}

// ID packs the handle into a single integer for logging.
func (h Handle) ID() uint64 { return uint64(h.gen)<<32 | uint64(h.index) }

// IsZero reports whether h was never issued by a Table.
func (h Handle) IsZero() bool { return h.gen == 0 }

func (h Handle) String() string { return fmt.Sprintf("%d.%d", h.index, h.gen) }

// Conn is a registration table record.
type Conn struct {
	Handle Handle
	FD     int
	Role   Role
	Peer   netip.AddrPort
}

// Info converts the record into the form passed to sinks.
func (c *Conn) Info() api.ConnInfo {
	return api.ConnInfo{ID: c.Handle.ID(), FD: c.FD, Peer: c.Peer}
}

// EventMask is the subset of epoll readiness bits the reactor acts on.
type EventMask uint8

const (
	EventReadable EventMask = 1 << iota
	EventError
	EventHangup
)

func (m EventMask) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	if m&EventReadable != 0 {
		parts = append(parts, "readable")
	}
	if m&EventError != 0 {
		parts = append(parts, "error")
	}
	if m&EventHangup != 0 {
		parts = append(parts, "hangup")
	}
	return strings.Join(parts, "|")
}

// Abnormal reports whether an event must close its descriptor instead of
// being dispatched: an error or hangup, or a wakeup without readability.
func (m EventMask) Abnormal() bool {
	return m&(EventError|EventHangup) != 0 || m&EventReadable == 0
}

// Handler receives dispatched readiness events. Both methods run on the loop
// goroutine and must drain their resource until it would block.
type Handler interface {
	OnAcceptable(ln *Conn)
	OnReadable(c *Conn)
}
