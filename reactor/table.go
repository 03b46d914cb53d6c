// File: reactor/table.go
// Author: momentics <momentics@gmail.com>
//
// Registration table: an arena of connection records addressed by Handle.

package reactor

import (
	"net/netip"

	"github.com/eapache/queue"
	"github.com/momentics/etlisten/api"
)

type slot struct {
	conn Conn
	gen  uint32
	live bool
}

// Table maps handles and descriptors to connection records. It is not safe
// for concurrent use; the reactor only touches it from the loop goroutine.
type Table struct {
	slots []*slot
	free  *queue.Queue // released slot indexes, reused oldest first
	byFD  map[int]uint32
	conns int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		free: queue.New(),
		byFD: make(map[int]uint32),
	}
}

// Insert records fd under a fresh handle. A descriptor may only be present
// once.
func (t *Table) Insert(fd int, role Role, peer netip.AddrPort) (Handle, error) {
	if fd < 0 {
		return Handle{}, api.ErrInvalidArgument
	}
	if _, dup := t.byFD[fd]; dup {
		return Handle{}, api.ErrAlreadyRegistered
	}
	var idx uint32
	if t.free.Length() > 0 {
		idx = t.free.Remove().(uint32)
	} else {
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, &slot{gen: 1})
	}
	s := t.slots[idx]
	h := Handle{index: idx, gen: s.gen}
	s.conn = Conn{Handle: h, FD: fd, Role: role, Peer: peer}
	s.live = true
	t.byFD[fd] = idx
	if role == RoleConn {
		t.conns++
	}
	return h, nil
}

// Lookup resolves a handle. Stale handles are not found.
func (t *Table) Lookup(h Handle) (*Conn, bool) {
	if int(h.index) >= len(t.slots) {
		return nil, false
	}
	s := t.slots[h.index]
	if !s.live || s.gen != h.gen {
		return nil, false
	}
	return &s.conn, true
}

// LookupFD resolves a descriptor currently present in the table.
func (t *Table) LookupFD(fd int) (*Conn, bool) {
	idx, ok := t.byFD[fd]
	if !ok {
		return nil, false
	}
	return &t.slots[idx].conn, true
}

// Release removes the record for h and returns a copy of it. The slot's
// generation is advanced before the slot becomes reusable.
func (t *Table) Release(h Handle) (Conn, bool) {
	c, ok := t.Lookup(h)
	if !ok {
		return Conn{}, false
	}
	out := *c
	s := t.slots[h.index]
	s.live = false
	s.conn = Conn{}
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	delete(t.byFD, out.FD)
	if out.Role == RoleConn {
		t.conns--
	}
	t.free.Add(h.index)
	return out, true
}

// Len returns the number of live records of every role.
func (t *Table) Len() int { return len(t.byFD) }

// Conns returns the number of live RoleConn records.
func (t *Table) Conns() int { return t.conns }

// Each calls fn for every live record in slot order.
func (t *Table) Each(fn func(c *Conn)) {
	for _, s := range t.slots {
		if s.live {
			fn(&s.conn)
		}
	}
}
