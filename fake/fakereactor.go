// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"net/netip"

	"github.com/momentics/etlisten/api"
	"github.com/momentics/etlisten/reactor"
)

// Registrar stands in for the reactor in acceptor and reader tests. It keeps
// a real Table so handles behave as in production, but never touches epoll.
type Registrar struct {
	Table     *reactor.Table
	FailNext  error // returned once by the next Register call
	Closed    []int // descriptors passed to CloseConn, in order
	CloseFunc func(fd int) error
}

// NewRegistrar returns a Registrar with an empty table.
func NewRegistrar() *Registrar {
	return &Registrar{Table: reactor.NewTable()}
}

func (r *Registrar) Register(fd int, role reactor.Role, peer netip.AddrPort) (reactor.Handle, error) {
	if err := r.FailNext; err != nil {
		r.FailNext = nil
		return reactor.Handle{}, err
	}
	return r.Table.Insert(fd, role, peer)
}

func (r *Registrar) CloseConn(h reactor.Handle) error {
	c, ok := r.Table.Release(h)
	if !ok {
		return api.ErrNotFound
	}
	r.Closed = append(r.Closed, c.FD)
	if r.CloseFunc != nil {
		return r.CloseFunc(c.FD)
	}
	return nil
}
