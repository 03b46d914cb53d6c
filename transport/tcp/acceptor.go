//go:build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"errors"
	"net/netip"

	"github.com/momentics/etlisten/api"
	"github.com/momentics/etlisten/internal/drain"
	"github.com/momentics/etlisten/reactor"
	"golang.org/x/sys/unix"
)

// Registrar is the part of the reactor the acceptor needs.
type Registrar interface {
	Register(fd int, role reactor.Role, peer netip.AddrPort) (reactor.Handle, error)
}

// Acceptor empties a listener's accept queue into the reactor.
type Acceptor struct {
	ln   *Listener
	reg  Registrar
	sink api.Sink
}

// NewAcceptor returns an Acceptor for ln.
func NewAcceptor(ln *Listener, reg Registrar, sink api.Sink) *Acceptor {
	if sink == nil {
		sink = api.NopSink{}
	}
	return &Acceptor{ln: ln, reg: reg, sink: sink}
}

// Drain accepts until the queue is empty and returns how many connections
// were taken off it. A failing accept is reported and ends the pass; the
// listener stays registered.
func (a *Acceptor) Drain() int {
	n, err := drain.Until(a.acceptOne)
	if err != nil {
		a.sink.Error("accept", api.ConnInfo{FD: a.ln.fd, Peer: a.ln.addr},
			api.NewError(api.ErrCodeAccept, "accept4", err))
	}
	return n
}

func (a *Acceptor) acceptOne() error {
	fd, sa, err := unix.Accept4(a.ln.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if errors.Is(err, unix.ECONNABORTED) {
			// reset while queued; the next entry may be fine
			return nil
		}
		return err
	}
	info := api.ConnInfo{FD: fd, Peer: addrPortOf(sa)}
	h, err := a.reg.Register(fd, reactor.RoleConn, info.Peer)
	if err != nil {
		unix.Close(fd)
		a.sink.Error("register", info, err)
		return nil
	}
	info.ID = h.ID()
	a.sink.Accepted(info)
	return nil
}
