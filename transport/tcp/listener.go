//go:build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/momentics/etlisten/api"
	"golang.org/x/sys/unix"
)

// Listener is a bound, listening, non-blocking IPv4 TCP socket.
type Listener struct {
	fd      int
	addr    netip.AddrPort
	backlog int
}

// Listen resolves host:port as a passive IPv4 address and returns a
// listening socket. An empty host binds every interface; port may be a
// number or a service name. backlog <= 0 selects SOMAXCONN.
//
// Every failure is an *api.SetupError naming the step; nothing is left open.
func Listen(host, port string, backlog int) (*Listener, error) {
	ta, err := net.ResolveTCPAddr("tcp4", net.JoinHostPort(host, port))
	if err != nil {
		return nil, &api.SetupError{Step: "resolve", Err: err}
	}
	sa := &unix.SockaddrInet4{Port: ta.Port}
	if ip4 := ta.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, &api.SetupError{Step: "socket", Err: err}
	}
	fail := func(step string, err error) (*Listener, error) {
		unix.Close(fd)
		return nil, &api.SetupError{Step: step, Err: err}
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail("setsockopt", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		return fail("bind", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return fail("nonblock", err)
	}
	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return fail("listen", err)
	}
	bound, err := unix.Getsockname(fd)
	if err != nil {
		return fail("getsockname", err)
	}
	return &Listener{fd: fd, addr: addrPortOf(bound), backlog: backlog}, nil
}

// FD returns the listening descriptor.
func (l *Listener) FD() int { return l.fd }

// Addr returns the bound address, with the kernel-chosen port when port 0
// was requested.
func (l *Listener) Addr() netip.AddrPort { return l.addr }

// Backlog returns the backlog passed to listen(2).
func (l *Listener) Backlog() int { return l.backlog }

// Close closes the socket. Once the listener has been registered with a
// reactor, the reactor owns the descriptor and Close must not be called.
func (l *Listener) Close() error {
	if err := unix.Close(l.fd); err != nil {
		return fmt.Errorf("close listener: %w", err)
	}
	return nil
}

func (l *Listener) String() string {
	return fmt.Sprintf("tcp4 %s (fd=%d backlog=%d)", l.addr, l.fd, l.backlog)
}

// addrPortOf converts a socket address into its numeric form.
func addrPortOf(sa unix.Sockaddr) netip.AddrPort {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(a.Addr), uint16(a.Port))
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(a.Addr).Unmap(), uint16(a.Port))
	}
	return netip.AddrPort{}
}
