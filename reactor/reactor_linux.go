//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based reactor implementation and factory.

package reactor

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
	"sync/atomic"

	"github.com/momentics/etlisten/api"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// DefaultMaxEvents is the epoll_wait batch size used when none is given.
const DefaultMaxEvents = 128

// Reactor owns one epoll instance and the registration table.
type Reactor struct {
	epfd   int
	wakefd int
	table  *Table
	events []unix.EpollEvent
	sink   api.Sink

	stopping bool
	closed   atomic.Bool
}

// New creates the epoll instance and the shutdown eventfd. Failures are
// setup errors.
func New(maxEvents int, sink api.Sink) (*Reactor, error) {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	if sink == nil {
		sink = api.NopSink{}
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, &api.SetupError{Step: "epoll_create1", Err: err}
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, &api.SetupError{Step: "eventfd", Err: err}
	}
	r := &Reactor{
		epfd:   epfd,
		wakefd: wakefd,
		table:  NewTable(),
		events: make([]unix.EpollEvent, maxEvents),
		sink:   sink,
	}
	if _, err := r.Register(wakefd, RoleWake, netip.AddrPort{}); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, &api.SetupError{Step: "epoll_ctl", Err: err}
	}
	return r, nil
}

// Register adds a non-blocking descriptor in edge-triggered read mode.
func (r *Reactor) Register(fd int, role Role, peer netip.AddrPort) (Handle, error) {
	if r.closed.Load() {
		return Handle{}, api.ErrReactorClosed
	}
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return Handle{}, api.NewError(api.ErrCodeRegister, "fcntl", err).WithContext("fd", fd)
	}
	if flags&unix.O_NONBLOCK == 0 {
		return Handle{}, api.NewError(api.ErrCodeRegister, "register", api.ErrBlockingFD).WithContext("fd", fd)
	}
	h, err := r.table.Insert(fd, role, peer)
	if err != nil {
		return Handle{}, api.NewError(api.ErrCodeRegister, "register", err).WithContext("fd", fd)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLET}
	ev.Fd = int32(h.index)
	ev.Pad = int32(h.gen)
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		r.table.Release(h)
		return Handle{}, api.NewError(api.ErrCodeRegister, "epoll_ctl", err).WithContext("fd", fd)
	}
	return h, nil
}

// CloseConn releases the table slot and closes the descriptor, which also
// drops it from the epoll interest list.
func (r *Reactor) CloseConn(h Handle) error {
	c, ok := r.table.Release(h)
	if !ok {
		return api.ErrNotFound
	}
	if err := unix.Close(c.FD); err != nil {
		return api.NewError(api.ErrCodeClose, "close", err).WithContext("fd", c.FD)
	}
	return nil
}

// Lookup resolves a live handle.
func (r *Reactor) Lookup(h Handle) (*Conn, bool) { return r.table.Lookup(h) }

// Len returns the number of registered client connections.
func (r *Reactor) Len() int { return r.table.Conns() }

// Run waits for readiness and dispatches events to h until Shutdown is
// called or ctx is done. The wait has no timeout.
func (r *Reactor) Run(ctx context.Context, h Handler) error {
	if r.closed.Load() {
		return api.ErrReactorClosed
	}
	if ctx != nil {
		stop := context.AfterFunc(ctx, r.Shutdown)
		defer stop()
	}
	r.stopping = false
	for !r.stopping {
		n, err := unix.EpollWait(r.epfd, r.events, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return api.NewError(api.ErrCodeWait, "epoll_wait", err)
		}
		for i := 0; i < n; i++ {
			r.dispatch(r.events[i], h)
		}
	}
	return nil
}

func (r *Reactor) dispatch(ev unix.EpollEvent, h Handler) {
	c, ok := r.table.Lookup(Handle{index: uint32(ev.Fd), gen: uint32(ev.Pad)})
	if !ok {
		// closed earlier in this batch
		return
	}
	if c.Role == RoleWake {
		r.drainWake()
		r.stopping = true
		return
	}
	mask := maskOf(ev.Events)
	if mask.Abnormal() {
		info := c.Info()
		r.sink.Error("epoll", info, api.NewError(api.ErrCodeEvent, "epoll_wait",
			fmt.Errorf("abnormal readiness %s", mask)).WithContext("role", c.Role.String()))
		if err := r.CloseConn(c.Handle); err != nil {
			r.sink.Error("close", info, err)
		}
		r.sink.Closed(info)
		return
	}
	switch c.Role {
	case RoleListener:
		h.OnAcceptable(c)
	case RoleConn:
		h.OnReadable(c)
	}
}

func (r *Reactor) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(r.wakefd, buf[:]); err != unix.EINTR {
			return
		}
	}
}

// Shutdown makes Run return after the current batch. It is safe to call from
// any goroutine before Close.
func (r *Reactor) Shutdown() {
	if r.closed.Load() {
		return
	}
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	_, _ = unix.Write(r.wakefd, one[:])
}

// Close closes every registered descriptor and the epoll instance. Run must
// have returned.
func (r *Reactor) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	var handles []Handle
	r.table.Each(func(c *Conn) { handles = append(handles, c.Handle) })
	var err error
	for _, h := range handles {
		c, _ := r.table.Release(h)
		if cerr := unix.Close(c.FD); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close fd %d: %w", c.FD, cerr))
		}
	}
	if cerr := unix.Close(r.epfd); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("close epoll: %w", cerr))
	}
	return err
}

func maskOf(events uint32) EventMask {
	var m EventMask
	if events&unix.EPOLLIN != 0 {
		m |= EventReadable
	}
	if events&unix.EPOLLERR != 0 {
		m |= EventError
	}
	if events&unix.EPOLLHUP != 0 {
		m |= EventHangup
	}
	return m
}
