//go:build linux

package reactor_test

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/momentics/etlisten/api"
	"github.com/momentics/etlisten/fake"
	"github.com/momentics/etlisten/reactor"
	"golang.org/x/sys/unix"
)

type funcHandler struct {
	accept func(*reactor.Conn)
	read   func(*reactor.Conn)
}

func (h funcHandler) OnAcceptable(c *reactor.Conn) {
	if h.accept != nil {
		h.accept(c)
	}
}

func (h funcHandler) OnReadable(c *reactor.Conn) {
	if h.read != nil {
		h.read(c)
	}
}

func socketpair(t *testing.T, nonblock bool) (int, int) {
	t.Helper()
	typ := unix.SOCK_STREAM | unix.SOCK_CLOEXEC
	if nonblock {
		typ |= unix.SOCK_NONBLOCK
	}
	fds, err := unix.Socketpair(unix.AF_UNIX, typ, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	return fds[0], fds[1]
}

func newReactor(t *testing.T, sink api.Sink) *reactor.Reactor {
	t.Helper()
	r, err := reactor.New(16, sink)
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func runAsync(ctx context.Context, r *reactor.Reactor, h reactor.Handler) <-chan error {
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, h) }()
	return done
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func drainFD(fd int) string {
	var out []byte
	buf := make([]byte, 64)
	for {
		n, err := unix.Read(fd, buf)
		if n <= 0 || err != nil {
			return string(out)
		}
		out = append(out, buf[:n]...)
	}
}

func TestShutdownBeforeRun(t *testing.T) {
	r := newReactor(t, nil)
	r.Shutdown()
	waitDone(t, runAsync(nil, r, funcHandler{}))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	r := newReactor(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, r, funcHandler{})
	select {
	case <-done:
		t.Fatal("Run returned while idle")
	case <-time.After(50 * time.Millisecond):
	}
	cancel()
	waitDone(t, done)
}

func TestDispatchReadable(t *testing.T) {
	r := newReactor(t, nil)
	a, b := socketpair(t, true)
	defer unix.Close(b)
	h, err := r.Register(a, reactor.RoleConn, netip.AddrPort{})
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d", r.Len())
	}
	if _, err := unix.Write(b, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	var got []string
	done := runAsync(nil, r, funcHandler{read: func(c *reactor.Conn) {
		if c.Handle != h {
			t.Errorf("dispatched handle %v, want %v", c.Handle, h)
		}
		got = append(got, drainFD(c.FD))
		r.Shutdown()
	}})
	waitDone(t, done)
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("reads = %q", got)
	}
}

func TestRegisterRejectsBlockingDescriptor(t *testing.T) {
	r := newReactor(t, nil)
	a, b := socketpair(t, false)
	defer unix.Close(a)
	defer unix.Close(b)
	_, err := r.Register(a, reactor.RoleConn, netip.AddrPort{})
	if !errors.Is(err, api.ErrBlockingFD) {
		t.Fatalf("err = %v", err)
	}
	var ae *api.Error
	if !errors.As(err, &ae) || ae.Code != api.ErrCodeRegister {
		t.Fatalf("err = %#v", err)
	}
}

func TestRegisterTwice(t *testing.T) {
	r := newReactor(t, nil)
	a, b := socketpair(t, true)
	defer unix.Close(b)
	if _, err := r.Register(a, reactor.RoleConn, netip.AddrPort{}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Register(a, reactor.RoleConn, netip.AddrPort{}); !errors.Is(err, api.ErrAlreadyRegistered) {
		t.Fatalf("err = %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d", r.Len())
	}
}

func TestHangupClosesOnlyThatConn(t *testing.T) {
	sink := &fake.Sink{}
	r := newReactor(t, sink)
	a, b := socketpair(t, true)
	c, d := socketpair(t, true)
	defer unix.Close(d)
	ha, _ := r.Register(a, reactor.RoleConn, netip.AddrPort{})
	hc, _ := r.Register(c, reactor.RoleConn, netip.AddrPort{})
	unix.Close(b)

	var reads int
	done := runAsync(nil, r, funcHandler{read: func(*reactor.Conn) { reads++ }})
	ok := sink.WaitFor(5*time.Second, func(evs []fake.Event) bool {
		for _, ev := range evs {
			if ev.Kind == fake.KindClosed {
				return true
			}
		}
		return false
	})
	r.Shutdown()
	waitDone(t, done)
	if !ok {
		t.Fatal("hangup did not close the connection")
	}
	if _, live := r.Lookup(ha); live {
		t.Error("hung-up connection still registered")
	}
	if _, live := r.Lookup(hc); !live {
		t.Error("unrelated connection was closed")
	}
	errs := sink.Filter(fake.KindError)
	if len(errs) != 1 || errs[0].Op != "epoll" || errs[0].Conn.ID != ha.ID() {
		t.Fatalf("errors = %+v", errs)
	}
	if reads != 0 {
		t.Errorf("abnormal event was dispatched to the reader %d times", reads)
	}
}

func TestStaleEventNotDispatchedToReusedDescriptor(t *testing.T) {
	r := newReactor(t, nil)
	a, a2 := socketpair(t, true)
	b, b2 := socketpair(t, true)
	defer unix.Close(a2)
	defer unix.Close(b2)
	ha, _ := r.Register(a, reactor.RoleConn, netip.AddrPort{})
	hb, _ := r.Register(b, reactor.RoleConn, netip.AddrPort{})
	unix.Write(a2, []byte("x"))
	unix.Write(b2, []byte("y"))

	var calls []reactor.Handle
	var replacement int
	done := runAsync(nil, r, funcHandler{read: func(c *reactor.Conn) {
		calls = append(calls, c.Handle)
		if len(calls) > 1 {
			return
		}
		other := hb
		if c.Handle == hb {
			other = ha
		}
		if err := r.CloseConn(other); err != nil {
			t.Errorf("CloseConn: %v", err)
		}
		// The lowest free descriptor is the one just closed.
		n, peer := socketpair(t, true)
		replacement = peer
		if _, err := r.Register(n, reactor.RoleConn, netip.AddrPort{}); err != nil {
			t.Errorf("Register: %v", err)
		}
		drainFD(c.FD)
		r.Shutdown()
	}})
	waitDone(t, done)
	defer unix.Close(replacement)
	if len(calls) != 1 {
		t.Fatalf("dispatched %d events, want 1: %v", len(calls), calls)
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	r, err := reactor.New(0, nil)
	if err != nil {
		t.Fatal(err)
	}
	a, b := socketpair(t, true)
	defer unix.Close(b)
	if _, err := r.Register(a, reactor.RoleConn, netip.AddrPort{}); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := unix.FcntlInt(uintptr(a), unix.F_GETFD, 0); err == nil {
		t.Error("registered descriptor left open")
	}
	if _, err := r.Register(b, reactor.RoleConn, netip.AddrPort{}); !errors.Is(err, api.ErrReactorClosed) {
		t.Errorf("register after close: %v", err)
	}
	if err := r.Run(nil, funcHandler{}); !errors.Is(err, api.ErrReactorClosed) {
		t.Errorf("run after close: %v", err)
	}
}
