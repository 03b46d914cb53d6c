//go:build linux

package tcp_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/momentics/etlisten/api"
	"github.com/momentics/etlisten/transport/tcp"
	"golang.org/x/sys/unix"
)

func listenLoopback(t *testing.T) *tcp.Listener {
	t.Helper()
	ln, err := tcp.Listen("127.0.0.1", "0", 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	return ln
}

func TestListenLoopback(t *testing.T) {
	ln := listenLoopback(t)
	defer ln.Close()
	if ln.Addr().Port() == 0 {
		t.Error("kernel port not reported")
	}
	if got := ln.Addr().Addr().String(); got != "127.0.0.1" {
		t.Errorf("addr = %s", got)
	}
	if ln.Backlog() != unix.SOMAXCONN {
		t.Errorf("backlog = %d, want SOMAXCONN", ln.Backlog())
	}
	flags, err := unix.FcntlInt(uintptr(ln.FD()), unix.F_GETFL, 0)
	if err != nil {
		t.Fatal(err)
	}
	if flags&unix.O_NONBLOCK == 0 {
		t.Error("listener is blocking")
	}
}

func TestListenExplicitBacklog(t *testing.T) {
	ln, err := tcp.Listen("", "0", 16)
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	if ln.Backlog() != 16 {
		t.Errorf("backlog = %d", ln.Backlog())
	}
	if !ln.Addr().Addr().IsUnspecified() {
		t.Errorf("empty host bound to %s", ln.Addr())
	}
}

func TestListenSetupErrors(t *testing.T) {
	taken := listenLoopback(t)
	defer taken.Close()

	cases := []struct {
		name string
		port string
		step string
	}{
		{"bad port", "not-a-port-xyz", "resolve"},
		{"out of range", "70000", "resolve"},
		{"in use", strconv.Itoa(int(taken.Addr().Port())), "bind"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ln, err := tcp.Listen("127.0.0.1", c.port, 0)
			if err == nil {
				ln.Close()
				t.Fatal("expected failure")
			}
			var se *api.SetupError
			if !errors.As(err, &se) {
				t.Fatalf("err = %T %v", err, err)
			}
			if se.Step != c.step {
				t.Errorf("step = %q, want %q", se.Step, c.step)
			}
		})
	}
}
