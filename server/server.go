//go:build linux

// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/momentics/etlisten/api"
	"github.com/momentics/etlisten/control"
	"github.com/momentics/etlisten/reactor"
	"github.com/momentics/etlisten/transport/tcp"
)

// New performs every setup step: listening socket, epoll instance and
// listener registration. Any failure is an *api.SetupError and leaves no
// descriptor open.
func New(cfg *control.Config, port string, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, &api.SetupError{Step: "config", Err: err}
	}
	s := &Server{cfg: cfg}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = control.NewMetricsRegistry()
	}
	if s.probes == nil {
		s.probes = control.NewDebugProbes()
	}
	sink := control.NewMetricsSink(s.metrics, s.sink)

	ln, err := tcp.Listen(cfg.Host, port, cfg.Backlog)
	if err != nil {
		return nil, err
	}
	r, err := reactor.New(cfg.MaxEvents, sink)
	if err != nil {
		ln.Close()
		return nil, err
	}
	h, err := r.Register(ln.FD(), reactor.RoleListener, ln.Addr())
	if err != nil {
		r.Close()
		ln.Close()
		return nil, &api.SetupError{Step: "epoll_ctl", Err: err}
	}

	s.listener = ln
	s.reactor = r
	s.lnHandle = h
	s.acceptor = tcp.NewAcceptor(ln, r, sink)
	s.reader = tcp.NewReader(cfg.ChunkSize, r, sink)
	s.registerProbes()
	return s, nil
}

func (s *Server) registerProbes() {
	s.probes.RegisterProbe("reactor.conns", func() any { return s.reactor.Len() })
	s.probes.RegisterProbe("listener", func() any { return s.listener.String() })
	s.probes.RegisterProbe("config", func() any { return s.cfg.Snapshot() })
}

// Addr returns the bound listening address.
func (s *Server) Addr() netip.AddrPort { return s.listener.Addr() }

// Serve runs the event loop until ctx is done or Shutdown is called.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.reactor.Run(ctx, s); err != nil {
		return fmt.Errorf("serve %s: %w", s.listener.Addr(), err)
	}
	return nil
}

// OnAcceptable implements reactor.Handler.
func (s *Server) OnAcceptable(*reactor.Conn) { s.acceptor.Drain() }

// OnReadable implements reactor.Handler.
func (s *Server) OnReadable(c *reactor.Conn) { s.reader.Drain(c) }

// Listening reports whether the listener is still registered. An error or
// hangup on the listening socket closes it; open connections keep being
// served.
func (s *Server) Listening() bool {
	_, ok := s.reactor.Lookup(s.lnHandle)
	return ok
}

// Shutdown stops Serve. Safe from any goroutine.
func (s *Server) Shutdown() { s.reactor.Shutdown() }

// Close releases every descriptor, including the listener. Serve must have
// returned.
func (s *Server) Close() error { return s.reactor.Close() }

// Metrics returns a metrics snapshot including the active connection gauge.
// Call it from the loop goroutine or after Serve returned.
func (s *Server) Metrics() map[string]any {
	s.metrics.Set(control.MetricActive, int64(s.reactor.Len()))
	return s.metrics.GetSnapshot()
}

// Probes returns the debug probe registry.
func (s *Server) Probes() *control.DebugProbes { return s.probes }

// DumpState evaluates all debug probes.
func (s *Server) DumpState() map[string]any { return s.probes.DumpState() }

// RegisterProbe adds a debug probe.
func (s *Server) RegisterProbe(name string, fn func() any) { s.probes.RegisterProbe(name, fn) }

var (
	_ reactor.Handler = (*Server)(nil)
	_ api.Debug       = (*Server)(nil)
)
