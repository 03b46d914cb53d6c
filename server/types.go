//go:build linux

// Package server drives the listener: it performs the setup steps, runs the
// reactor and routes readiness to the acceptor or the reader.
package server

import (
	"github.com/momentics/etlisten/api"
	"github.com/momentics/etlisten/control"
	"github.com/momentics/etlisten/reactor"
	"github.com/momentics/etlisten/transport/tcp"
)

// Server wires one listener, one reactor and the acceptor/reader pair that
// the reactor dispatches to.
type Server struct {
	cfg      *control.Config
	sink     api.Sink
	metrics  *control.MetricsRegistry
	probes   *control.DebugProbes
	listener *tcp.Listener
	reactor  *reactor.Reactor
	acceptor *tcp.Acceptor
	reader   *tcp.Reader
	lnHandle reactor.Handle
}
