// File: server/options.go
// Package server defines functional options for the Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build linux

package server

import (
	"github.com/momentics/etlisten/api"
	"github.com/momentics/etlisten/control"
)

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithSink sets where reactor events go. Metrics are counted before
// forwarding.
func WithSink(sink api.Sink) ServerOption {
	return func(s *Server) {
		s.sink = sink
	}
}

// WithMetrics shares an existing registry instead of creating one.
func WithMetrics(reg *control.MetricsRegistry) ServerOption {
	return func(s *Server) {
		s.metrics = reg
	}
}

// WithProbes shares an existing probe registry.
func WithProbes(dp *control.DebugProbes) ServerOption {
	return func(s *Server) {
		s.probes = dp
	}
}
