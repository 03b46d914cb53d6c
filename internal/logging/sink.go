// File: internal/logging/sink.go
// Author: momentics <momentics@gmail.com>

package logging

import (
	"github.com/momentics/etlisten/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sink logs reactor events: connection lifecycle and received chunks at
// info, failures at error.
type Sink struct {
	log *zap.Logger
}

// NewSink returns a Sink writing to log.
func NewSink(log *zap.Logger) *Sink {
	return &Sink{log: log}
}

func connFields(c api.ConnInfo, extra ...zap.Field) []zap.Field {
	fields := make([]zap.Field, 0, 4+len(extra))
	if c.Peer.IsValid() {
		fields = append(fields,
			zap.String("host", c.Peer.Addr().String()),
			zap.Uint16("port", c.Peer.Port()))
	}
	fields = append(fields, zap.Int("fd", c.FD))
	if c.ID != 0 {
		fields = append(fields, zap.Uint64("conn", c.ID))
	}
	return append(fields, extra...)
}

func (s *Sink) Accepted(c api.ConnInfo) {
	s.log.Info("accepted connection", connFields(c)...)
}

// Received logs the chunk by its exact length. The payload is copied into
// the entry, so the caller may reuse chunk afterwards.
func (s *Sink) Received(c api.ConnInfo, chunk []byte) {
	if ce := s.log.Check(zapcore.InfoLevel, "incoming data"); ce != nil {
		ce.Write(connFields(c,
			zap.Int("bytes", len(chunk)),
			zap.String("data", string(chunk)))...)
	}
}

func (s *Sink) Closed(c api.ConnInfo) {
	s.log.Info("closed connection", connFields(c)...)
}

func (s *Sink) Error(op string, c api.ConnInfo, err error) {
	s.log.Error(op+" error", connFields(c, zap.Error(err))...)
}
