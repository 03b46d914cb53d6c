//go:build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"errors"
	"io"

	"github.com/momentics/etlisten/api"
	"github.com/momentics/etlisten/internal/drain"
	"github.com/momentics/etlisten/reactor"
	"golang.org/x/sys/unix"
)

// DefaultChunkSize is the read buffer size used when none is configured.
const DefaultChunkSize = 512

// Closer is the part of the reactor the reader needs.
type Closer interface {
	CloseConn(h reactor.Handle) error
}

// Reader drains readable connections into the sink chunk by chunk. Chunks
// are passed with their exact length; a message spanning several reads is
// reported as several ordered chunks.
type Reader struct {
	buf    []byte
	closer Closer
	sink   api.Sink
}

// NewReader returns a Reader with a chunkSize buffer.
func NewReader(chunkSize int, closer Closer, sink api.Sink) *Reader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if sink == nil {
		sink = api.NopSink{}
	}
	return &Reader{buf: make([]byte, chunkSize), closer: closer, sink: sink}
}

// ChunkSize returns the size of the read buffer.
func (r *Reader) ChunkSize() int { return len(r.buf) }

// Drain reads c until it would block. It closes the connection on EOF or a
// read error and reports whether it did.
func (r *Reader) Drain(c *reactor.Conn) (closed bool) {
	info := c.Info()
	h := c.Handle
	_, err := drain.Until(func() error {
		n, err := unix.Read(info.FD, r.buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.EOF
		}
		r.sink.Received(info, r.buf[:n])
		return nil
	})
	if err == nil {
		return false
	}
	if !errors.Is(err, io.EOF) {
		r.sink.Error("read", info, api.NewError(api.ErrCodeRead, "read", err))
	}
	if cerr := r.closer.CloseConn(h); cerr != nil {
		r.sink.Error("close", info, cerr)
	}
	r.sink.Closed(info)
	return true
}
