// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp holds the raw-socket side of the listener: creating the
// non-blocking listening socket, draining its accept queue into the reactor,
// and draining readable connections in fixed-size chunks.
//
// Acceptor and Reader both sit on top of drain.Until, so each readiness
// notification is followed by non-blocking calls until EAGAIN.
package tcp
