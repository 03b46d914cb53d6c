// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the single-threaded, edge-triggered epoll event
// reactor and its registration table.
//
// Every descriptor is registered for EPOLLIN|EPOLLET. The epoll payload
// carries a table Handle rather than the raw descriptor, so an event that was
// queued for a connection closed earlier in the same batch cannot be
// dispatched to a newer connection that received the same descriptor number.
package reactor
