// File: internal/drain/drain.go
// Author: momentics <momentics@gmail.com>
//
// Package drain implements the exhaustion loop required by edge-triggered
// readiness. An edge-triggered descriptor is reported once per readiness
// change, so whoever handles the notification must repeat the non-blocking
// operation until the kernel answers EAGAIN. Stopping earlier leaves work
// behind that no further wakeup will announce.
package drain

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Op performs one non-blocking step. It returns nil when the step made
// progress, a would-block error when the resource is exhausted, or any other
// error to abort the drain.
type Op func() error

// Until calls op until it reports would-block or fails.
//
// It returns the number of calls that made progress. err is nil when the
// resource was exhausted; otherwise it is the error op returned. EINTR is
// retried transparently.
func Until(op Op) (n int, err error) {
	for {
		err = op()
		switch {
		case err == nil:
			n++
		case errors.Is(err, unix.EINTR):
		case IsWouldBlock(err):
			return n, nil
		default:
			return n, err
		}
	}
}

// IsWouldBlock reports whether err means the operation would have blocked.
func IsWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}
