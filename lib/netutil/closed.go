// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil classifies connection errors for the daemon's
// liveness probing. The connection handler periodically writes a bare
// newline to its hook client; the write failing with one of the
// expected teardown errors is the disconnect signal.
package netutil

import (
	"errors"
	"io"
	"net"

	"golang.org/x/sys/unix"
)

// IsDisconnect reports whether err indicates the peer has gone away:
// EOF, a closed connection, broken pipe, or connection reset. A hook
// client that exits (or is killed by its agent) produces EPIPE or
// ECONNRESET on the daemon's next probe write; all four forms mean the
// same thing and none of them deserves an error-level log line.
func IsDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno == unix.EPIPE || errno == unix.ECONNRESET
	}
	return false
}
