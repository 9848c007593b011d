// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the newline-delimited JSON messages spoken
// on the daemon's Unix socket. Both cmd/deckhand-daemon and
// cmd/deckhand-hook import this package so the wire types are defined
// once rather than mirrored.
//
// Every payload is exactly one UTF-8 JSON object terminated by '\n'.
// The "type" field discriminates: permission_request, notification,
// permission_response, and the control objects {"type":"stop"} and
// {"type":"stop_hook","client_pid":N}. Unknown fields are ignored on
// decode for forward compatibility.
package protocol
