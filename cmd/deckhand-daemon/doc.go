// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

// deckhand-daemon arbitrates a Stream Deck class panel between
// concurrent coding-agent instances. Hook clients connect over a Unix
// socket, submit permission requests, question sessions, or
// notifications, and block until the user answers on the panel or the
// request is superseded, times out, or the client goes away.
//
// Besides the server mode it offers --stop to terminate a running
// daemon, --check-config to print the effective risk configuration,
// and --assess to dry-run the risk classifier.
package main
