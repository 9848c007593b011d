// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

// deckhand-hook is the agent-side bridge to the deckhand daemon. The
// agent's hook system invokes it with a JSON payload on stdin; the
// hook forwards the request over the daemon's Unix socket, blocks
// until the user answers on the panel, and writes the hook decision
// JSON to stdout. Notification and Stop events are forwarded
// fire-and-forget.
//
// Every failure path exits zero with no output, so the agent falls
// through to its ordinary terminal prompt instead of breaking.
package main
