// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

// Package risk classifies tool invocations into severity levels that
// drive the panel's header colors. Bash commands are pattern-matched
// against built-in plus user-supplied rule tables; other tools map
// through a per-tool table, with path-based elevation for Write/Edit.
// The package also assigns per-instance body colors by first-seen PID
// order so concurrent agents are visually distinct.
package risk
