// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

// Package settings loads the user configuration file.
//
// The file lives at $XDG_CONFIG_HOME/deckhand/config.yaml (or
// config.jsonc for JSON-with-comments). There is no discovery chain
// beyond that single path and no environment variable overrides. A
// missing file means defaults; a malformed file means defaults too,
// with the parse error reported so the daemon can log it — a broken
// config must never keep permission prompts from reaching the panel.
package settings
