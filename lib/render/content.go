// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/x/ansi"
)

// maxContentCells bounds the display text pulled from tool input. The
// panel cannot show more anyway and unbounded input would make every
// render pay for it.
const maxContentCells = 200

// displayField maps tool names to the input field worth showing.
var displayField = map[string]string{
	"Bash":      "command",
	"Write":     "file_path",
	"Edit":      "file_path",
	"Read":      "file_path",
	"Glob":      "pattern",
	"Grep":      "pattern",
	"WebFetch":  "url",
	"WebSearch": "query",
}

// DisplayContent extracts the most relevant text from a tool's input
// for the panel: the tool's designated field when present, otherwise
// the first non-empty string value, otherwise a flattened dump.
// Always width-truncated to what a panel can plausibly show.
func DisplayContent(toolName string, toolInput map[string]any) string {
	if field, ok := displayField[toolName]; ok {
		if value, ok := toolInput[field]; ok {
			return truncate(fmt.Sprintf("%v", value))
		}
	}

	// Deterministic field order so the same input renders the same.
	keys := make([]string, 0, len(toolInput))
	for key := range toolInput {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if s, ok := toolInput[key].(string); ok && s != "" {
			return truncate(s)
		}
	}
	if len(toolInput) == 0 {
		return ""
	}
	return truncate(fmt.Sprintf("%v", toolInput))
}

func truncate(s string) string {
	return ansi.Truncate(s, maxContentCells, "…")
}
