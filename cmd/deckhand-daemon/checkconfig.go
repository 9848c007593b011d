// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/deckhand-io/deckhand/lib/risk"
	"github.com/deckhand-io/deckhand/lib/settings"
)

// cliStyles are bound to the output writer so color degrades cleanly
// when stdout is not a terminal.
type cliStyles struct {
	heading lipgloss.Style
	faint   lipgloss.Style
	levels  map[risk.Level]lipgloss.Style
}

func newCLIStyles(w io.Writer) cliStyles {
	renderer := lipgloss.NewRenderer(w, termenv.WithColorCache(true))
	return cliStyles{
		heading: renderer.NewStyle().Bold(true),
		faint:   renderer.NewStyle().Faint(true),
		levels: map[risk.Level]lipgloss.Style{
			risk.Critical: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5050")),
			risk.High:     renderer.NewStyle().Foreground(lipgloss.Color("#FFD080")),
			risk.Medium:   renderer.NewStyle().Foreground(lipgloss.Color("#80C0FF")),
			risk.Low:      renderer.NewStyle().Foreground(lipgloss.Color("#808080")),
		},
	}
}

func (s cliStyles) level(level risk.Level) string {
	if style, ok := s.levels[level]; ok {
		return style.Render(string(level))
	}
	return string(level)
}

// runCheckConfig prints the effective risk configuration: where it
// came from, the rule counts per table, and the per-tool risk map.
func runCheckConfig(w io.Writer) error {
	styles := newCLIStyles(w)
	path := settings.DefaultPath()
	userSettings, loadErr := settings.LoadFile(path)

	fmt.Fprintln(w, styles.heading.Render("Deckhand risk configuration"))
	fmt.Fprintln(w)

	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(w, "Config file: %s %s\n", path, styles.faint.Render("(not found, using defaults)"))
	} else if loadErr != nil {
		fmt.Fprintf(w, "Config file: %s %s\n", path, styles.levels[risk.Critical].Render("(parse error, using defaults)"))
		fmt.Fprintf(w, "  %v\n", loadErr)
	} else {
		fmt.Fprintf(w, "Config file: %s\n", path)
	}
	fmt.Fprintln(w)

	builtin := risk.BuiltinCounts()
	fmt.Fprintln(w, styles.heading.Render("Command rules"))
	for _, entry := range []struct {
		level risk.Level
		extra int
	}{
		{risk.Critical, len(userSettings.Risk.BashCritical)},
		{risk.High, len(userSettings.Risk.BashHigh)},
		{risk.Low, len(userSettings.Risk.BashLow)},
	} {
		line := fmt.Sprintf("  %-10s %d built-in", styles.level(entry.level), builtin[entry.level])
		if entry.extra > 0 {
			line += fmt.Sprintf(" + %d user", entry.extra)
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, styles.heading.Render("Path elevation"))
	fmt.Fprintf(w, "  %-10s %d user pattern(s)\n", styles.level(risk.Critical), len(userSettings.Risk.PathCritical))
	fmt.Fprintf(w, "  %-10s %d user pattern(s)\n", styles.level(risk.High), len(userSettings.Risk.PathHigh))
	fmt.Fprintln(w)

	config := risk.Load(userSettings)
	fmt.Fprintln(w, styles.heading.Render("Tool risk"))
	tools := make([]string, 0, len(config.ToolRisk))
	for tool := range config.ToolRisk {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	for _, tool := range tools {
		level := config.ToolRisk[tool]
		rendered := level
		if risk.Valid(level) {
			rendered = styles.level(risk.Level(level))
		}
		fmt.Fprintf(w, "  %-14s %s\n", tool, rendered)
	}
	fmt.Fprintf(w, "  %-14s %s %s\n", "(other)", styles.level(config.ToolRiskFallback),
		styles.faint.Render("default"))
	return nil
}

// runAssess dry-runs the classifier: deckhand-daemon --assess TOOL
// [COMMAND...] [--file-path PATH].
func runAssess(w io.Writer, args []string, filePath string) error {
	if len(args) == 0 {
		return fmt.Errorf("--assess needs a tool name: --assess TOOL [COMMAND]")
	}
	styles := newCLIStyles(w)
	toolName := args[0]

	toolInput := map[string]any{}
	if len(args) > 1 {
		toolInput["command"] = strings.Join(args[1:], " ")
	}
	if filePath != "" {
		toolInput["file_path"] = filePath
	}

	userSettings, err := settings.Load()
	if err != nil {
		fmt.Fprintln(w, styles.faint.Render(fmt.Sprintf("settings unusable, using defaults: %v", err)))
	}
	config := risk.Load(userSettings)

	level, rule := config.AssessVerbose(toolName, toolInput)
	fmt.Fprintf(w, "Risk: %s\n", styles.level(level))
	if rule != "" {
		fmt.Fprintf(w, "Rule: %s\n", rule)
	} else {
		fmt.Fprintln(w, styles.faint.Render("Rule: (none, using tool table)"))
	}
	return nil
}
