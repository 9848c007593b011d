// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package risk

import (
	"regexp"

	"github.com/deckhand-io/deckhand/lib/settings"
)

// Level is a risk classification for a tool invocation.
type Level string

const (
	Low      Level = "low"
	Medium   Level = "medium"
	High     Level = "high"
	Critical Level = "critical"
)

// Levels lists all levels from least to most severe.
var Levels = []Level{Low, Medium, High, Critical}

var order = map[Level]int{Low: 0, Medium: 1, High: 2, Critical: 3}

// Max returns the more severe of two levels.
func Max(a, b Level) Level {
	if order[a] >= order[b] {
		return a
	}
	return b
}

// Valid reports whether s names a known level.
func Valid(s string) bool {
	_, ok := order[Level(s)]
	return ok
}

// ColorPair is a header background/foreground pair for a risk level.
type ColorPair struct {
	Background string
	Foreground string
}

// defaultRiskColors maps each level to its header colors.
var defaultRiskColors = map[Level]ColorPair{
	Critical: {"#800000", "#FFFFFF"},
	High:     {"#604000", "#FFD080"},
	Medium:   {"#203050", "#80C0FF"},
	Low:      {"#101010", "#808080"},
}

// defaultInstancePalette holds the body background colors used to tell
// agent instances apart, assigned by first-seen PID order.
var defaultInstancePalette = []string{
	"#0A0A20", // dark navy
	"#0A200A", // dark green
	"#200A0A", // dark maroon
	"#1A1A0A", // dark khaki
	"#150A20", // dark purple
}

const defaultBodyTextColor = "white"

// defaultToolRisk maps tool names to a level or "evaluate" (classify
// by command content).
var defaultToolRisk = map[string]string{
	"Bash":      "evaluate",
	"Write":     "high",
	"Edit":      "medium",
	"WebFetch":  "medium",
	"WebSearch": "low",
	"Task":      "low",
}

const defaultToolRiskFallback = Medium

// Rule is a compiled classification pattern plus its source text, so a
// dry-run assessment can report which rule fired.
type Rule struct {
	Expr    string
	Pattern *regexp.Regexp
}

// Config is the effective risk configuration: built-in rules merged
// with user extensions. Immutable after Load.
type Config struct {
	RiskColors       map[Level]ColorPair
	InstancePalette  []string
	BodyTextColor    string
	ToolRisk         map[string]string
	ToolRiskFallback Level

	BashCritical []Rule
	BashHigh     []Rule
	BashLow      []Rule
	PathCritical []Rule
	PathHigh     []Rule
}

// Load builds the effective configuration from built-in defaults plus
// the user's settings. Malformed user patterns are skipped rather than
// failing the whole load.
func Load(userSettings *settings.Settings) *Config {
	if userSettings == nil {
		userSettings = settings.Default()
	}

	config := &Config{
		RiskColors:       make(map[Level]ColorPair, len(defaultRiskColors)),
		InstancePalette:  defaultInstancePalette,
		BodyTextColor:    defaultBodyTextColor,
		ToolRisk:         make(map[string]string, len(defaultToolRisk)),
		ToolRiskFallback: defaultToolRiskFallback,
	}
	for level, pair := range defaultRiskColors {
		config.RiskColors[level] = pair
	}
	for tool, level := range defaultToolRisk {
		config.ToolRisk[tool] = level
	}

	for _, level := range Levels {
		override, ok := userSettings.Colors.Risk[string(level)]
		if !ok {
			continue
		}
		pair := config.RiskColors[level]
		if override.Background != "" {
			pair.Background = override.Background
		}
		if override.Foreground != "" {
			pair.Foreground = override.Foreground
		}
		config.RiskColors[level] = pair
	}
	if len(userSettings.Colors.InstancePalette) > 0 {
		config.InstancePalette = userSettings.Colors.InstancePalette
	}
	if userSettings.Colors.BodyText != "" {
		config.BodyTextColor = userSettings.Colors.BodyText
	}

	for tool, level := range userSettings.Risk.Tools {
		if tool == "default" {
			if Valid(level) {
				config.ToolRiskFallback = Level(level)
			}
			continue
		}
		config.ToolRisk[tool] = level
	}

	config.BashCritical = compile(builtinBashCritical, userSettings.Risk.BashCritical)
	config.BashHigh = compile(builtinBashHigh, userSettings.Risk.BashHigh)
	config.BashLow = compile(builtinBashLow, userSettings.Risk.BashLow)
	config.PathCritical = compile(nil, userSettings.Risk.PathCritical)
	config.PathHigh = compile(nil, userSettings.Risk.PathHigh)

	return config
}

func compile(builtin, extra []string) []Rule {
	rules := make([]Rule, 0, len(builtin)+len(extra))
	for _, expr := range append(append([]string{}, builtin...), extra...) {
		pattern, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			continue
		}
		rules = append(rules, Rule{Expr: expr, Pattern: pattern})
	}
	return rules
}

// HeaderColors returns the header color pair for a level.
func (c *Config) HeaderColors(level Level) ColorPair {
	if pair, ok := c.RiskColors[level]; ok {
		return pair
	}
	return defaultRiskColors[Medium]
}

// PaletteColor returns the body background for an instance index.
func (c *Config) PaletteColor(index int) string {
	if len(c.InstancePalette) == 0 {
		return defaultInstancePalette[0]
	}
	return c.InstancePalette[index%len(c.InstancePalette)]
}

// Assess classifies a tool invocation.
func (c *Config) Assess(toolName string, toolInput map[string]any) Level {
	level, _ := c.AssessVerbose(toolName, toolInput)
	return level
}

// AssessVerbose classifies a tool invocation and reports the rule that
// decided it ("" when the default applied).
func (c *Config) AssessVerbose(toolName string, toolInput map[string]any) (Level, string) {
	toolSetting, ok := c.ToolRisk[toolName]
	if !ok && len(toolName) > 5 && toolName[:5] == "mcp__" {
		// MCP tools (mcp__server__tool) share one table entry.
		toolSetting, ok = c.ToolRisk["mcp"]
	}
	if !ok {
		toolSetting = string(c.ToolRiskFallback)
	}

	if toolSetting == "evaluate" {
		command, _ := toolInput["command"].(string)
		return c.assessCommand(command)
	}

	base := c.ToolRiskFallback
	if Valid(toolSetting) {
		base = Level(toolSetting)
	}

	if toolName == "Write" || toolName == "Edit" {
		if filePath, _ := toolInput["file_path"].(string); filePath != "" {
			if matchedRule, rule := matchFirst(c.PathCritical, filePath); matchedRule {
				return Max(base, Critical), rule
			}
			if matchedRule, rule := matchFirst(c.PathHigh, filePath); matchedRule {
				return Max(base, High), rule
			}
		}
	}
	return base, ""
}

// assessCommand pattern-matches a shell command string. Critical rules
// win over everything; explicit low (safe) rules win over high, so a
// benign `git status` is not flagged by the broad high-level nets.
func (c *Config) assessCommand(command string) (Level, string) {
	if matchedRule, rule := matchFirst(c.BashCritical, command); matchedRule {
		return Critical, rule
	}
	if matchedRule, rule := matchFirst(c.BashLow, command); matchedRule {
		return Low, rule
	}
	if matchedRule, rule := matchFirst(c.BashHigh, command); matchedRule {
		return High, rule
	}
	return Medium, ""
}

func matchFirst(rules []Rule, value string) (bool, string) {
	for _, rule := range rules {
		if rule.Pattern.MatchString(value) {
			return true, rule.Expr
		}
	}
	return false, ""
}
