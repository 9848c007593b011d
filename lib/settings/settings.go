// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Settings is the parsed user configuration. All fields are optional;
// zero values fall back to the defaults baked into Default(). Loaded
// once at daemon startup and treated as immutable afterwards.
type Settings struct {
	Colors        ColorSettings        `yaml:"colors" json:"colors"`
	Risk          RiskSettings         `yaml:"risk" json:"risk"`
	Display       DisplaySettings      `yaml:"display" json:"display"`
	Notifications NotificationSettings `yaml:"notifications" json:"notifications"`
	Daemon        DaemonSettings       `yaml:"daemon" json:"daemon"`
}

// ColorSettings overrides panel colors.
type ColorSettings struct {
	// Risk maps a risk level name (critical, high, medium, low) to
	// header color overrides.
	Risk map[string]RiskColor `yaml:"risk" json:"risk"`

	// InstancePalette replaces the body background palette used to
	// tell agent instances apart.
	InstancePalette []string `yaml:"instance_palette" json:"instance_palette"`

	// BodyText overrides the body text color.
	BodyText string `yaml:"body_text" json:"body_text"`
}

// RiskColor is a header background/foreground pair.
type RiskColor struct {
	Background string `yaml:"bg" json:"bg"`
	Foreground string `yaml:"fg" json:"fg"`
}

// RiskSettings extends the built-in risk classification rules.
type RiskSettings struct {
	// Tools overrides the per-tool risk level. The value is a level
	// name or "evaluate" (classify by command content). The special
	// key "default" overrides the unknown-tool fallback.
	Tools map[string]string `yaml:"tools" json:"tools"`

	// BashCritical, BashHigh, and BashLow are regular expressions
	// appended to the built-in command pattern tables. Malformed
	// patterns are skipped.
	BashCritical []string `yaml:"bash_critical" json:"bash_critical"`
	BashHigh     []string `yaml:"bash_high" json:"bash_high"`
	BashLow      []string `yaml:"bash_low" json:"bash_low"`

	// PathCritical and PathHigh elevate Write/Edit requests whose
	// file path matches.
	PathCritical []string `yaml:"path_critical" json:"path_critical"`
	PathHigh     []string `yaml:"path_high" json:"path_high"`
}

// DisplaySettings tunes the guard debounce and the open button.
type DisplaySettings struct {
	// GuardMS is how long key presses are ignored after a display
	// switch to a permission or ask item.
	GuardMS int `yaml:"guard_ms" json:"guard_ms"`

	// MinorGuardMS is the shorter guard for fallback and
	// notification items.
	MinorGuardMS int `yaml:"minor_guard_ms" json:"minor_guard_ms"`

	// GuardDim renders the item dimmed while the guard is active.
	GuardDim *bool `yaml:"guard_dim" json:"guard_dim"`

	// OpenButton forces the terminal-focus key on or off. Unset
	// means platform default (on for darwin).
	OpenButton *bool `yaml:"open_button" json:"open_button"`
}

// NotificationSettings filters which notification categories reach
// the panel.
type NotificationSettings struct {
	// Types is an allow-list of notification_type values. Empty
	// means all types are shown.
	Types []string `yaml:"types" json:"types"`
}

// DaemonSettings tunes daemon timeouts. Durations use Go syntax
// ("24h", "10m", "1.5s").
type DaemonSettings struct {
	// HookTimeout is the ceiling on how long a connected request may
	// stay unresolved. Humans answer on human time, so the default
	// is a day.
	HookTimeout string `yaml:"hook_timeout" json:"hook_timeout"`

	// NoDeviceShutdown is how long the daemon tolerates device
	// absence before shutting itself down.
	NoDeviceShutdown string `yaml:"no_device_shutdown" json:"no_device_shutdown"`
}

// Default returns the settings used when no config file exists.
func Default() *Settings {
	dim := true
	return &Settings{
		Display: DisplaySettings{
			GuardMS:      700,
			MinorGuardMS: 250,
			GuardDim:     &dim,
		},
		Daemon: DaemonSettings{
			HookTimeout:      "24h",
			NoDeviceShutdown: "10m",
		},
	}
}

// DefaultPath returns the config file path under XDG_CONFIG_HOME,
// preferring config.yaml and falling back to config.jsonc when only
// that exists.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	directory := filepath.Join(base, "deckhand")
	yamlPath := filepath.Join(directory, "config.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}
	jsoncPath := filepath.Join(directory, "config.jsonc")
	if _, err := os.Stat(jsoncPath); err == nil {
		return jsoncPath
	}
	return yamlPath
}

// DefaultSocketPath places the daemon's control socket in the user's
// runtime directory when one exists. Daemon and hook must agree on
// this path.
func DefaultSocketPath() string {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return filepath.Join(runtimeDir, "deckhand.sock")
	}
	return "/tmp/deckhand.sock"
}

// Load reads settings from the default path. A missing file yields
// defaults with a nil error; a malformed file yields defaults plus
// the parse error so the caller can log it and keep running.
func Load() (*Settings, error) {
	path := DefaultPath()
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads settings from an explicit path. The format is chosen
// by extension: .jsonc and .json parse as JSON with comments, anything
// else as YAML.
func LoadFile(path string) (*Settings, error) {
	parsed := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return parsed, nil
		}
		return Default(), fmt.Errorf("reading settings file %s: %w", path, err)
	}

	switch filepath.Ext(path) {
	case ".jsonc", ".json":
		err = json.Unmarshal(jsonc.ToJSON(data), parsed)
	default:
		err = yaml.Unmarshal(data, parsed)
	}
	if err != nil {
		return Default(), fmt.Errorf("parsing settings file %s: %w", path, err)
	}
	return parsed, nil
}

// GuardDuration is the main key-press guard after a display switch.
func (s *Settings) GuardDuration() time.Duration {
	return time.Duration(s.Display.GuardMS) * time.Millisecond
}

// MinorGuardDuration is the guard for fallback/notification items.
func (s *Settings) MinorGuardDuration() time.Duration {
	return time.Duration(s.Display.MinorGuardMS) * time.Millisecond
}

// GuardDim reports whether items render dimmed during the guard.
func (s *Settings) GuardDim() bool {
	return s.Display.GuardDim == nil || *s.Display.GuardDim
}

// OpenButton reports whether the terminal-focus key is enabled,
// defaulting by platform when the setting is absent.
func (s *Settings) OpenButton() bool {
	if s.Display.OpenButton != nil {
		return *s.Display.OpenButton
	}
	return runtime.GOOS == "darwin"
}

// HookTimeout is the unresolved-request ceiling.
func (s *Settings) HookTimeout() time.Duration {
	return durationOrDefault(s.Daemon.HookTimeout, 24*time.Hour)
}

// NoDeviceShutdown is the device-absence shutdown threshold.
func (s *Settings) NoDeviceShutdown() time.Duration {
	return durationOrDefault(s.Daemon.NoDeviceShutdown, 10*time.Minute)
}

// NotificationEnabled reports whether a notification category passes
// the settings filter. An empty filter passes everything.
func (s *Settings) NotificationEnabled(notificationType string) bool {
	if len(s.Notifications.Types) == 0 {
		return true
	}
	return slices.Contains(s.Notifications.Types, notificationType)
}

func durationOrDefault(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
