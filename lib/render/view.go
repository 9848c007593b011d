// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"github.com/deckhand-io/deckhand/lib/protocol"
)

// Choice button strip colors. The Always toggle has an off (armed but
// inactive) and an on state; while it is on, the Allow button adopts
// the on color to show that allowing will also persist the rule.
const (
	choiceAllowBG     = "#005000"
	choiceDenyBG      = "#800000"
	choiceAlwaysOffBG = "#000040"
	choiceAlwaysOnBG  = "#0050D0"
)

// openButtonLabel marks the key that jumps focus to the requesting
// agent's terminal.
const openButtonLabel = "Go CC"

// choiceAppearance returns the label strip colors for a choice button.
func choiceAppearance(choice protocol.PermissionChoice, alwaysActive bool) (bg, fg string) {
	if choice.IsAlways() {
		if alwaysActive {
			return choiceAlwaysOnBG, "#FFFFFF"
		}
		return choiceAlwaysOffBG, "#808080"
	}
	if choice.Behavior == "deny" {
		return choiceDenyBG, "#FFFFFF"
	}
	if alwaysActive {
		return choiceAlwaysOnBG, "#FFFFFF"
	}
	return choiceAllowBG, "#FFFFFF"
}

// Colors carries the per-item color scheme computed at classification
// time: instance body background plus risk-derived header colors.
type Colors struct {
	Background string
	HeaderBG   string
	HeaderFG   string
	BodyFG     string
}

// PermissionView is everything needed to draw a permission request.
type PermissionView struct {
	ToolName     string
	Content      string
	Choices      []protocol.PermissionChoice
	AlwaysActive bool
	Colors       Colors
	Dimmed       bool
	OpenKey      int // -1 when the open button is disabled
}

// AskView is one page of the question wizard.
type AskView struct {
	Header      string // question header, plus "page/total" on multi-page sessions
	Question    string
	Options     []protocol.QuestionOption
	Selected    map[string]bool // option labels selected on this page
	ConfirmPage bool
	CancelLabel string // "Cancel", "Back", or the open button label
	SubmitLabel string // "Submit" or "Next"
	Colors      Colors
	Dimmed      bool
}

// FallbackView is the minimal "answer in the terminal" screen shown
// for tools the panel cannot usefully arbitrate.
type FallbackView struct {
	ToolName string
	Colors   Colors
	Dimmed   bool
	OpenKey  int
}

// NotificationView is a dismissable notice.
type NotificationView struct {
	Title   string
	Message string
	Colors  Colors
	Dimmed  bool
	OpenKey int
}
