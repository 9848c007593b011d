// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"

	"github.com/deckhand-io/deckhand/lib/protocol"
)

// HookInput is the payload the agent pipes to this hook. ToolInput is
// kept schemaless; the daemon only reads a few well-known keys.
type HookInput struct {
	HookEventName         string            `json:"hook_event_name"`
	ToolName              string            `json:"tool_name"`
	ToolInput             map[string]any    `json:"tool_input"`
	PermissionSuggestions []json.RawMessage `json:"permission_suggestions"`

	// Notification events only.
	NotificationType string `json:"notification_type"`
	Message          string `json:"message"`
	Title            string `json:"title"`
}

// BuildRequest converts hook input into the daemon's request form.
// Question sessions carry no pre-built choices; the daemon derives its
// wizard from the questions in the tool input.
func BuildRequest(input *HookInput, raw json.RawMessage, pid int) *protocol.PermissionRequest {
	request := &protocol.PermissionRequest{
		Type:         protocol.TypePermissionRequest,
		ToolName:     input.ToolName,
		ToolInput:    input.ToolInput,
		RawHookInput: raw,
		ClientPID:    pid,
	}
	if input.ToolName == "AskUserQuestion" {
		return request
	}

	request.Choices = []protocol.PermissionChoice{
		{Label: "Allow", Behavior: "allow"},
		{Label: "Deny", Behavior: "deny", Message: "Denied via panel"},
	}
	// The first suggestion becomes the "Always" choice; further
	// suggestions do not fit a six-key panel.
	if len(input.PermissionSuggestions) > 0 {
		request.Choices = append(request.Choices, protocol.PermissionChoice{
			Label:              "Always",
			Behavior:           "allow",
			UpdatedPermissions: input.PermissionSuggestions[:1],
		})
	}
	return request
}

// hookOutput is the decision JSON the agent expects on stdout.
type hookOutput struct {
	HookSpecificOutput hookSpecificOutput `json:"hookSpecificOutput"`
}

type hookSpecificOutput struct {
	HookEventName string   `json:"hookEventName"`
	Decision      decision `json:"decision"`
}

type decision struct {
	Behavior           string            `json:"behavior"`
	UpdatedPermissions []json.RawMessage `json:"updatedPermissions,omitempty"`
	Message            string            `json:"message,omitempty"`
	UpdatedInput       *updatedInput     `json:"updatedInput,omitempty"`
}

type updatedInput struct {
	Questions any               `json:"questions"`
	Answers   map[string]string `json:"answers"`
}

// BuildHookOutput wraps a chosen permission option as hook decision
// JSON.
func BuildHookOutput(chosen *protocol.PermissionChoice) ([]byte, error) {
	d := decision{Behavior: chosen.Behavior}
	if len(chosen.UpdatedPermissions) > 0 {
		d.UpdatedPermissions = chosen.UpdatedPermissions
	}
	if chosen.Behavior == "deny" && chosen.Message != "" {
		d.Message = chosen.Message
	}
	return json.Marshal(hookOutput{
		HookSpecificOutput: hookSpecificOutput{
			HookEventName: "PermissionRequest",
			Decision:      d,
		},
	})
}

// BuildAskOutput wraps resolved question answers as an allow decision
// carrying updatedInput. The original questions pass through verbatim.
func BuildAskOutput(input *HookInput, answers map[string]string) ([]byte, error) {
	return json.Marshal(hookOutput{
		HookSpecificOutput: hookSpecificOutput{
			HookEventName: "PermissionRequest",
			Decision: decision{
				Behavior: "allow",
				UpdatedInput: &updatedInput{
					Questions: input.ToolInput["questions"],
					Answers:   answers,
				},
			},
		},
	})
}
