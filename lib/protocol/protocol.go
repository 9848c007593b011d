// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Message type discriminators. Every payload on the socket is a single
// JSON object with a "type" field followed by a newline.
const (
	TypePermissionRequest  = "permission_request"
	TypePermissionResponse = "permission_response"
	TypeNotification       = "notification"
	TypeStop               = "stop"
	TypeStopHook           = "stop_hook"
)

// Status is the outcome field of a PermissionResponse.
type Status string

const (
	// StatusOK carries a chosen permission option or ask answers.
	StatusOK Status = "ok"

	// StatusNoDevice means no panel is attached; the hook client
	// falls through to its terminal prompt.
	StatusNoDevice Status = "no_device"

	// StatusError covers cancellation, supersession, disconnect, and
	// timeout; ErrorMessage says which.
	StatusError Status = "error"

	// StatusFallback means the request kind cannot be decided on the
	// panel and a key press acknowledged it.
	StatusFallback Status = "fallback"

	// StatusOpen means the user asked to jump to the originating
	// terminal instead of answering on the panel.
	StatusOpen Status = "open"
)

// PermissionChoice is one option the user can take for a permission
// request. Choices arrive from the hook client and are echoed back
// verbatim in the response.
type PermissionChoice struct {
	// Label is the text shown on the key.
	Label string `json:"label"`

	// Behavior is "allow" or "deny".
	Behavior string `json:"behavior"`

	// UpdatedPermissions, when non-empty, marks this as an "always"
	// choice: selecting it persists a permission rule on the agent
	// side. The daemon treats the contents as opaque.
	UpdatedPermissions []json.RawMessage `json:"updated_permissions"`

	// Message is optional explanatory text for deny choices.
	Message string `json:"message"`
}

// PermissionRequest is sent from a hook client to the daemon when an
// agent needs a tool decision or wants to ask the user a question.
type PermissionRequest struct {
	// ToolName is the agent tool being invoked (Bash, Write, ...).
	// AskUserQuestion requests carry their pages in ToolInput.
	ToolName string `json:"tool_name"`

	// ToolInput is the tool's input object. The daemon reads only a
	// few well-known keys (command, file_path, questions) and never
	// imposes a schema — upstream tool schemas are not ours.
	ToolInput map[string]any `json:"tool_input"`

	// Choices are the options to offer on the panel.
	Choices []PermissionChoice `json:"choices"`

	// RawHookInput is the original hook payload, passed through
	// opaquely for the hook client's own response assembly.
	RawHookInput json.RawMessage `json:"raw_hook_input,omitempty"`

	// ClientPID identifies the originating agent process. Requests
	// from the same PID are grouped for supersede/purge decisions.
	ClientPID int `json:"client_pid"`

	Type string `json:"type"`
}

// PermissionResponse is the daemon's reply to a PermissionRequest.
type PermissionResponse struct {
	Status Status `json:"status"`

	// Chosen is the selected choice for StatusOK permission results.
	Chosen *PermissionChoice `json:"chosen"`

	// ErrorMessage describes StatusError outcomes.
	ErrorMessage string `json:"error_message,omitempty"`

	// AskAnswers maps question text to the chosen label(s) for
	// resolved AskUserQuestion requests. Multi-select answers are
	// joined with ", ".
	AskAnswers map[string]string `json:"ask_answers,omitempty"`

	Type string `json:"type"`
}

// NotificationMessage is a fire-and-forget, low-priority display
// request. No reply is sent.
type NotificationMessage struct {
	// NotificationType categorizes the notification (idle_prompt,
	// auth_success, stop, ...) for settings-based filtering.
	NotificationType string `json:"notification_type"`

	Message string `json:"message"`
	Title   string `json:"title"`

	// ClientPID identifies the originating agent. A notification is
	// also a staleness signal: connected items from the same PID are
	// purged on arrival.
	ClientPID int `json:"client_pid"`

	Type string `json:"type"`
}

// StopHook is the end-of-turn control message. The daemon purges the
// sender's connected items and optionally shows a "Done" notification.
type StopHook struct {
	ClientPID int    `json:"client_pid"`
	Type      string `json:"type"`
}

// Envelope is the minimal decode used to pick a message's type before
// full decoding.
type Envelope struct {
	Type string `json:"type"`
}

// Encode serializes msg as one newline-terminated JSON object.
func Encode(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", msg, err)
	}
	return append(data, '\n'), nil
}

// DecodeEnvelope extracts the type discriminator from a raw payload.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(bytes.TrimSpace(data), &envelope); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	return envelope, nil
}

// DecodeRequest parses a permission_request payload.
func DecodeRequest(data []byte) (*PermissionRequest, error) {
	request := &PermissionRequest{Type: TypePermissionRequest}
	if err := json.Unmarshal(bytes.TrimSpace(data), request); err != nil {
		return nil, fmt.Errorf("decoding permission request: %w", err)
	}
	return request, nil
}

// DecodeNotification parses a notification payload.
func DecodeNotification(data []byte) (*NotificationMessage, error) {
	notification := &NotificationMessage{Type: TypeNotification}
	if err := json.Unmarshal(bytes.TrimSpace(data), notification); err != nil {
		return nil, fmt.Errorf("decoding notification: %w", err)
	}
	return notification, nil
}

// DecodeResponse parses a permission_response payload. Hook clients
// use this on the daemon's reply.
func DecodeResponse(data []byte) (*PermissionResponse, error) {
	response := &PermissionResponse{Type: TypePermissionResponse}
	if err := json.Unmarshal(bytes.TrimSpace(data), response); err != nil {
		return nil, fmt.Errorf("decoding permission response: %w", err)
	}
	return response, nil
}

// DecodeStopHook parses a stop_hook control payload.
func DecodeStopHook(data []byte) (*StopHook, error) {
	stopHook := &StopHook{Type: TypeStopHook}
	if err := json.Unmarshal(bytes.TrimSpace(data), stopHook); err != nil {
		return nil, fmt.Errorf("decoding stop_hook: %w", err)
	}
	return stopHook, nil
}

// IsAlways reports whether the choice persists a permission rule when
// selected ("always allow" style options).
func (c *PermissionChoice) IsAlways() bool {
	return len(c.UpdatedPermissions) > 0
}
