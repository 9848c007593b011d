// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deckhand-io/deckhand/lib/protocol"
)

func TestBuildRequestPermission(t *testing.T) {
	input := &HookInput{
		HookEventName: "PreToolUse",
		ToolName:      "Bash",
		ToolInput:     map[string]any{"command": "git push"},
		PermissionSuggestions: []json.RawMessage{
			json.RawMessage(`{"rule":"Bash(git push:*)"}`),
			json.RawMessage(`{"rule":"Bash(*)"}`),
		},
	}
	request := BuildRequest(input, nil, 42)

	if request.ToolName != "Bash" || request.ClientPID != 42 {
		t.Errorf("request = %+v", request)
	}
	if len(request.Choices) != 3 {
		t.Fatalf("choices = %d, want 3", len(request.Choices))
	}
	if request.Choices[0].Label != "Allow" || request.Choices[1].Label != "Deny" {
		t.Errorf("choice labels = %q, %q", request.Choices[0].Label, request.Choices[1].Label)
	}
	always := request.Choices[2]
	if !always.IsAlways() {
		t.Error("third choice should carry updated permissions")
	}
	// Only the first suggestion is offered.
	if len(always.UpdatedPermissions) != 1 {
		t.Errorf("updated permissions = %d, want 1", len(always.UpdatedPermissions))
	}
}

func TestBuildRequestNoSuggestions(t *testing.T) {
	input := &HookInput{ToolName: "Bash", ToolInput: map[string]any{"command": "ls"}}
	request := BuildRequest(input, nil, 42)
	if len(request.Choices) != 2 {
		t.Errorf("choices = %d, want 2 without suggestions", len(request.Choices))
	}
}

func TestBuildRequestAskUserQuestion(t *testing.T) {
	input := &HookInput{
		ToolName:  "AskUserQuestion",
		ToolInput: map[string]any{"questions": []any{map[string]any{"question": "Which?"}}},
	}
	request := BuildRequest(input, nil, 42)
	if len(request.Choices) != 0 {
		t.Errorf("ask request should carry no choices, got %d", len(request.Choices))
	}
}

func TestBuildHookOutputDeny(t *testing.T) {
	output, err := BuildHookOutput(&protocol.PermissionChoice{
		Label:    "Deny",
		Behavior: "deny",
		Message:  "Denied via panel",
	})
	if err != nil {
		t.Fatal(err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(output, &parsed); err != nil {
		t.Fatal(err)
	}
	decision := parsed["hookSpecificOutput"].(map[string]any)["decision"].(map[string]any)
	if decision["behavior"] != "deny" || decision["message"] != "Denied via panel" {
		t.Errorf("decision = %v", decision)
	}
	if _, ok := decision["updatedPermissions"]; ok {
		t.Error("deny decision should not carry updatedPermissions")
	}
}

func TestBuildHookOutputAlways(t *testing.T) {
	output, err := BuildHookOutput(&protocol.PermissionChoice{
		Label:              "Always",
		Behavior:           "allow",
		UpdatedPermissions: []json.RawMessage{json.RawMessage(`{"rule":"Bash(ls:*)"}`)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(output), `"updatedPermissions"`) {
		t.Errorf("output = %s, want updatedPermissions", output)
	}
}

func TestBuildAskOutputPassesQuestionsThrough(t *testing.T) {
	questions := []any{map[string]any{"question": "Which env?", "options": []any{"dev", "prod"}}}
	input := &HookInput{
		ToolName:  "AskUserQuestion",
		ToolInput: map[string]any{"questions": questions},
	}
	output, err := BuildAskOutput(input, map[string]string{"Which env?": "prod"})
	if err != nil {
		t.Fatal(err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(output, &parsed); err != nil {
		t.Fatal(err)
	}
	decision := parsed["hookSpecificOutput"].(map[string]any)["decision"].(map[string]any)
	if decision["behavior"] != "allow" {
		t.Errorf("behavior = %v, want allow", decision["behavior"])
	}
	updated := decision["updatedInput"].(map[string]any)
	if updated["answers"].(map[string]any)["Which env?"] != "prod" {
		t.Errorf("answers = %v", updated["answers"])
	}
	if len(updated["questions"].([]any)) != 1 {
		t.Errorf("questions did not pass through: %v", updated["questions"])
	}
}

// fakeDaemon accepts one connection, reads the request, writes a few
// probe newlines, then the response.
func fakeDaemon(t *testing.T, socketPath string, response *protocol.PermissionResponse) {
	t.Helper()
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		if _, err := bufio.NewReader(conn).ReadString('\n'); err != nil {
			return
		}
		conn.Write([]byte("\n\n"))
		payload, err := protocol.Encode(response)
		if err != nil {
			return
		}
		conn.Write(payload)
	}()
}

func TestCommunicateSkipsProbes(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "deckhand.sock")
	fakeDaemon(t, socketPath, &protocol.PermissionResponse{
		Status: protocol.StatusOK,
		Chosen: &protocol.PermissionChoice{Label: "Allow", Behavior: "allow"},
		Type:   protocol.TypePermissionResponse,
	})

	client := NewClient(slog.New(slog.NewTextHandler(io.Discard, nil)), socketPath, time.Minute)
	conn := client.Connect()
	if conn == nil {
		t.Fatal("Connect failed against a live socket")
	}
	defer conn.Close()

	input := &HookInput{ToolName: "Bash", ToolInput: map[string]any{"command": "ls"}}
	response, err := client.Communicate(conn, BuildRequest(input, nil, 42))
	if err != nil {
		t.Fatalf("Communicate: %v", err)
	}
	if response.Status != protocol.StatusOK || response.Chosen == nil || response.Chosen.Label != "Allow" {
		t.Errorf("response = %+v", response)
	}
}

func TestConnectAutoStartsDaemon(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "deckhand.sock")

	started := false
	client := NewClient(slog.New(slog.NewTextHandler(io.Discard, nil)), socketPath, time.Minute)
	client.startDaemon = func() error {
		started = true
		// The "daemon" comes up after a short delay.
		go func() {
			time.Sleep(50 * time.Millisecond)
			listener, err := net.Listen("unix", socketPath)
			if err != nil {
				return
			}
			defer listener.Close()
			if conn, err := listener.Accept(); err == nil {
				conn.Close()
			}
		}()
		return nil
	}

	conn := client.Connect()
	if conn == nil {
		t.Fatal("Connect should succeed once the daemon comes up")
	}
	conn.Close()
	if !started {
		t.Error("auto-start hook never ran")
	}
}

func TestConnectGivesUpWithoutDaemon(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "deckhand.sock")
	client := NewClient(slog.New(slog.NewTextHandler(io.Discard, nil)), socketPath, time.Minute)
	client.startDaemon = nil

	if conn := client.Connect(); conn != nil {
		conn.Close()
		t.Error("Connect should fail with no daemon and no auto-start")
	}
}
