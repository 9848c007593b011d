// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/deckhand-io/deckhand/lib/focus"
	"github.com/deckhand-io/deckhand/lib/protocol"
	"github.com/deckhand-io/deckhand/lib/settings"
)

func main() {
	var (
		socketPath   string
		notification bool
		stopHook     bool
	)
	pflag.StringVar(&socketPath, "socket", settings.DefaultSocketPath(), "path of the daemon's Unix socket")
	pflag.BoolVar(&notification, "notification", false, "treat stdin as a notification event")
	pflag.BoolVar(&stopHook, "stop-hook", false, "treat stdin as a stop event")
	pflag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	// The hook must never break the agent: every failure exits zero
	// with no output so the terminal prompt takes over.
	run(logger, socketPath, notification, stopHook)
}

func run(logger *slog.Logger, socketPath string, notification, stopHook bool) {
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		logger.Warn("reading stdin failed", "error", err)
		return
	}
	var input HookInput
	if err := json.Unmarshal(raw, &input); err != nil {
		logger.Warn("parsing hook input failed", "error", err)
		return
	}

	// The agent that invoked this hook is our parent.
	pid := os.Getppid()

	userSettings, _ := settings.Load()
	if userSettings == nil {
		userSettings = settings.Default()
	}
	client := NewClient(logger, socketPath, userSettings.HookTimeout())

	switch {
	case notification || input.HookEventName == "Notification":
		client.SendNotification(&protocol.NotificationMessage{
			Type:             protocol.TypeNotification,
			NotificationType: input.NotificationType,
			Message:          input.Message,
			Title:            input.Title,
			ClientPID:        pid,
		})
		return

	case stopHook || input.HookEventName == "Stop":
		client.SendStopHook(pid)
		return
	}

	request := BuildRequest(&input, raw, pid)

	conn := client.Connect()
	if conn == nil {
		logger.Warn("no daemon reachable")
		return
	}
	defer conn.Close()

	response, err := client.Communicate(conn, request)
	if err != nil {
		logger.Warn("daemon exchange failed", "error", err)
		return
	}

	switch response.Status {
	case protocol.StatusOpen:
		// The user asked to answer in the terminal; pull it into view.
		focus.New(logger).Focus(pid)
		return
	case protocol.StatusOK:
	default:
		return
	}

	if input.ToolName == "AskUserQuestion" && len(response.AskAnswers) > 0 {
		output, err := BuildAskOutput(&input, response.AskAnswers)
		if err == nil {
			os.Stdout.Write(output)
		}
		return
	}
	if response.Chosen == nil {
		return
	}
	output, err := BuildHookOutput(response.Chosen)
	if err == nil {
		os.Stdout.Write(output)
	}
}
