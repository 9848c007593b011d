// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/deckhand-io/deckhand/lib/arbiter"
	"github.com/deckhand-io/deckhand/lib/device"
	"github.com/deckhand-io/deckhand/lib/netutil"
	"github.com/deckhand-io/deckhand/lib/protocol"
	"github.com/deckhand-io/deckhand/lib/render"
	"github.com/deckhand-io/deckhand/lib/risk"
)

// fallbackHeader colors mark requests the panel cannot decide (plan
// approval, malformed question sessions) and question sessions.
const (
	fallbackHeaderBG = "#604000"
	fallbackHeaderFG = "#FFD080"
)

// handleConnection reads one message from a hook client and dispatches
// it. Connections are single-shot: one message in, at most one reply
// out.
func (d *Daemon) handleConnection(conn net.Conn) {
	defer conn.Close()

	// The client should speak immediately; the generous deadline
	// covers the whole exchange including the blocking wait.
	conn.SetDeadline(time.Now().Add(d.set.HookTimeout() + 10*time.Second))

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		return
	}
	payload := []byte(line)

	envelope, err := protocol.DecodeEnvelope(payload)
	if err != nil {
		d.log.Warn("discarding malformed message", "error", err)
		return
	}

	switch envelope.Type {
	case protocol.TypeStop:
		d.log.Info("stop requested over socket")
		d.Shutdown()

	case protocol.TypeStopHook:
		d.handleStopHook(payload)

	case protocol.TypeNotification:
		d.handleNotification(payload)

	default:
		d.handleRequest(conn, payload)
	}
}

// handleStopHook marks the sender's turn as over: its pending items
// are stale and get purged, and an optional "Done" card is shown.
func (d *Daemon) handleStopHook(payload []byte) {
	stopHook, err := protocol.DecodeStopHook(payload)
	if err != nil {
		d.log.Warn("discarding malformed stop_hook", "error", err)
		return
	}
	purged := d.arb.PurgeConnected(stopHook.ClientPID)
	if purged > 0 {
		d.log.Info("purged items on stop_hook", "pid", stopHook.ClientPID, "count", purged)
	}
	if d.set.NotificationEnabled("stop") {
		d.arb.Add(arbiter.NewNotification(stopHook.ClientPID, "Done",
			"Agent finished its turn", d.notificationColors(stopHook.ClientPID)))
	}
}

// handleNotification queues a low-priority display card. Arrival also
// signals that the sender's blocked requests are stale.
func (d *Daemon) handleNotification(payload []byte) {
	notification, err := protocol.DecodeNotification(payload)
	if err != nil {
		d.log.Warn("discarding malformed notification", "error", err)
		return
	}
	if !d.set.NotificationEnabled(notification.NotificationType) {
		return
	}
	if purged := d.arb.PurgeConnected(notification.ClientPID); purged > 0 {
		d.log.Info("purged items superseded by notification",
			"pid", notification.ClientPID, "count", purged)
	}
	d.arb.Add(arbiter.NewNotification(notification.ClientPID,
		notification.Title, notification.Message,
		d.notificationColors(notification.ClientPID)))
}

// handleRequest queues a permission or question item and blocks the
// connection until it resolves, the client disconnects, or the
// timeout lapses.
func (d *Daemon) handleRequest(conn net.Conn, payload []byte) {
	request, err := protocol.DecodeRequest(payload)
	if err != nil {
		d.log.Warn("discarding malformed request", "error", err)
		return
	}
	if request.ClientPID == 0 {
		request.ClientPID = peerPID(conn)
	}

	if d.dev.Status() != device.StatusReady {
		d.reply(conn, &protocol.PermissionResponse{Status: protocol.StatusNoDevice})
		return
	}

	item := d.classify(request)
	d.arb.Add(item)
	d.log.Info("request queued",
		"pid", request.ClientPID, "tool", request.ToolName, "kind", item.Kind)

	d.awaitResolution(conn, item)
	d.reply(conn, item.Response())
}

// classify turns a request into a queue item with its kind, priority,
// and colors decided.
func (d *Daemon) classify(request *protocol.PermissionRequest) *arbiter.Item {
	pid := request.ClientPID
	colors := render.Colors{
		Background: d.riskConfig.PaletteColor(d.tracker.Index(pid)),
		BodyFG:     d.riskConfig.BodyTextColor,
		HeaderBG:   fallbackHeaderBG,
		HeaderFG:   fallbackHeaderFG,
	}

	switch request.ToolName {
	case "ExitPlanMode":
		// Plan approval needs the full terminal UI; a fresh plan
		// also obsoletes whatever this instance had pending.
		d.arb.PurgeConnected(pid)
		return arbiter.NewConnected(arbiter.KindFallback, arbiter.PriorityMedium, request, colors)

	case "AskUserQuestion":
		if len(protocol.QuestionsFromToolInput(request.ToolInput)) == 0 {
			return arbiter.NewConnected(arbiter.KindFallback, arbiter.PriorityMedium, request, colors)
		}
		return arbiter.NewConnected(arbiter.KindAsk, arbiter.PriorityHigh, request, colors)
	}

	level := d.riskConfig.Assess(request.ToolName, request.ToolInput)
	header := d.riskConfig.HeaderColors(level)
	colors.HeaderBG = header.Background
	colors.HeaderFG = header.Foreground
	return arbiter.NewConnected(arbiter.KindPermission, arbiter.PriorityHigh, request, colors)
}

func (d *Daemon) notificationColors(pid int) render.Colors {
	header := d.riskConfig.HeaderColors(risk.Low)
	return render.Colors{
		Background: d.riskConfig.PaletteColor(d.tracker.Index(pid)),
		BodyFG:     d.riskConfig.BodyTextColor,
		HeaderBG:   header.Background,
		HeaderFG:   header.Foreground,
	}
}

// awaitResolution blocks until the item resolves. Once a second it
// probes the connection with a bare newline and checks the deadline;
// a dead client or a lapsed timeout resolves the item locally so the
// queue does not carry orphans.
func (d *Daemon) awaitResolution(conn net.Conn, item *arbiter.Item) {
	start := d.clk.Now()
	deadline := start.Add(d.set.HookTimeout())

	for {
		select {
		case <-item.Done():
			return

		case <-d.clk.After(time.Second):
			if item.Cancelled() {
				// PurgeConnected already resolved it; Done fires
				// on the next loop turn.
				continue
			}
			if !d.clk.Now().Before(deadline) {
				d.log.Warn("request timed out", "pid", item.ClientPID)
				d.arb.Remove(item)
				item.Resolve(&protocol.PermissionResponse{
					Status:       protocol.StatusError,
					ErrorMessage: "timed out waiting for a panel decision",
				})
				return
			}
			// A blocked hook never sends more data, so a failed
			// write is the only disconnect signal we get.
			if _, err := conn.Write([]byte("\n")); err != nil {
				if netutil.IsDisconnect(err) {
					d.log.Info("client disconnected while waiting", "pid", item.ClientPID)
				} else {
					d.log.Warn("probe write failed", "pid", item.ClientPID, "error", err)
				}
				d.arb.Remove(item)
				item.Resolve(&protocol.PermissionResponse{
					Status:       protocol.StatusError,
					ErrorMessage: "client disconnected",
				})
				return
			}
		}
	}
}

// reply writes one response line. A serialization failure degrades to
// a generic error reply; past that the connection just closes.
func (d *Daemon) reply(conn net.Conn, response *protocol.PermissionResponse) {
	if response == nil {
		response = &protocol.PermissionResponse{
			Status:       protocol.StatusError,
			ErrorMessage: "internal error: request resolved without a response",
		}
	}
	response.Type = protocol.TypePermissionResponse
	payload, err := protocol.Encode(response)
	if err != nil {
		d.log.Error("encoding response failed", "error", err)
		payload, err = protocol.Encode(&protocol.PermissionResponse{
			Status:       protocol.StatusError,
			ErrorMessage: "internal error encoding response",
			Type:         protocol.TypePermissionResponse,
		})
		if err != nil {
			return
		}
	}
	if _, err := conn.Write(payload); err != nil {
		d.log.Debug("writing response failed", "error", err)
	}
}

// peerPID recovers the client PID from the socket's SO_PEERCRED when
// the message did not carry one. Zero when unavailable.
func peerPID(conn net.Conn) int {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return 0
	}
	raw, err := unixConn.SyscallConn()
	if err != nil {
		return 0
	}
	var cred *unix.Ucred
	control := raw.Control(func(fd uintptr) {
		cred, _ = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if control != nil || cred == nil {
		return 0
	}
	return int(cred.Pid)
}
