// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/deckhand-io/deckhand/lib/clock"
	"github.com/deckhand-io/deckhand/lib/protocol"
)

const (
	// daemonStartupTimeout bounds the auto-start retry loop.
	daemonStartupTimeout = 5 * time.Second

	// connectRetryInterval paces reconnect attempts while the
	// auto-started daemon comes up.
	connectRetryInterval = 200 * time.Millisecond
)

// Client talks to the daemon socket. The start hook and clock are
// injectable so tests can fake daemon startup.
type Client struct {
	log        *slog.Logger
	socketPath string
	clk        clock.Clock
	timeout    time.Duration

	// startDaemon launches a daemon in the background. Nil disables
	// auto-start.
	startDaemon func() error
}

// NewClient returns a Client that auto-starts the real daemon binary.
func NewClient(log *slog.Logger, socketPath string, timeout time.Duration) *Client {
	return &Client{
		log:         log,
		socketPath:  socketPath,
		clk:         clock.Real(),
		timeout:     timeout,
		startDaemon: spawnDaemon,
	}
}

// tryConnect makes a single connection attempt.
func (c *Client) tryConnect() net.Conn {
	conn, err := net.DialTimeout("unix", c.socketPath, time.Second)
	if err != nil {
		return nil
	}
	return conn
}

// Connect dials the daemon, auto-starting one and retrying briefly
// when no daemon is listening. Nil means the agent should fall back to
// its terminal prompt.
func (c *Client) Connect() net.Conn {
	if conn := c.tryConnect(); conn != nil {
		return conn
	}
	if c.startDaemon == nil {
		return nil
	}
	if err := c.startDaemon(); err != nil {
		c.log.Debug("starting daemon failed", "error", err)
		return nil
	}

	deadline := c.clk.Now().Add(daemonStartupTimeout)
	for c.clk.Now().Before(deadline) {
		c.clk.Sleep(connectRetryInterval)
		if conn := c.tryConnect(); conn != nil {
			return conn
		}
	}
	return nil
}

// Communicate sends one request and reads the daemon's reply, skipping
// the bare-newline liveness probes the daemon interleaves while the
// request is pending.
func (c *Client) Communicate(conn net.Conn, request *protocol.PermissionRequest) (*protocol.PermissionResponse, error) {
	conn.SetDeadline(time.Now().Add(c.timeout + 10*time.Second))

	payload, err := protocol.Encode(request)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(payload); err != nil {
		return nil, err
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			return protocol.DecodeResponse([]byte(line))
		}
		if err != nil {
			return nil, err
		}
	}
}

// SendNotification forwards a notification, fire-and-forget. No
// auto-start: a notification is not worth booting a daemon for.
func (c *Client) SendNotification(notification *protocol.NotificationMessage) {
	c.sendOneWay(notification)
}

// SendStopHook signals the end of the agent's turn, fire-and-forget.
func (c *Client) SendStopHook(pid int) {
	c.sendOneWay(&protocol.StopHook{Type: protocol.TypeStopHook, ClientPID: pid})
}

func (c *Client) sendOneWay(msg any) {
	conn := c.tryConnect()
	if conn == nil {
		c.log.Debug("no daemon running, dropping message")
		return
	}
	defer conn.Close()

	payload, err := protocol.Encode(msg)
	if err != nil {
		c.log.Debug("encoding message failed", "error", err)
		return
	}
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	if _, err := conn.Write(payload); err != nil {
		c.log.Debug("sending message failed", "error", err)
	}
}

// spawnDaemon launches deckhand-daemon detached in its own session,
// preferring the binary next to this hook so an agent-managed install
// works without PATH setup.
func spawnDaemon() error {
	daemonPath := "deckhand-daemon"
	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), "deckhand-daemon")
		if _, err := os.Stat(sibling); err == nil {
			daemonPath = sibling
		}
	}
	if !filepath.IsAbs(daemonPath) {
		resolved, err := exec.LookPath(daemonPath)
		if err != nil {
			return err
		}
		daemonPath = resolved
	}

	cmd := exec.Command(daemonPath)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
