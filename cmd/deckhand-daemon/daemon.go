// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/deckhand-io/deckhand/lib/arbiter"
	"github.com/deckhand-io/deckhand/lib/clock"
	"github.com/deckhand-io/deckhand/lib/device"
	"github.com/deckhand-io/deckhand/lib/risk"
	"github.com/deckhand-io/deckhand/lib/settings"
)

// Options wires a Daemon. Device, Clock and Logger are injectable so
// tests can run against the fake panel and a deterministic clock.
type Options struct {
	SocketPath string
	Settings   *settings.Settings
	Device     device.Device
	Clock      clock.Clock
	Logger     *slog.Logger
	Focus      func(pid int)
}

// Daemon owns the listening socket and the arbitration state. Each
// accepted connection runs in its own goroutine; shared state lives in
// the arbiter and the PID tracker, both internally locked.
type Daemon struct {
	log        *slog.Logger
	clk        clock.Clock
	set        *settings.Settings
	riskConfig *risk.Config
	tracker    *risk.Tracker
	dev        device.Device
	arb        *arbiter.Arbiter
	socketPath string

	mu           sync.Mutex
	listener     *net.UnixListener
	shuttingDown bool
	done         chan struct{}
}

// NewDaemon builds a Daemon from options. Settings may be nil for
// defaults.
func NewDaemon(opts Options) *Daemon {
	if opts.Settings == nil {
		opts.Settings = settings.Default()
	}
	arb := arbiter.New(arbiter.Config{
		Clock:      opts.Clock,
		Device:     opts.Device,
		Logger:     opts.Logger,
		GuardMain:  opts.Settings.GuardDuration(),
		GuardMinor: opts.Settings.MinorGuardDuration(),
		GuardDim:   opts.Settings.GuardDim(),
		OpenButton: opts.Settings.OpenButton(),
		Focus:      opts.Focus,
	})
	return &Daemon{
		log:        opts.Logger,
		clk:        opts.Clock,
		set:        opts.Settings,
		riskConfig: risk.Load(opts.Settings),
		tracker:    risk.NewTracker(),
		dev:        opts.Device,
		arb:        arb,
		socketPath: opts.SocketPath,
		done:       make(chan struct{}),
	}
}

// Done is closed when the daemon has shut down.
func (d *Daemon) Done() <-chan struct{} { return d.done }

// Run claims the socket and serves until Shutdown. The accept loop
// wakes once a second to poll the device-absence watchdog.
func (d *Daemon) Run() error {
	if err := d.claimSocket(); err != nil {
		return err
	}

	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: d.socketPath, Net: "unix"})
	if err != nil {
		return fmt.Errorf("listening on %s: %w", d.socketPath, err)
	}

	d.mu.Lock()
	if d.shuttingDown {
		d.mu.Unlock()
		listener.Close()
		os.Remove(d.socketPath)
		return nil
	}
	d.listener = listener
	d.mu.Unlock()

	d.log.Info("daemon listening", "socket", d.socketPath)

	for {
		listener.SetDeadline(time.Now().Add(time.Second))
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				if limit := d.set.NoDeviceShutdown(); limit > 0 && d.dev.AbsentFor() > limit {
					d.log.Info("no panel attached past the shutdown limit", "limit", limit)
					d.Shutdown()
					return nil
				}
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}
		go d.handleConnection(conn)
	}
}

// claimSocket enforces the singleton: an existing socket that accepts
// a connection means another daemon is alive; one that refuses is
// stale and gets unlinked.
func (d *Daemon) claimSocket() error {
	if _, err := os.Stat(d.socketPath); err != nil {
		return nil
	}
	conn, err := net.DialTimeout("unix", d.socketPath, time.Second)
	if err == nil {
		conn.Close()
		return fmt.Errorf("another daemon is already listening on %s", d.socketPath)
	}
	d.log.Info("removing stale socket", "socket", d.socketPath)
	if err := os.Remove(d.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket: %w", err)
	}
	return nil
}

// Shutdown stops accepting, blanks and releases the panel, and removes
// the socket. Idempotent and safe from any goroutine.
func (d *Daemon) Shutdown() {
	d.mu.Lock()
	if d.shuttingDown {
		d.mu.Unlock()
		return
	}
	d.shuttingDown = true
	listener := d.listener
	d.mu.Unlock()

	d.log.Info("shutting down")
	d.arb.Stop()
	if err := d.dev.Close(); err != nil {
		d.log.Error("closing panel failed", "error", err)
	}
	if listener != nil {
		listener.Close()
	}
	os.Remove(d.socketPath)
	close(d.done)
}
