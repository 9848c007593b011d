// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/deckhand-io/deckhand/lib/clock"
	"github.com/deckhand-io/deckhand/lib/device"
	"github.com/deckhand-io/deckhand/lib/focus"
	"github.com/deckhand-io/deckhand/lib/protocol"
	"github.com/deckhand-io/deckhand/lib/settings"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		socketPath  string
		stop        bool
		checkConfig bool
		assess      bool
		filePath    string
	)
	pflag.StringVar(&socketPath, "socket", settings.DefaultSocketPath(), "path of the daemon's Unix socket")
	pflag.BoolVar(&stop, "stop", false, "stop a running daemon and exit")
	pflag.BoolVar(&checkConfig, "check-config", false, "print the effective risk configuration and exit")
	pflag.BoolVar(&assess, "assess", false, "dry-run the risk classifier: --assess TOOL [COMMAND] [--file-path PATH]")
	pflag.StringVar(&filePath, "file-path", "", "file path for --assess of Write/Edit tools")
	pflag.Parse()

	switch {
	case stop:
		return sendStop(socketPath)
	case checkConfig:
		return runCheckConfig(os.Stdout)
	case assess:
		return runAssess(os.Stdout, pflag.Args(), filePath)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	userSettings, err := settings.Load()
	if err != nil {
		logger.Warn("settings file unusable, continuing with defaults", "error", err)
	}

	panel := device.OpenStreamDeck(logger, clock.Real(), device.DefaultPollInterval)
	focuser := focus.New(logger)

	daemon := NewDaemon(Options{
		SocketPath: socketPath,
		Settings:   userSettings,
		Device:     panel,
		Clock:      clock.Real(),
		Logger:     logger,
		Focus:      focuser.Focus,
	})

	ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	go func() {
		<-ctx.Done()
		daemon.Shutdown()
	}()

	return daemon.Run()
}

// sendStop asks a running daemon to shut down. A missing socket or a
// refused connection both mean there is nothing to stop.
func sendStop(socketPath string) error {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		fmt.Println("No running daemon found.")
		return nil
	}
	defer conn.Close()

	payload, err := protocol.Encode(protocol.Envelope{Type: protocol.TypeStop})
	if err != nil {
		return err
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("sending stop: %w", err)
	}
	fmt.Println("Stop signal sent to daemon.")
	return nil
}
