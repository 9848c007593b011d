// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

// Package focus jumps the user's attention to the terminal hosting an
// agent process. It is strictly best-effort: the agent may run outside
// tmux, the pane may be gone, the process may have exited. Every layer
// degrades silently because a failed focus must never disturb the
// arbitration path that triggered it.
package focus

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Runner executes an external command and returns its combined output.
// Injectable so tests can fake tmux.
type Runner func(name string, args ...string) ([]byte, error)

func defaultRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// Focuser locates the tmux pane whose process tree contains a given
// PID and selects it.
type Focuser struct {
	log      *slog.Logger
	procRoot string
	run      Runner
}

// New returns a Focuser reading the live /proc and running real
// commands.
func New(log *slog.Logger) *Focuser {
	return &Focuser{log: log, procRoot: "/proc", run: defaultRunner}
}

// NewWithRunner is the test constructor: a synthetic proc root and a
// fake command runner.
func NewWithRunner(log *slog.Logger, procRoot string, run Runner) *Focuser {
	return &Focuser{log: log, procRoot: procRoot, run: run}
}

// Alive reports whether a process exists. EPERM means it exists but
// belongs to someone else, which still counts.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}

// Focus selects the tmux window and pane hosting pid, if there is one.
func (f *Focuser) Focus(pid int) {
	if !Alive(pid) {
		f.log.Debug("focus target is gone", "pid", pid)
		return
	}
	if !f.selectPane(pid) {
		f.log.Debug("no tmux pane hosts the target", "pid", pid)
	}
}

// selectPane walks every tmux pane and selects the one whose pane
// process is an ancestor of pid.
func (f *Focuser) selectPane(pid int) bool {
	output, err := f.run("tmux", "list-panes", "-a", "-F",
		"#{pane_pid} #{pane_id} #{session_name}:#{window_index}")
	if err != nil {
		return false
	}

	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		fields := strings.SplitN(line, " ", 3)
		if len(fields) < 3 {
			continue
		}
		panePID, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		paneID, target := fields[1], fields[2]

		if !f.isDescendant(pid, panePID) {
			continue
		}
		if _, err := f.run("tmux", "select-window", "-t", target); err != nil {
			f.log.Debug("tmux select-window failed", "target", target, "error", err)
		}
		if _, err := f.run("tmux", "select-pane", "-t", paneID); err != nil {
			f.log.Debug("tmux select-pane failed", "pane", paneID, "error", err)
		}
		return true
	}
	return false
}

// isDescendant walks pid's ancestor chain looking for ancestorPID. The
// chain is capped so a corrupt proc tree cannot loop forever.
func (f *Focuser) isDescendant(pid, ancestorPID int) bool {
	current := pid
	for depth := 0; depth < 32 && current > 1; depth++ {
		if current == ancestorPID {
			return true
		}
		ppid, ok := f.parentPID(current)
		if !ok {
			return false
		}
		current = ppid
	}
	return current == ancestorPID
}

// parentPID reads the parent PID from /proc/<pid>/stat. The comm field
// is parenthesized and may itself contain spaces or parentheses, so
// parsing starts after the last ')'.
func (f *Focuser) parentPID(pid int) (int, bool) {
	data, err := os.ReadFile(fmt.Sprintf("%s/%d/stat", f.procRoot, pid))
	if err != nil {
		return 0, false
	}
	raw := string(data)
	end := strings.LastIndexByte(raw, ')')
	if end < 0 {
		return 0, false
	}
	fields := strings.Fields(raw[end+1:])
	if len(fields) < 2 {
		return 0, false
	}
	ppid, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}
	return ppid, true
}
