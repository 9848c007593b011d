// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package arbiter

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/deckhand-io/deckhand/lib/clock"
	"github.com/deckhand-io/deckhand/lib/device"
	"github.com/deckhand-io/deckhand/lib/protocol"
	"github.com/deckhand-io/deckhand/lib/render"
)

// Config wires an Arbiter. Clock, Device and Logger are required.
type Config struct {
	Clock  clock.Clock
	Device device.Device
	Logger *slog.Logger

	// GuardMain applies to permission and ask items, GuardMinor to
	// fallback and notification items. Key presses within the guard
	// window after a display switch are dropped.
	GuardMain  time.Duration
	GuardMinor time.Duration

	// GuardDim renders the guard window dimmed so the user can see
	// the panel is not yet accepting input.
	GuardDim bool

	// OpenButton enables the top-right "jump to terminal" key.
	OpenButton bool

	// Focus is called (on its own goroutine) when the open button is
	// pressed on a notification. Optional.
	Focus func(pid int)
}

// Arbiter owns the display queue: every add, remove, purge and key
// press funnels through it, and it alone decides what the panel shows.
type Arbiter struct {
	cfg Config
	log *slog.Logger
	clk clock.Clock
	dev device.Device

	// mu guards the queue, the current pointer, the display
	// generation and the guard bookkeeping.
	mu          sync.Mutex
	items       []*Item
	current     *Item
	nextID      int64
	generation  uint64
	displayTime time.Time
	guardTimer  *clock.Timer

	// displayMu serializes render and push so frames reach the panel
	// in selection order. lastHash dedupes identical pushes.
	displayMu  sync.Mutex
	lastHash   render.Digest
	havePushed bool
}

// New builds an Arbiter and registers its key handler on the device.
func New(cfg Config) *Arbiter {
	a := &Arbiter{
		cfg: cfg,
		log: cfg.Logger,
		clk: cfg.Clock,
		dev: cfg.Device,
	}
	cfg.Device.SetKeyHandler(a.HandleKey)
	return a
}

// Add assigns the item's ID and timestamp, queues it, and reselects.
// A notification first silently drops any same-PID notification: one
// notice per instance, newest wins.
func (a *Arbiter) Add(item *Item) {
	a.mu.Lock()
	if item.Kind == KindNotification && item.ClientPID != 0 {
		kept := a.items[:0]
		for _, other := range a.items {
			if other.Kind == KindNotification && other.ClientPID == item.ClientPID {
				continue
			}
			kept = append(kept, other)
		}
		a.items = kept
	}
	item.ID = a.nextID
	a.nextID++
	item.Timestamp = a.clk.Now()
	a.items = append(a.items, item)
	a.mu.Unlock()

	a.selectAndDisplay()
}

// Remove takes the item off the queue and reselects. Idempotent:
// removing an absent item only triggers a reselect.
func (a *Arbiter) Remove(item *Item) {
	a.mu.Lock()
	a.removeLocked(item)
	a.mu.Unlock()
	a.selectAndDisplay()
}

func (a *Arbiter) removeLocked(item *Item) {
	for i, other := range a.items {
		if other == item {
			a.items = append(a.items[:i], a.items[i+1:]...)
			return
		}
	}
}

// PurgeConnected removes every connected item for a PID, resolving
// each exactly once with a superseded error and raising its cancel
// flag. A notification or plan-mode fallback from an instance means it
// moved on; whatever it left blocked on the panel is stale.
func (a *Arbiter) PurgeConnected(pid int) int {
	a.mu.Lock()
	var stale []*Item
	kept := a.items[:0]
	for _, item := range a.items {
		if item.ClientPID == pid && item.Kind.Connected() {
			stale = append(stale, item)
			continue
		}
		kept = append(kept, item)
	}
	a.items = kept
	a.mu.Unlock()

	for _, item := range stale {
		item.markCancelled()
		item.Resolve(&protocol.PermissionResponse{
			Status:       protocol.StatusError,
			ErrorMessage: "superseded by a newer request from this instance",
		})
	}
	if len(stale) > 0 {
		a.log.Info("purged stale items", "count", len(stale), "pid", pid)
		a.selectAndDisplay()
	}
	return len(stale)
}

// Len reports the queue size.
func (a *Arbiter) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

// Current returns the item the panel shows, or nil.
func (a *Arbiter) Current() *Item {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Stop cancels guard timers and blanks the panel.
func (a *Arbiter) Stop() {
	a.mu.Lock()
	a.stopGuardLocked()
	a.current = nil
	a.mu.Unlock()
	a.clearDisplay()
}

// selectAndDisplay recomputes the visible item: highest priority
// first, newest first within a priority. It is the single point of
// display decision, called after every queue mutation.
func (a *Arbiter) selectAndDisplay() {
	a.mu.Lock()
	var best *Item
	for _, item := range a.items {
		if best == nil ||
			item.Priority > best.Priority ||
			(item.Priority == best.Priority && !item.Timestamp.Before(best.Timestamp)) {
			best = item
		}
	}
	prev := a.current
	a.current = best

	if best == nil {
		a.stopGuardLocked()
		a.mu.Unlock()
		if prev != nil {
			a.clearDisplay()
		}
		return
	}
	if best == prev {
		a.mu.Unlock()
		return
	}

	// Display switch: restart the guard window and invalidate any
	// pending guard expiry from the previous item.
	a.displayTime = a.clk.Now()
	a.stopGuardLocked()
	a.generation++
	generation := a.generation

	guard := a.guardFor(best)
	dim := a.cfg.GuardDim && guard > 0
	if dim {
		a.guardTimer = a.clk.AfterFunc(guard, func() {
			a.guardExpired(generation, best)
		})
	}
	a.mu.Unlock()

	a.display(best, dim, generation)
}

// guardExpired re-renders the current item without the dim marker. A
// stale timer (the panel switched since it was armed) does nothing.
func (a *Arbiter) guardExpired(generation uint64, item *Item) {
	a.mu.Lock()
	a.guardTimer = nil
	stale := generation != a.generation || a.current != item
	a.mu.Unlock()
	if stale {
		return
	}
	a.display(item, false, generation)
}

func (a *Arbiter) stopGuardLocked() {
	if a.guardTimer != nil {
		a.guardTimer.Stop()
		a.guardTimer = nil
	}
}

func (a *Arbiter) guardFor(item *Item) time.Duration {
	if item.Kind == KindFallback || item.Kind == KindNotification {
		return a.cfg.GuardMinor
	}
	return a.cfg.GuardMain
}

// display renders an item and pushes the frame. Rendering happens
// outside the items lock; the push is serialized by displayMu with a
// staleness check so an overtaken render never clobbers a newer frame.
// Identical frames (by digest) skip the hardware push entirely.
func (a *Arbiter) display(item *Item, dim bool, generation uint64) {
	grid, ok := a.dev.Grid()
	if !ok {
		return
	}
	pixels, ok := a.dev.Pixels()
	if !ok {
		return
	}

	a.mu.Lock()
	view := a.viewLocked(item, dim, grid)
	a.mu.Unlock()

	images, err := view.Images(grid, pixels)
	if err != nil {
		a.log.Error("rendering item failed", "kind", item.Kind, "error", err)
		return
	}

	a.displayMu.Lock()
	defer a.displayMu.Unlock()

	a.mu.Lock()
	stale := generation != a.generation || a.current != item
	a.mu.Unlock()
	if stale {
		return
	}

	digest := render.Hash(images)
	if a.havePushed && digest == a.lastHash {
		return
	}
	if err := a.dev.SetKeyImages(images); err != nil {
		a.log.Error("pushing frame failed", "error", err)
		return
	}
	a.lastHash = digest
	a.havePushed = true
}

func (a *Arbiter) clearDisplay() {
	a.displayMu.Lock()
	defer a.displayMu.Unlock()
	if err := a.dev.ClearKeys(); err != nil {
		a.log.Error("clearing panel failed", "error", err)
	}
	a.havePushed = false
}

// rerender redraws the current item in place (option toggled, page
// turned, Always flipped). The generation is unchanged: this is not a
// display switch and does not restart the guard.
func (a *Arbiter) rerender(item *Item) {
	a.mu.Lock()
	generation := a.generation
	current := a.current
	a.mu.Unlock()
	if current != item {
		return
	}
	a.display(item, false, generation)
}

// renderable is any view the render package can turn into key images.
type renderable interface {
	Images(device.Grid, device.PixelFormat) (map[int][]byte, error)
}

// viewLocked snapshots an item into a render view. Caller holds a.mu
// so mutable item state is read consistently.
func (a *Arbiter) viewLocked(item *Item, dim bool, grid device.Grid) renderable {
	openKey := -1
	if a.cfg.OpenButton {
		openKey = render.OpenKey(grid.Cols)
	}

	switch item.Kind {
	case KindNotification:
		return render.NotificationView{
			Title:   item.Title,
			Message: item.Message,
			Colors:  item.Colors,
			Dimmed:  dim,
			OpenKey: openKey,
		}
	case KindFallback:
		return render.FallbackView{
			ToolName: item.Request.ToolName,
			Colors:   item.Colors,
			Dimmed:   dim,
			OpenKey:  openKey,
		}
	case KindAsk:
		return a.askViewLocked(item, dim, openKey)
	default:
		return render.PermissionView{
			ToolName:     item.Request.ToolName,
			Content:      render.DisplayContent(item.Request.ToolName, item.Request.ToolInput),
			Choices:      item.Request.Choices,
			AlwaysActive: item.AlwaysActive,
			Colors:       item.Colors,
			Dimmed:       dim,
			OpenKey:      openKey,
		}
	}
}

func (a *Arbiter) askViewLocked(item *Item, dim bool, openKey int) render.AskView {
	state := item.Ask
	view := render.AskView{
		Colors: item.Colors,
		Dimmed: dim,
	}
	if state.Confirm {
		view.Header = "Confirm"
		view.ConfirmPage = true
		view.CancelLabel = "Back"
		view.SubmitLabel = "Submit"
		return view
	}

	question := state.Questions[state.Page]
	view.Header = question.Header
	if state.MultiPage() {
		view.Header = fmt.Sprintf("%s %d/%d", question.Header, state.Page+1, state.TotalPages())
	}
	view.Question = question.Text
	view.Options = question.Options
	view.Selected = state.SelectedLabels()

	switch {
	case state.Page > 0:
		view.CancelLabel = "Back"
	case openKey >= 0:
		view.CancelLabel = "Go CC"
	default:
		view.CancelLabel = "Cancel"
	}
	if state.MultiPage() {
		view.SubmitLabel = "Next"
	} else {
		view.SubmitLabel = "Submit"
	}
	return view
}
