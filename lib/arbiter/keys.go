// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package arbiter

import (
	"github.com/deckhand-io/deckhand/lib/protocol"
	"github.com/deckhand-io/deckhand/lib/render"
)

// HandleKey is the device key callback. Releases are ignored, as are
// presses inside the guard window after a display switch.
func (a *Arbiter) HandleKey(key int, pressed bool) {
	if !pressed {
		return
	}

	grid, ok := a.dev.Grid()
	if !ok {
		return
	}

	a.mu.Lock()
	item := a.current
	if item == nil {
		a.mu.Unlock()
		return
	}
	if guard := a.guardFor(item); guard > 0 && a.clk.Now().Sub(a.displayTime) < guard {
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	openKey := -1
	if a.cfg.OpenButton {
		openKey = render.OpenKey(grid.Cols)
	}

	switch item.Kind {
	case KindNotification:
		if key == openKey {
			a.log.Info("open pressed on notification", "pid", item.ClientPID)
			a.focusTerminal(item.ClientPID)
		}
		a.Remove(item)
	case KindFallback:
		if key == openKey {
			a.resolveAndRemove(item, &protocol.PermissionResponse{Status: protocol.StatusOpen})
			return
		}
		a.resolveAndRemove(item, &protocol.PermissionResponse{Status: protocol.StatusFallback})
	case KindAsk:
		a.handleAskKey(item, key, grid.Cols, grid.Rows, openKey)
	default:
		a.handlePermissionKey(item, key, grid.Cols, grid.Rows, openKey)
	}
}

func (a *Arbiter) resolveAndRemove(item *Item, resp *protocol.PermissionResponse) {
	item.Resolve(resp)
	a.Remove(item)
}

func (a *Arbiter) focusTerminal(pid int) {
	if a.cfg.Focus == nil {
		return
	}
	go a.cfg.Focus(pid)
}

func (a *Arbiter) handlePermissionKey(item *Item, key, cols, rows, openKey int) {
	if key == openKey {
		a.resolveAndRemove(item, &protocol.PermissionResponse{Status: protocol.StatusOpen})
		return
	}

	choices := item.Request.Choices
	_, choiceKeys := render.Layout(len(choices), cols, rows)

	choiceIndex := -1
	for i, choiceKey := range choiceKeys {
		if choiceKey == key {
			choiceIndex = i
			break
		}
	}
	if choiceIndex < 0 || choiceIndex >= len(choices) {
		return
	}
	chosen := choices[choiceIndex]

	// The Always toggle arms rule persistence without completing the
	// request; the choice that completes it is Allow.
	if chosen.IsAlways() {
		a.mu.Lock()
		item.AlwaysActive = !item.AlwaysActive
		a.mu.Unlock()
		a.rerender(item)
		return
	}

	if chosen.Behavior == "allow" {
		a.mu.Lock()
		alwaysActive := item.AlwaysActive
		a.mu.Unlock()
		if alwaysActive {
			for _, choice := range choices {
				if choice.IsAlways() {
					chosen = choice
					break
				}
			}
		}
	}

	a.resolveAndRemove(item, &protocol.PermissionResponse{
		Status: protocol.StatusOK,
		Chosen: &chosen,
	})
}

func (a *Arbiter) handleAskKey(item *Item, key, cols, rows, openKey int) {
	optionKeys, cancelKey, submitKey := render.AskLayout(cols, rows)
	maxOptions := render.MaxAskOptions(cols, rows)

	a.mu.Lock()
	state := item.Ask

	if state.Confirm {
		switch key {
		case submitKey:
			answers := state.Assemble()
			a.mu.Unlock()
			a.resolveAndRemove(item, &protocol.PermissionResponse{
				Status:     protocol.StatusOK,
				AskAnswers: answers,
			})
		case cancelKey:
			state.Confirm = false
			a.mu.Unlock()
			a.rerender(item)
		default:
			a.mu.Unlock()
		}
		return
	}

	question := state.Questions[state.Page]
	optionCount := len(question.Options)
	if optionCount > maxOptions {
		optionCount = maxOptions
	}

	switch {
	case key == cancelKey:
		switch {
		case state.Page > 0:
			state.Page--
			a.mu.Unlock()
			a.rerender(item)
		case openKey >= 0:
			a.mu.Unlock()
			a.resolveAndRemove(item, &protocol.PermissionResponse{Status: protocol.StatusOpen})
		default:
			a.mu.Unlock()
			a.resolveAndRemove(item, &protocol.PermissionResponse{
				Status:       protocol.StatusError,
				ErrorMessage: "cancelled by user",
			})
		}

	case key == submitKey:
		if !state.PageAnswered() {
			a.mu.Unlock()
			return
		}
		switch {
		case !state.MultiPage():
			answers := state.Assemble()
			a.mu.Unlock()
			a.resolveAndRemove(item, &protocol.PermissionResponse{
				Status:     protocol.StatusOK,
				AskAnswers: answers,
			})
		case state.Page < state.TotalPages()-1:
			state.Page++
			a.mu.Unlock()
			a.rerender(item)
		default:
			state.Confirm = true
			a.mu.Unlock()
			a.rerender(item)
		}

	default:
		for i, optionKey := range optionKeys {
			if i >= optionCount {
				break
			}
			if optionKey == key {
				state.Toggle(question.Options[i].Label)
				a.mu.Unlock()
				a.rerender(item)
				return
			}
		}
		a.mu.Unlock()
	}
}
