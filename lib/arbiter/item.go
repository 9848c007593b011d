// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package arbiter

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/deckhand-io/deckhand/lib/protocol"
	"github.com/deckhand-io/deckhand/lib/render"
)

// Priority orders items on the panel. Connected requests outrank the
// plan-mode fallback, which outranks notifications.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

// Kind is the closed set of item types competing for the panel.
type Kind string

const (
	KindPermission   Kind = "permission"
	KindAsk          Kind = "ask"
	KindFallback     Kind = "fallback"
	KindNotification Kind = "notification"
)

// Connected reports whether the item has a hook process blocked on it.
// Notifications are fire-and-forget; everything else is connected.
func (k Kind) Connected() bool { return k != KindNotification }

// Item is one entry in the arbitration queue. ID and Timestamp are
// assigned by Add. Mutable display state (AlwaysActive, Ask) is
// guarded by the arbiter's mutex.
type Item struct {
	ID        int64
	Priority  Priority
	Timestamp time.Time
	ClientPID int
	Kind      Kind

	// Request is set for connected items, nil for notifications.
	Request *protocol.PermissionRequest

	// Notification text, set only for KindNotification.
	Title   string
	Message string

	// Colors are precomputed at classification time: instance body
	// background plus risk-derived header colors.
	Colors render.Colors

	AlwaysActive bool
	Ask          *AskState

	done      chan struct{}
	response  *protocol.PermissionResponse
	once      sync.Once
	cancelled atomic.Bool
}

// NewConnected builds an unqueued connected item. For KindAsk the
// wizard state is initialized from the request's questions.
func NewConnected(kind Kind, priority Priority, req *protocol.PermissionRequest, colors render.Colors) *Item {
	item := &Item{
		Priority:  priority,
		ClientPID: req.ClientPID,
		Kind:      kind,
		Request:   req,
		Colors:    colors,
		done:      make(chan struct{}),
	}
	if kind == KindAsk {
		item.Ask = newAskState(protocol.QuestionsFromToolInput(req.ToolInput))
	}
	return item
}

// NewNotification builds an unqueued notification item.
func NewNotification(pid int, title, message string, colors render.Colors) *Item {
	return &Item{
		Priority:  PriorityLow,
		ClientPID: pid,
		Kind:      KindNotification,
		Title:     title,
		Message:   message,
		Colors:    colors,
	}
}

// Done returns the completion channel, closed once the item resolves.
// Nil for notifications.
func (it *Item) Done() <-chan struct{} {
	if it.done == nil {
		return nil
	}
	return it.done
}

// Resolve records the response and closes the completion channel. The
// first resolution wins; later calls are no-ops, so a key press racing
// a purge or disconnect can never double-complete a hook. No-op on
// notifications.
func (it *Item) Resolve(resp *protocol.PermissionResponse) {
	if it.done == nil {
		return
	}
	it.once.Do(func() {
		it.response = resp
		close(it.done)
	})
}

// Response returns the resolution. Valid only after Done is closed.
func (it *Item) Response() *protocol.PermissionResponse {
	return it.response
}

// Cancelled reports whether the item was superseded by a purge. The
// blocked connection handler polls this to stop waiting early.
func (it *Item) Cancelled() bool { return it.cancelled.Load() }

func (it *Item) markCancelled() { it.cancelled.Store(true) }

// AskState is the mutable wizard state of a question session: one page
// per question, then a confirm page when there is more than one.
type AskState struct {
	Questions []protocol.Question
	Page      int
	Confirm   bool

	// Answers holds single-select picks by page; Multi holds
	// multi-select label sets by page.
	Answers map[int]string
	Multi   map[int]map[string]bool
}

func newAskState(questions []protocol.Question) *AskState {
	return &AskState{
		Questions: questions,
		Answers:   make(map[int]string),
		Multi:     make(map[int]map[string]bool),
	}
}

// TotalPages is the question count; the confirm page is not a page.
func (s *AskState) TotalPages() int { return len(s.Questions) }

// MultiPage reports whether the session has a confirm page at the end.
func (s *AskState) MultiPage() bool { return len(s.Questions) > 1 }

// PageAnswered reports whether the current page has an answer. An
// empty multi-select set counts as unanswered.
func (s *AskState) PageAnswered() bool {
	if _, ok := s.Answers[s.Page]; ok {
		return true
	}
	return len(s.Multi[s.Page]) > 0
}

// Toggle records an option press on the current page: single-select
// overwrites, multi-select flips membership.
func (s *AskState) Toggle(label string) {
	if s.Questions[s.Page].MultiSelect {
		set := s.Multi[s.Page]
		if set == nil {
			set = make(map[string]bool)
			s.Multi[s.Page] = set
		}
		if set[label] {
			delete(set, label)
		} else {
			set[label] = true
		}
		return
	}
	s.Answers[s.Page] = label
}

// SelectedLabels returns the current page's picks for rendering.
func (s *AskState) SelectedLabels() map[string]bool {
	if s.Questions[s.Page].MultiSelect {
		return s.Multi[s.Page]
	}
	if answer, ok := s.Answers[s.Page]; ok {
		return map[string]bool{answer: true}
	}
	return nil
}

// Assemble maps question text to the chosen labels. Multi-select
// labels are joined ", " in sorted order; unanswered questions are
// omitted.
func (s *AskState) Assemble() map[string]string {
	answers := make(map[string]string)
	for i, question := range s.Questions {
		if question.MultiSelect {
			set := s.Multi[i]
			if len(set) == 0 {
				continue
			}
			labels := make([]string, 0, len(set))
			for label := range set {
				labels = append(labels, label)
			}
			sort.Strings(labels)
			answers[question.Text] = strings.Join(labels, ", ")
			continue
		}
		if answer, ok := s.Answers[i]; ok {
			answers[question.Text] = answer
		}
	}
	return answers
}
