// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/deckhand-io/deckhand/lib/device"
	"github.com/deckhand-io/deckhand/lib/protocol"
)

func TestLayoutChoicePlacement(t *testing.T) {
	tests := []struct {
		numChoices int
		cols, rows int
		want       []int
	}{
		// 3x2 Mini: bottom-right is key 5.
		{3, 3, 2, []int{5, 3, 4}}, // Allow, Deny, Always
		{2, 3, 2, []int{5, 4}},    // Allow, Deny
		{1, 3, 2, []int{5}},
		// 5x3 Original: bottom-right is key 14.
		{3, 5, 3, []int{14, 12, 13}},
	}
	for _, test := range tests {
		messageKeys, choiceKeys := Layout(test.numChoices, test.cols, test.rows)
		if !reflect.DeepEqual(choiceKeys, test.want) {
			t.Errorf("Layout(%d, %dx%d) choices = %v, want %v",
				test.numChoices, test.cols, test.rows, choiceKeys, test.want)
		}
		if len(messageKeys)+len(choiceKeys) != test.cols*test.rows {
			t.Errorf("Layout(%d, %dx%d) does not partition the grid",
				test.numChoices, test.cols, test.rows)
		}
	}
}

func TestAskLayout(t *testing.T) {
	optionKeys, cancelKey, submitKey := AskLayout(3, 2)
	if cancelKey != 2 || submitKey != 5 {
		t.Errorf("controls = (cancel %d, submit %d), want (2, 5)", cancelKey, submitKey)
	}
	if want := []int{0, 1, 3, 4}; !reflect.DeepEqual(optionKeys, want) {
		t.Errorf("option keys = %v, want %v", optionKeys, want)
	}
	if got := MaxAskOptions(3, 2); got != 4 {
		t.Errorf("MaxAskOptions = %d, want 4", got)
	}
}

func TestDisplayContent(t *testing.T) {
	tests := []struct {
		tool  string
		input map[string]any
		want  string
	}{
		{"Bash", map[string]any{"command": "ls -la", "timeout": 5}, "ls -la"},
		{"Edit", map[string]any{"file_path": "/tmp/x.go", "old_string": "a"}, "/tmp/x.go"},
		{"WebFetch", map[string]any{"url": "https://example.com"}, "https://example.com"},
		// Unknown tool: first non-empty string value in field order.
		{"Custom", map[string]any{"b": "", "c": "hello", "a": 42}, "hello"},
		{"Custom", map[string]any{}, ""},
	}
	for _, test := range tests {
		if got := DisplayContent(test.tool, test.input); got != test.want {
			t.Errorf("DisplayContent(%s, %v) = %q, want %q", test.tool, test.input, got, test.want)
		}
	}
}

func TestDisplayContentTruncates(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := DisplayContent("Bash", map[string]any{"command": long})
	if len(got) > maxContentCells+3 {
		t.Errorf("content not truncated: %d chars", len(got))
	}
}

func TestWrapCells(t *testing.T) {
	lines := wrapCells("abcdef\n\nxy", 3)
	want := []string{"abc", "def", "", "xy"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("wrapCells = %q, want %q", lines, want)
	}
}

func TestChoiceAppearance(t *testing.T) {
	always := protocol.PermissionChoice{
		Label:              "Always",
		Behavior:           "allow",
		UpdatedPermissions: []json.RawMessage{json.RawMessage(`{}`)},
	}
	allow := protocol.PermissionChoice{Label: "Allow", Behavior: "allow"}
	deny := protocol.PermissionChoice{Label: "Deny", Behavior: "deny"}

	if bg, _ := choiceAppearance(always, false); bg != choiceAlwaysOffBG {
		t.Errorf("armed Always bg = %s", bg)
	}
	if bg, _ := choiceAppearance(always, true); bg != choiceAlwaysOnBG {
		t.Errorf("active Always bg = %s", bg)
	}
	if bg, _ := choiceAppearance(allow, false); bg != choiceAllowBG {
		t.Errorf("Allow bg = %s", bg)
	}
	// While Always is toggled on, Allow shows it will persist.
	if bg, _ := choiceAppearance(allow, true); bg != choiceAlwaysOnBG {
		t.Errorf("Allow-with-Always bg = %s", bg)
	}
	if bg, _ := choiceAppearance(deny, true); bg != choiceDenyBG {
		t.Errorf("Deny bg = %s", bg)
	}
}

func testFormat() (device.Grid, device.PixelFormat) {
	return device.Grid{Rows: 2, Cols: 3},
		device.PixelFormat{Width: 80, Height: 80, Encoding: device.EncodingBMP}
}

func testColors() Colors {
	return Colors{Background: "#000000", HeaderBG: "#101010", HeaderFG: "#808080", BodyFG: "white"}
}

func TestPermissionImagesCoverGrid(t *testing.T) {
	grid, format := testFormat()
	view := PermissionView{
		ToolName: "Bash",
		Content:  "rm -rf build/",
		Choices: []protocol.PermissionChoice{
			{Label: "Allow", Behavior: "allow"},
			{Label: "Deny", Behavior: "deny"},
		},
		Colors:  testColors(),
		OpenKey: -1,
	}
	images, err := view.Images(grid, format)
	if err != nil {
		t.Fatalf("Images: %v", err)
	}
	if len(images) != 6 {
		t.Errorf("rendered %d keys, want 6", len(images))
	}
	for key, data := range images {
		if len(data) == 0 {
			t.Errorf("key %d has empty image", key)
		}
	}
}

func TestHashDistinguishesFrames(t *testing.T) {
	grid, format := testFormat()
	base := PermissionView{
		ToolName: "Bash",
		Content:  "ls",
		Choices:  []protocol.PermissionChoice{{Label: "Allow", Behavior: "allow"}},
		Colors:   testColors(),
		OpenKey:  -1,
	}

	first, err := base.Images(grid, format)
	if err != nil {
		t.Fatal(err)
	}
	second, err := base.Images(grid, format)
	if err != nil {
		t.Fatal(err)
	}
	if Hash(first) != Hash(second) {
		t.Error("identical views should hash identically")
	}

	dimmed := base
	dimmed.Dimmed = true
	third, err := dimmed.Images(grid, format)
	if err != nil {
		t.Fatal(err)
	}
	if Hash(first) == Hash(third) {
		t.Error("dimmed frame should hash differently")
	}
}

func TestAskViewSelection(t *testing.T) {
	grid, format := testFormat()
	view := AskView{
		Header:   "Deploy 1/2",
		Question: "Which environment?",
		Options: []protocol.QuestionOption{
			{Label: "staging"},
			{Label: "production", Description: "requires approval"},
		},
		Selected:    map[string]bool{"staging": true},
		CancelLabel: "Cancel",
		SubmitLabel: "Next",
		Colors:      testColors(),
	}
	unselected := AskView{
		Header:      view.Header,
		Question:    view.Question,
		Options:     view.Options,
		Selected:    map[string]bool{},
		CancelLabel: "Cancel",
		SubmitLabel: "Next",
		Colors:      testColors(),
	}

	first, err := view.Images(grid, format)
	if err != nil {
		t.Fatal(err)
	}
	second, err := unselected.Images(grid, format)
	if err != nil {
		t.Fatal(err)
	}
	if Hash(first) == Hash(second) {
		t.Error("selection state should change the frame")
	}
}
