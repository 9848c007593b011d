// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package render

// Layout places choice buttons for a permission request on the bottom
// row, right-aligned, and returns (messageKeys, choiceKeys). Choice
// order in the returned slice matches the request's choice order:
// Allow is always bottom-right; with two choices Deny sits left of
// Allow; with three the Always toggle sits between Deny and Allow.
// Works for any grid (3x2 Mini, 5x3 Original, 4x2 Plus).
func Layout(numChoices, cols, rows int) (messageKeys, choiceKeys []int) {
	totalKeys := cols * rows
	bottomRight := totalKeys - 1

	switch {
	case numChoices >= 3:
		choiceKeys = []int{bottomRight, bottomRight - 2, bottomRight - 1}
	case numChoices == 2:
		choiceKeys = []int{bottomRight, bottomRight - 1}
	default:
		choiceKeys = []int{bottomRight}
	}

	isChoice := make(map[int]bool, len(choiceKeys))
	for _, key := range choiceKeys {
		isChoice[key] = true
	}
	for key := 0; key < totalKeys; key++ {
		if !isChoice[key] {
			messageKeys = append(messageKeys, key)
		}
	}
	return messageKeys, choiceKeys
}

// AskLayout places the question wizard's controls: submit/next on the
// bottom-right key, cancel/back on the top-right key, and every
// remaining key available for options in reading order.
func AskLayout(cols, rows int) (optionKeys []int, cancelKey, submitKey int) {
	totalKeys := cols * rows
	submitKey = totalKeys - 1
	cancelKey = cols - 1
	for key := 0; key < totalKeys; key++ {
		if key != submitKey && key != cancelKey {
			optionKeys = append(optionKeys, key)
		}
	}
	return optionKeys, cancelKey, submitKey
}

// MaxAskOptions is how many options fit on one wizard page.
func MaxAskOptions(cols, rows int) int {
	return cols*rows - 2
}

// OpenKey returns the top-right key used for the "jump to terminal"
// button when it is enabled.
func OpenKey(cols int) int {
	return cols - 1
}
