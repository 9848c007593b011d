// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

// Question is one page of an AskUserQuestion session, extracted from
// the opaque tool input.
type Question struct {
	// Text is the question itself, and the key under which its answer
	// is reported back.
	Text string

	// Header is the short title shown above the page.
	Header string

	// MultiSelect allows several options to be selected; the answer
	// becomes the sorted labels joined with ", ".
	MultiSelect bool

	Options []QuestionOption
}

// QuestionOption is one selectable option of a question page.
type QuestionOption struct {
	Label       string
	Description string
}

// QuestionsFromToolInput extracts the question pages from an
// AskUserQuestion tool input. The input tree is agent-controlled, so
// extraction is tolerant: missing or mistyped fields yield zero values
// and entries that are not objects are skipped. An absent or empty
// "questions" key returns nil, which callers treat as "not an ask
// session after all".
func QuestionsFromToolInput(toolInput map[string]any) []Question {
	raw, ok := toolInput["questions"].([]any)
	if !ok || len(raw) == 0 {
		return nil
	}

	questions := make([]Question, 0, len(raw))
	for _, entry := range raw {
		object, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		question := Question{
			Text:        stringField(object, "question"),
			Header:      stringField(object, "header"),
			MultiSelect: boolField(object, "multiSelect"),
		}
		if options, ok := object["options"].([]any); ok {
			for _, optionEntry := range options {
				optionObject, ok := optionEntry.(map[string]any)
				if !ok {
					continue
				}
				question.Options = append(question.Options, QuestionOption{
					Label:       stringField(optionObject, "label"),
					Description: stringField(optionObject, "description"),
				})
			}
		}
		questions = append(questions, question)
	}
	if len(questions) == 0 {
		return nil
	}
	return questions
}

func stringField(object map[string]any, key string) string {
	value, _ := object[key].(string)
	return value
}

func boolField(object map[string]any, key string) bool {
	value, _ := object[key].(bool)
	return value
}
