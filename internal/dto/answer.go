package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ErrInvalidAnswer indicates an answer value is neither a string nor an object.
var ErrInvalidAnswer = errors.New("answer must be a string or an object")

// AnswerKind tags which shape a submitted answer arrived in.
type AnswerKind int

const (
	// AnswerBare is a plain string answer.
	AnswerBare AnswerKind = iota + 1
	// AnswerStructured is an object with optional text and selected option.
	AnswerStructured
)

// Answer is a submitted answer, resolved once when the request is decoded.
// Any is_correct value on input is discarded.
type Answer struct {
	kind           AnswerKind
	text           *string
	selectedOption *string
}

// BareAnswer builds a plain string answer.
func BareAnswer(text string) Answer {
	return Answer{kind: AnswerBare, text: &text}
}

// StructuredAnswer builds an object answer; either field may be nil.
func StructuredAnswer(text, selectedOption *string) Answer {
	return Answer{kind: AnswerStructured, text: text, selectedOption: selectedOption}
}

// Kind returns the shape the answer arrived in.
func (a Answer) Kind() AnswerKind {
	return a.kind
}

// Present reports whether an answer was supplied at all; an explicit null is
// treated as unanswered.
func (a Answer) Present() bool {
	return a.kind != 0
}

// Text returns the free-text content of the answer, trimmed.
func (a Answer) Text() string {
	if a.text == nil {
		return ""
	}
	return strings.TrimSpace(*a.text)
}

// Selection returns the chosen option. A bare answer is its own selection.
func (a Answer) Selection() (string, bool) {
	switch a.kind {
	case AnswerBare:
		return *a.text, true
	case AnswerStructured:
		if a.selectedOption == nil {
			return "", false
		}
		return *a.selectedOption, true
	default:
		return "", false
	}
}

// RawText exposes the untrimmed text field for persistence.
func (a Answer) RawText() *string {
	return a.text
}

// RawSelection exposes the selected option field for persistence.
func (a Answer) RawSelection() *string {
	return a.selectedOption
}

type structuredAnswerPayload struct {
	Text           *string `json:"text,omitempty"`
	SelectedOption *string `json:"selected_option,omitempty"`
}

// UnmarshalJSON resolves the wire shape into the tagged union.
func (a *Answer) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ErrInvalidAnswer
	}

	if bytes.Equal(trimmed, []byte("null")) {
		*a = Answer{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*a = BareAnswer(text)
		return nil
	case '{':
		var payload structuredAnswerPayload
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			return err
		}
		*a = StructuredAnswer(payload.Text, payload.SelectedOption)
		return nil
	default:
		return ErrInvalidAnswer
	}
}

// MarshalJSON writes the answer back in the shape it arrived in.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case AnswerBare:
		return json.Marshal(*a.text)
	case AnswerStructured:
		return json.Marshal(structuredAnswerPayload{Text: a.text, SelectedOption: a.selectedOption})
	default:
		return []byte("null"), nil
	}
}
