// Package wire maps form documents to and from the two external JSON
// schemas: the backend's "complex form create" shape and the AI service's
// form-suggestion shape. Decoding is all-or-nothing: a malformed payload
// never leaves a partially rebuilt document behind.
package wire

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Form types accepted by the backend.
const (
	FormTypeDraft     = "draft"
	FormTypePublished = "published"
	FormTypeSuggested = "suggested"
)

// UserRef identifies the owner in a create request.
type UserRef struct {
	ID int `json:"id"`
}

// FormPayload is the form envelope of a complex create request.
type FormPayload struct {
	FormName        string  `json:"form_name"`
	FormType        string  `json:"form_type"`
	FormDescription string  `json:"form_description"`
	Visibility      string  `json:"visibility"`
	Deadline        *string `json:"deadline"`
	FormLink        string  `json:"form_link,omitempty"`
	User            *UserRef `json:"user"`
}

// ChoicePayload is how choices are sent to the backend.
type ChoicePayload struct {
	Text string `json:"text"`
}

// QuestionPayload is one question in a create request.
type QuestionPayload struct {
	QuestionText string          `json:"question_text"`
	QuestionType string          `json:"question_type"` // "text" or "select"
	AnswerType   string          `json:"answer_type"`
	Required     bool            `json:"required"`
	Choices      []ChoicePayload `json:"choices,omitempty"`
}

// CategoryPayload is one section in a create request.
type CategoryPayload struct {
	CategoryName string            `json:"category_name"`
	Questions    []QuestionPayload `json:"questions"`
}

// ComplexCreateRequest is the body of POST /forms/complex.
type ComplexCreateRequest struct {
	Form       FormPayload       `json:"form"`
	Categories []CategoryPayload `json:"categories"`
}

// Choice accepts the two shapes the AI service emits for a choice entry:
// a raw string or a {"text": ...} object. Both normalize to the plain text.
type Choice struct {
	Text string
}

func (c *Choice) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		return nil
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("choice is neither a string nor a {text} object: %w", err)
	}
	c.Text = obj.Text
	return nil
}

func (c Choice) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Text)
}

// InboundQuestion is a question as returned by the backend or suggested by
// the AI service. Backend payloads carry ids; AI payloads do not.
type InboundQuestion struct {
	ID           int      `json:"id,omitempty"`
	QuestionText string   `json:"question_text"`
	QuestionType string   `json:"question_type"`
	AnswerType   string   `json:"answer_type"`
	Required     bool     `json:"required"`
	Choices      []Choice `json:"choices,omitempty"`
}

// InboundCategory is a section on the inbound wire.
type InboundCategory struct {
	ID           int               `json:"id,omitempty"`
	CategoryName string            `json:"category_name"`
	Questions    []InboundQuestion `json:"questions"`
}

// InboundForm is the full form shape: backend fetches and AI generations
// share it, the former adding backend-assigned ids and form metadata.
type InboundForm struct {
	ID              int               `json:"id,omitempty"`
	FormName        string            `json:"form_name"`
	FormType        string            `json:"form_type,omitempty"`
	FormDescription string            `json:"form_description"`
	FormLink        string            `json:"form_link,omitempty"`
	Deadline        *string           `json:"deadline,omitempty"`
	Categories      []InboundCategory `json:"categories"`
}

// DecodeError signals a malformed or structurally incomplete wire payload.
// The document being decoded into is guaranteed untouched.
type DecodeError struct {
	Msg string
	Err error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return "decode: " + e.Msg + ": " + e.Err.Error()
	}
	return "decode: " + e.Msg
}

func (e *DecodeError) Unwrap() error { return e.Err }
