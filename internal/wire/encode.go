package wire

import (
	"time"

	"github.com/orms-project/orms/internal/form"
)

// EncodeOptions carries the per-submission fields that accompany the
// document itself.
type EncodeOptions struct {
	FormType string // FormTypeDraft or FormTypePublished
	Deadline *time.Time
	Link     string // required for published forms, empty for drafts
	User     *UserRef
}

// EncodeComplex builds the complex create request for a document. The
// mapping is deterministic: encoding the same document with the same
// options twice yields identical payloads. Link tokens are minted by the
// caller (see NewLinkToken), so publish encodes differ only there.
func EncodeComplex(doc form.Document, opts EncodeOptions) ComplexCreateRequest {
	name := doc.Title
	if name == "" {
		name = form.DefaultTitle
	}

	var deadline *string
	if opts.Deadline != nil {
		s := opts.Deadline.UTC().Format(time.RFC3339)
		deadline = &s
	}

	req := ComplexCreateRequest{
		Form: FormPayload{
			FormName:        name,
			FormType:        opts.FormType,
			FormDescription: doc.Description,
			Visibility:      "public",
			Deadline:        deadline,
			User:            opts.User,
		},
		Categories: make([]CategoryPayload, 0, len(doc.Sections)),
	}
	if opts.FormType == FormTypePublished {
		req.Form.FormLink = opts.Link
	}

	for _, s := range doc.Sections {
		cat := CategoryPayload{
			CategoryName: s.Name,
			Questions:    make([]QuestionPayload, 0, len(s.Questions)),
		}
		for _, q := range s.Questions {
			qp := QuestionPayload{
				QuestionText: q.Title,
				QuestionType: QuestionTypeOf(q.Type),
				AnswerType:   AnswerTypeLabel(q.Type),
				Required:     q.Required,
			}
			if q.Type.HasChoices() && len(q.Choices) > 0 {
				qp.Choices = make([]ChoicePayload, len(q.Choices))
				for i, c := range q.Choices {
					qp.Choices[i] = ChoicePayload{Text: c}
				}
			}
			cat.Questions = append(cat.Questions, qp)
		}
		req.Categories = append(req.Categories, cat)
	}
	return req
}

// EncodeSuggestion renders a document in the AI service's form shape, used
// as conversation context ("currentForm") so the service can refine what
// the user already built.
func EncodeSuggestion(doc form.Document) InboundForm {
	name := doc.Title
	if name == "" {
		name = form.DefaultTitle
	}
	out := InboundForm{
		FormName:        name,
		FormDescription: doc.Description,
		Categories:      make([]InboundCategory, 0, len(doc.Sections)),
	}
	for _, s := range doc.Sections {
		cat := InboundCategory{
			CategoryName: s.Name,
			Questions:    make([]InboundQuestion, 0, len(s.Questions)),
		}
		for _, q := range s.Questions {
			iq := InboundQuestion{
				QuestionText: q.Title,
				QuestionType: QuestionTypeOf(q.Type),
				AnswerType:   AnswerTypeLabel(q.Type),
				Required:     q.Required,
			}
			if q.Type.HasChoices() {
				iq.Choices = make([]Choice, len(q.Choices))
				for i, c := range q.Choices {
					iq.Choices[i] = Choice{Text: c}
				}
			}
			cat.Questions = append(cat.Questions, iq)
		}
		out.Categories = append(out.Categories, cat)
	}
	return out
}
