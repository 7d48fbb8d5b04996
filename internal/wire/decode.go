package wire

import (
	json "github.com/goccy/go-json"

	"github.com/orms-project/orms/internal/form"
)

// ParseInbound unmarshals a backend or AI form payload and checks its
// structure. A payload without a categories array is rejected outright: an
// empty document built from garbage would be indistinguishable from a
// deliberately empty draft.
func ParseInbound(data []byte) (InboundForm, error) {
	var f InboundForm
	if err := json.Unmarshal(data, &f); err != nil {
		return InboundForm{}, &DecodeError{Msg: "malformed form payload", Err: err}
	}
	if f.Categories == nil {
		return InboundForm{}, &DecodeError{Msg: "missing categories array"}
	}
	return f, nil
}

// Replace rebuilds doc's content from an inbound form: title, description
// and the whole section list are overwritten. New sections and questions
// take fresh local ids continuing from doc's counters. Prior content is
// discarded but its ids are never reissued, so nothing already rendered or
// referenced by a stale callback can collide.
func Replace(doc form.Document, f InboundForm) form.Document {
	out := doc.Clone()
	out.Title = f.FormName
	out.Description = f.FormDescription
	out.Sections = make([]form.Section, 0, len(f.Categories))

	for _, cat := range f.Categories {
		sec := form.Section{
			ID:        out.NextSectionID,
			Name:      cat.CategoryName,
			Questions: make([]form.Question, 0, len(cat.Questions)),
		}
		out.NextSectionID++
		for _, q := range cat.Questions {
			t := TypeForLabel(q.AnswerType)
			nq := form.Question{
				ID:       out.NextQuestionID,
				Type:     t,
				Required: q.Required,
				Title:    q.QuestionText,
				Config:   form.DefaultConfig(t),
			}
			out.NextQuestionID++
			if t.HasChoices() {
				nq.Choices = make([]string, len(q.Choices))
				for i, c := range q.Choices {
					nq.Choices[i] = c.Text
				}
			}
			sec.Questions = append(sec.Questions, nq)
		}
		out.Sections = append(out.Sections, sec)
	}
	return out
}

// Decode parses data and replaces doc's content in one step. On any decode
// error the returned document is doc, unchanged.
func Decode(doc form.Document, data []byte) (form.Document, error) {
	f, err := ParseInbound(data)
	if err != nil {
		return doc, err
	}
	return Replace(doc, f), nil
}
