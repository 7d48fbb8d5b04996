package form

import (
	"errors"
	"fmt"
)

// Operation errors. Handlers map these to 400 responses; nothing here
// touches the network.
var (
	ErrSectionIndex  = errors.New("section index out of range")
	ErrQuestionIndex = errors.New("question index out of range")
	ErrChoiceIndex   = errors.New("choice index out of range")
	ErrLastSection   = errors.New("a form must keep at least one section")
	ErrNotChoiceType = errors.New("question type carries no choices")
	ErrUnknownType   = errors.New("unknown question type")
)

func (d Document) section(idx int) error {
	if idx < 0 || idx >= len(d.Sections) {
		return fmt.Errorf("%w: %d", ErrSectionIndex, idx)
	}
	return nil
}

func (d Document) question(sIdx, qIdx int) error {
	if err := d.section(sIdx); err != nil {
		return err
	}
	if qIdx < 0 || qIdx >= len(d.Sections[sIdx].Questions) {
		return fmt.Errorf("%w: %d", ErrQuestionIndex, qIdx)
	}
	return nil
}

// AddSection appends a new section holding one default question. Both ids
// come from the document's counters.
func AddSection(d Document) Document {
	out := d.Clone()
	out.Sections = append(out.Sections, Section{
		ID:   out.NextSectionID,
		Name: fmt.Sprintf("Section %d", len(out.Sections)+1),
		Questions: []Question{{
			ID:       out.NextQuestionID,
			Type:     ShortText,
			Required: true,
			Title:    DefaultQuestionTitle,
		}},
	})
	out.NextSectionID++
	out.NextQuestionID++
	return out
}

// RemoveSection removes the section at idx. Removing the last remaining
// section is refused: the document invariant requires at least one.
func RemoveSection(d Document, idx int) (Document, error) {
	if err := d.section(idx); err != nil {
		return d, err
	}
	if len(d.Sections) == 1 {
		return d, ErrLastSection
	}
	out := d.Clone()
	out.Sections = append(out.Sections[:idx], out.Sections[idx+1:]...)
	return out, nil
}

// ReorderSections moves the section at src to dst, shifting the ones in
// between. Equal indices are a no-op.
func ReorderSections(d Document, src, dst int) (Document, error) {
	if err := d.section(src); err != nil {
		return d, err
	}
	if err := d.section(dst); err != nil {
		return d, err
	}
	if src == dst {
		return d, nil
	}
	out := d.Clone()
	moved := out.Sections[src]
	out.Sections = append(out.Sections[:src], out.Sections[src+1:]...)
	rest := append([]Section(nil), out.Sections[dst:]...)
	out.Sections = append(out.Sections[:dst], moved)
	out.Sections = append(out.Sections, rest...)
	return out, nil
}

// AddQuestion appends a default question to the section at sIdx.
func AddQuestion(d Document, sIdx int) (Document, error) {
	if err := d.section(sIdx); err != nil {
		return d, err
	}
	out := d.Clone()
	out.Sections[sIdx].Questions = append(out.Sections[sIdx].Questions, Question{
		ID:       out.NextQuestionID,
		Type:     ShortText,
		Required: true,
		Title:    DefaultQuestionTitle,
	})
	out.NextQuestionID++
	return out, nil
}

// RemoveQuestion removes the question at qIdx from the section at sIdx.
func RemoveQuestion(d Document, sIdx, qIdx int) (Document, error) {
	if err := d.question(sIdx, qIdx); err != nil {
		return d, err
	}
	out := d.Clone()
	qs := out.Sections[sIdx].Questions
	out.Sections[sIdx].Questions = append(qs[:qIdx], qs[qIdx+1:]...)
	return out, nil
}

// SetQuestionType changes a question's type. The change is destructive:
// choices and config are reset to the defaults of the new type, and the old
// ones are discarded with no undo.
func SetQuestionType(d Document, sIdx, qIdx int, t QuestionType) (Document, error) {
	if err := d.question(sIdx, qIdx); err != nil {
		return d, err
	}
	if !t.Valid() {
		return d, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	out := d.Clone()
	q := &out.Sections[sIdx].Questions[qIdx]
	q.Type = t
	q.Choices = DefaultChoices(t)
	q.Config = DefaultConfig(t)
	return out, nil
}

// AddChoice appends a default-labeled choice ("Option N") to a
// choice-bearing question.
func AddChoice(d Document, sIdx, qIdx int) (Document, error) {
	if err := d.question(sIdx, qIdx); err != nil {
		return d, err
	}
	if !d.Sections[sIdx].Questions[qIdx].Type.HasChoices() {
		return d, ErrNotChoiceType
	}
	out := d.Clone()
	q := &out.Sections[sIdx].Questions[qIdx]
	q.Choices = append(q.Choices, fmt.Sprintf("Option %d", len(q.Choices)+1))
	return out, nil
}

// EditChoice replaces the choice at cIdx with value.
func EditChoice(d Document, sIdx, qIdx, cIdx int, value string) (Document, error) {
	if err := d.question(sIdx, qIdx); err != nil {
		return d, err
	}
	q := d.Sections[sIdx].Questions[qIdx]
	if !q.Type.HasChoices() {
		return d, ErrNotChoiceType
	}
	if cIdx < 0 || cIdx >= len(q.Choices) {
		return d, fmt.Errorf("%w: %d", ErrChoiceIndex, cIdx)
	}
	out := d.Clone()
	out.Sections[sIdx].Questions[qIdx].Choices[cIdx] = value
	return out, nil
}

// RemoveChoice deletes the choice at cIdx.
func RemoveChoice(d Document, sIdx, qIdx, cIdx int) (Document, error) {
	if err := d.question(sIdx, qIdx); err != nil {
		return d, err
	}
	q := d.Sections[sIdx].Questions[qIdx]
	if !q.Type.HasChoices() {
		return d, ErrNotChoiceType
	}
	if cIdx < 0 || cIdx >= len(q.Choices) {
		return d, fmt.Errorf("%w: %d", ErrChoiceIndex, cIdx)
	}
	out := d.Clone()
	cs := out.Sections[sIdx].Questions[qIdx].Choices
	out.Sections[sIdx].Questions[qIdx].Choices = append(cs[:cIdx], cs[cIdx+1:]...)
	return out, nil
}

// SetTitle replaces the form title.
func SetTitle(d Document, title string) Document {
	out := d.Clone()
	out.Title = title
	return out
}

// SetDescription replaces the form description.
func SetDescription(d Document, desc string) Document {
	out := d.Clone()
	out.Description = desc
	return out
}

// RenameSection replaces the name of the section at idx.
func RenameSection(d Document, idx int, name string) (Document, error) {
	if err := d.section(idx); err != nil {
		return d, err
	}
	out := d.Clone()
	out.Sections[idx].Name = name
	return out, nil
}

// SetQuestionTitle replaces a question's prompt.
func SetQuestionTitle(d Document, sIdx, qIdx int, title string) (Document, error) {
	if err := d.question(sIdx, qIdx); err != nil {
		return d, err
	}
	out := d.Clone()
	out.Sections[sIdx].Questions[qIdx].Title = title
	return out, nil
}

// SetQuestionRequired toggles a question's required flag.
func SetQuestionRequired(d Document, sIdx, qIdx int, required bool) (Document, error) {
	if err := d.question(sIdx, qIdx); err != nil {
		return d, err
	}
	out := d.Clone()
	out.Sections[sIdx].Questions[qIdx].Required = required
	return out, nil
}

// updateConfig applies fn to the question's config after checking it holds
// the expected variant. A missing config is replaced by the type's default
// before fn runs, mirroring the "merge into empty object" behavior of the
// stored shape.
func updateConfig[C AnswerConfig](d Document, sIdx, qIdx int, fn func(C)) (Document, error) {
	if err := d.question(sIdx, qIdx); err != nil {
		return d, err
	}
	out := d.Clone()
	q := &out.Sections[sIdx].Questions[qIdx]
	if q.Config == nil {
		q.Config = DefaultConfig(q.Type)
	}
	cfg, ok := q.Config.(C)
	if !ok {
		return d, fmt.Errorf("question type %q carries no such config", q.Type)
	}
	fn(cfg)
	return out, nil
}

// SetDocumentExtensions replaces the upload allow-list of a document
// question.
func SetDocumentExtensions(d Document, sIdx, qIdx int, exts []string) (Document, error) {
	return updateConfig(d, sIdx, qIdx, func(c *DocumentConfig) {
		c.Extensions = append([]string(nil), exts...)
	})
}

// SetDocumentMaxSize replaces the upload size limit (MB) of a document
// question.
func SetDocumentMaxSize(d Document, sIdx, qIdx, maxMB int) (Document, error) {
	return updateConfig(d, sIdx, qIdx, func(c *DocumentConfig) {
		c.MaxSizeMB = maxMB
	})
}

// AttachFile fills the single upload slot of a document question, replacing
// any previous file silently.
func AttachFile(d Document, sIdx, qIdx int, file AttachedFile) (Document, error) {
	return updateConfig(d, sIdx, qIdx, func(c *DocumentConfig) {
		f := file
		c.File = &f
	})
}

// DetachFile clears the upload slot of a document question.
func DetachFile(d Document, sIdx, qIdx int) (Document, error) {
	return updateConfig(d, sIdx, qIdx, func(c *DocumentConfig) {
		c.File = nil
	})
}

// SetPhoneFormat switches a phone question between international and
// national notation.
func SetPhoneFormat(d Document, sIdx, qIdx int, format PhoneFormat) (Document, error) {
	if format != PhoneInternational && format != PhoneNational {
		return d, fmt.Errorf("unknown phone format %q", format)
	}
	return updateConfig(d, sIdx, qIdx, func(c *PhoneConfig) {
		c.Format = format
	})
}

// SetNumberBounds sets the reserved min/max bounds of a number question.
// Nil clears a bound.
func SetNumberBounds(d Document, sIdx, qIdx int, min, max *float64) (Document, error) {
	return updateConfig(d, sIdx, qIdx, func(c *NumberConfig) {
		c.Min, c.Max = min, max
	})
}

// SetEmailDomains replaces the allowed-domain list of an email question.
func SetEmailDomains(d Document, sIdx, qIdx int, domains []string) (Document, error) {
	return updateConfig(d, sIdx, qIdx, func(c *EmailConfig) {
		c.Domains = append([]string(nil), domains...)
	})
}
