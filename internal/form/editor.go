package form

// Editor pairs a Document with the builder's active-section and
// active-question cursor. Like the operations it wraps, every method is
// pure: it returns an updated Editor and leaves the receiver untouched, so
// the whole editing flow reduces over (Editor, input) -> Editor.
type Editor struct {
	Doc            Document `json:"doc"`
	ActiveSection  int      `json:"active_section"`
	ActiveQuestion int      `json:"active_question"`
}

// NewEditor starts an editor on the default document.
func NewEditor() Editor {
	return Editor{Doc: NewDocument()}
}

// Replace swaps in a wholly new document, as after an AI generation or a
// draft load, and resets the cursor.
func (e Editor) Replace(d Document) Editor {
	return Editor{Doc: d}
}

// AddSection appends a section and makes it active.
func (e Editor) AddSection() Editor {
	e.Doc = AddSection(e.Doc)
	e.ActiveSection = len(e.Doc.Sections) - 1
	e.ActiveQuestion = 0
	return e
}

// RemoveSection removes the section at idx. The active section becomes
// max(0, idx-1) and the question cursor resets.
func (e Editor) RemoveSection(idx int) (Editor, error) {
	doc, err := RemoveSection(e.Doc, idx)
	if err != nil {
		return e, err
	}
	e.Doc = doc
	e.ActiveSection = max(0, idx-1)
	e.ActiveQuestion = 0
	return e, nil
}

// ReorderSections moves a section. If the active section was the one moved
// it stays active at its new position; if it sat at the destination slot it
// swaps to the source's old position.
func (e Editor) ReorderSections(src, dst int) (Editor, error) {
	doc, err := ReorderSections(e.Doc, src, dst)
	if err != nil {
		return e, err
	}
	e.Doc = doc
	switch e.ActiveSection {
	case src:
		e.ActiveSection = dst
	case dst:
		e.ActiveSection = src
	}
	return e, nil
}

// AddQuestion appends a question to the section at sIdx and focuses it.
func (e Editor) AddQuestion(sIdx int) (Editor, error) {
	doc, err := AddQuestion(e.Doc, sIdx)
	if err != nil {
		return e, err
	}
	e.Doc = doc
	e.ActiveSection = sIdx
	e.ActiveQuestion = len(doc.Sections[sIdx].Questions) - 1
	return e, nil
}

// RemoveQuestion removes a question. The question cursor moves to
// max(0, qIdx-1) only when the removal happened in the active section.
func (e Editor) RemoveQuestion(sIdx, qIdx int) (Editor, error) {
	doc, err := RemoveQuestion(e.Doc, sIdx, qIdx)
	if err != nil {
		return e, err
	}
	e.Doc = doc
	if sIdx == e.ActiveSection {
		e.ActiveQuestion = max(0, qIdx-1)
	}
	return e, nil
}
