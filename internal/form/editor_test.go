package form

import "testing"

func TestEditor_AddSectionFocusesIt(t *testing.T) {
	e := NewEditor().AddSection()
	if e.ActiveSection != 1 || e.ActiveQuestion != 0 {
		t.Errorf("cursor = (%d, %d), want (1, 0)", e.ActiveSection, e.ActiveQuestion)
	}
}

func TestEditor_RemoveSectionMovesCursorBack(t *testing.T) {
	e := NewEditor().AddSection().AddSection()
	e, err := e.RemoveSection(2)
	if err != nil {
		t.Fatal(err)
	}
	if e.ActiveSection != 1 {
		t.Errorf("active section = %d, want 1", e.ActiveSection)
	}

	e, err = e.RemoveSection(0)
	if err != nil {
		t.Fatal(err)
	}
	// Removing the first section never sends the cursor negative.
	if e.ActiveSection != 0 {
		t.Errorf("active section = %d, want 0", e.ActiveSection)
	}
}

func TestEditor_RemoveSectionError_LeavesCursor(t *testing.T) {
	e := NewEditor().AddSection()
	before := e.ActiveSection
	e2, err := e.RemoveSection(7)
	if err == nil {
		t.Fatal("expected an index error")
	}
	if e2.ActiveSection != before {
		t.Errorf("cursor moved on failed removal: %d", e2.ActiveSection)
	}
}

func TestEditor_ReorderFollowsActiveSection(t *testing.T) {
	e := NewEditor().AddSection().AddSection() // active = 2
	e, err := e.ReorderSections(2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if e.ActiveSection != 0 {
		t.Errorf("active section = %d, want 0 (followed the move)", e.ActiveSection)
	}

	// Active sitting at the destination swaps to the source slot.
	e, err = e.ReorderSections(2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if e.ActiveSection != 2 {
		t.Errorf("active section = %d, want 2 (swapped with source)", e.ActiveSection)
	}
}

func TestEditor_AddQuestionFocusesIt(t *testing.T) {
	e := NewEditor()
	e, err := e.AddQuestion(0)
	if err != nil {
		t.Fatal(err)
	}
	if e.ActiveSection != 0 || e.ActiveQuestion != 1 {
		t.Errorf("cursor = (%d, %d), want (0, 1)", e.ActiveSection, e.ActiveQuestion)
	}
}

func TestEditor_RemoveQuestionOnlyMovesCursorInActiveSection(t *testing.T) {
	e := NewEditor().AddSection() // active section 1
	e, err := e.AddQuestion(1)
	if err != nil {
		t.Fatal(err)
	}
	// Removal in section 0 leaves the cursor alone.
	e, err = e.RemoveQuestion(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if e.ActiveQuestion != 1 {
		t.Errorf("active question = %d, want 1", e.ActiveQuestion)
	}
	// Removal in the active section pulls it back.
	e, err = e.RemoveQuestion(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if e.ActiveQuestion != 0 {
		t.Errorf("active question = %d, want 0", e.ActiveQuestion)
	}
}

func TestEditor_ReplaceResetsCursor(t *testing.T) {
	e := NewEditor().AddSection()
	e = e.Replace(NewDocument())
	if e.ActiveSection != 0 || e.ActiveQuestion != 0 {
		t.Errorf("cursor = (%d, %d), want (0, 0)", e.ActiveSection, e.ActiveQuestion)
	}
}
