package respond

import (
	"strings"
	"testing"
	"time"

	"github.com/orms-project/orms/internal/wire"
)

func TestNewChallengeValue(t *testing.T) {
	for i := 0; i < 50; i++ {
		v := NewChallengeValue()
		if len(v) != captchaLength {
			t.Fatalf("length = %d, want %d", len(v), captchaLength)
		}
		for _, c := range v {
			if !strings.ContainsRune(captchaAlphabet, c) {
				t.Fatalf("value %q contains %q", v, c)
			}
		}
	}
}

func TestCaptchaStore_VerifyConsumes(t *testing.T) {
	s := NewCaptchaStore(time.Minute)
	c := s.Issue()

	if !s.Verify(c.ID, c.Value) {
		t.Fatal("correct input rejected")
	}
	// Consumed: the same challenge never verifies twice.
	if s.Verify(c.ID, c.Value) {
		t.Error("challenge verified twice")
	}
}

func TestCaptchaStore_MismatchConsumes(t *testing.T) {
	s := NewCaptchaStore(time.Minute)
	c := s.Issue()

	if s.Verify(c.ID, "wrong") {
		t.Fatal("wrong input accepted")
	}
	// The failed attempt burned the challenge.
	if s.Verify(c.ID, c.Value) {
		t.Error("challenge survived a failed attempt")
	}
}

func TestCaptchaStore_Expiry(t *testing.T) {
	s := NewCaptchaStore(time.Minute)
	c := s.Issue()
	s.mu.Lock()
	stale := s.challenges[c.ID]
	stale.IssuedAt = time.Now().Add(-2 * time.Minute)
	s.challenges[c.ID] = stale
	s.mu.Unlock()

	if s.Verify(c.ID, c.Value) {
		t.Error("expired challenge accepted")
	}
}

func required(id int, answerType string) wire.InboundQuestion {
	return wire.InboundQuestion{ID: id, QuestionText: "q", AnswerType: answerType, Required: true}
}

func sampleForm() wire.InboundForm {
	return wire.InboundForm{
		ID: 42,
		Categories: []wire.InboundCategory{{
			CategoryName: "Identité",
			Questions: []wire.InboundQuestion{
				required(1, "question courte"),
				{ID: 2, QuestionText: "optional", AnswerType: "question longue"},
				required(3, "document"),
			},
		}},
	}
}

func TestValidateSubmission_MissingRequired(t *testing.T) {
	err := ValidateSubmission(sampleForm(), Submission{
		Answers: map[int]Answer{1: {Text: "Sam"}},
	})
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(ve.QuestionIDs) != 1 || ve.QuestionIDs[0] != 3 {
		t.Errorf("offending questions = %v, want [3]", ve.QuestionIDs)
	}
}

func TestValidateSubmission_FileSatisfiesFileQuestion(t *testing.T) {
	err := ValidateSubmission(sampleForm(), Submission{
		Answers: map[int]Answer{1: {Text: "Sam"}},
		Files:   map[int]FileMeta{3: {Name: "cv.pdf", Size: 1024}},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestValidateSubmission_EmptyAnswerCountsAsMissing(t *testing.T) {
	err := ValidateSubmission(sampleForm(), Submission{
		Answers: map[int]Answer{1: {}},
		Files:   map[int]FileMeta{3: {Name: "cv.pdf", Size: 1024}},
	})
	if err == nil {
		t.Fatal("empty answer accepted for a required question")
	}
}

func TestCheckUpload(t *testing.T) {
	exts := []string{".pdf", ".doc"}

	if err := CheckUpload(FileMeta{Name: "cv.pdf", Size: 1024}, exts, 5); err != nil {
		t.Errorf("valid upload rejected: %v", err)
	}
	if err := CheckUpload(FileMeta{Name: "CV.PDF", Size: 1024}, exts, 5); err != nil {
		t.Errorf("extension check should ignore case: %v", err)
	}
	if err := CheckUpload(FileMeta{Name: "virus.exe", Size: 1024}, exts, 5); err == nil {
		t.Error("disallowed extension accepted")
	}
	if err := CheckUpload(FileMeta{Name: "big.pdf", Size: 6 << 20}, exts, 5); err == nil {
		t.Error("oversized file accepted")
	}
	if err := CheckUpload(FileMeta{Name: "edge.pdf", Size: 5 << 20}, exts, 5); err != nil {
		t.Errorf("file at exactly the limit rejected: %v", err)
	}
}

func TestAnswerFormatted(t *testing.T) {
	d := time.Date(2026, 9, 1, 15, 4, 5, 0, time.UTC)
	cases := []struct {
		in   Answer
		want string
	}{
		{Answer{Text: "hello"}, "hello"},
		{Answer{Values: []string{"a", "b"}}, "a, b"},
		{Answer{Date: &d}, "2026-09-01"},
	}
	for _, c := range cases {
		if got := c.in.Formatted(); got != c.want {
			t.Errorf("Formatted() = %q, want %q", got, c.want)
		}
	}
}

func TestBuildEntries_SkipsEmptyAndFiles(t *testing.T) {
	rows := BuildEntries(sampleForm(), Submission{
		Answers: map[int]Answer{
			1: {Text: "Sam"},
			2: {}, // answered empty, dropped
			3: {Text: "should be ignored, file question"},
		},
	})
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].QuestionID != 1 || rows[0].FormID != 42 || rows[0].Answer != "Sam" {
		t.Errorf("row = %+v", rows[0])
	}
}

func TestDeadlinePassed(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	past := "2026-08-29T11:00:00Z"
	future := "2026-08-29T13:00:00Z"

	f := wire.InboundForm{Deadline: &past}
	if !DeadlinePassed(f, now) {
		t.Error("past deadline not detected")
	}
	f.Deadline = &future
	if DeadlinePassed(f, now) {
		t.Error("future deadline reported as passed")
	}
	f.Deadline = nil
	if DeadlinePassed(f, now) {
		t.Error("form without deadline reported as passed")
	}
}
