package respond

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/orms-project/orms/internal/form"
	"github.com/orms-project/orms/internal/wire"
)

// ValidationError reports a submission problem detected before any network
// call. QuestionIDs points at the offending fields when the problem is
// per-question.
type ValidationError struct {
	Msg         string
	QuestionIDs []int
}

func (e *ValidationError) Error() string { return "validation: " + e.Msg }

// Submission is a respondent's filled-in form.
type Submission struct {
	// Answers maps question id to the raw answer. Multi-valued answers
	// arrive as a slice and are joined on formatting.
	Answers map[int]Answer
	// Files maps question id to the (single) uploaded file's metadata.
	Files map[int]FileMeta
}

// Answer is one answer value.
type Answer struct {
	Text   string
	Values []string   // set for multi-valued answers
	Date   *time.Time // set for date answers
}

// Formatted renders the answer the way the backend stores it: slices
// joined with ", ", dates as yyyy-MM-dd.
func (a Answer) Formatted() string {
	switch {
	case len(a.Values) > 0:
		return strings.Join(a.Values, ", ")
	case a.Date != nil:
		return a.Date.Format("2006-01-02")
	default:
		return a.Text
	}
}

// Empty reports whether the answer carries no value.
func (a Answer) Empty() bool {
	return a.Text == "" && len(a.Values) == 0 && a.Date == nil
}

// FileMeta describes an upload without holding its content.
type FileMeta struct {
	Name string
	Size int64
}

// DeadlinePassed reports whether the form's deadline lies behind now. Forms
// without a deadline never close.
func DeadlinePassed(f wire.InboundForm, now time.Time) bool {
	if f.Deadline == nil || *f.Deadline == "" {
		return false
	}
	deadline, err := time.Parse(time.RFC3339, *f.Deadline)
	if err != nil {
		return false
	}
	return now.After(deadline)
}

func isFileQuestion(q wire.InboundQuestion) bool {
	return q.AnswerType == "document" || q.AnswerType == "pdf"
}

// ValidateSubmission checks required answers and upload policy against the
// published form. It returns a ValidationError naming every offending
// question; nil means the submission may be sent.
func ValidateSubmission(f wire.InboundForm, sub Submission) error {
	var missing []int
	for _, cat := range f.Categories {
		for _, q := range cat.Questions {
			if !q.Required {
				continue
			}
			if isFileQuestion(q) {
				if _, ok := sub.Files[q.ID]; !ok {
					missing = append(missing, q.ID)
				}
				continue
			}
			if a, ok := sub.Answers[q.ID]; !ok || a.Empty() {
				missing = append(missing, q.ID)
			}
		}
	}
	if len(missing) > 0 {
		return &ValidationError{
			Msg:         fmt.Sprintf("%d required questions unanswered", len(missing)),
			QuestionIDs: missing,
		}
	}
	for id, meta := range sub.Files {
		if err := CheckUpload(meta, form.DefaultExtensions, form.DefaultMaxSizeMB); err != nil {
			ve := err.(*ValidationError)
			ve.QuestionIDs = []int{id}
			return ve
		}
	}
	return nil
}

// CheckUpload enforces the extension allow-list and size limit on one file.
func CheckUpload(meta FileMeta, allowedExts []string, maxSizeMB int) error {
	ext := strings.ToLower(filepath.Ext(meta.Name))
	allowed := false
	for _, e := range allowedExts {
		if strings.EqualFold(e, ext) {
			allowed = true
			break
		}
	}
	if !allowed {
		return &ValidationError{Msg: fmt.Sprintf("file type %q not allowed", ext)}
	}
	if meta.Size > int64(maxSizeMB)*1024*1024 {
		return &ValidationError{Msg: fmt.Sprintf("file exceeds %d MB limit", maxSizeMB)}
	}
	return nil
}

// BuildEntries turns a validated submission into the backend's response
// rows. Empty answers are skipped; file answers travel separately via the
// upload endpoint.
func BuildEntries(f wire.InboundForm, sub Submission) []ResponseRow {
	var rows []ResponseRow
	for _, cat := range f.Categories {
		for _, q := range cat.Questions {
			if isFileQuestion(q) {
				continue
			}
			a, ok := sub.Answers[q.ID]
			if !ok || a.Empty() {
				continue
			}
			rows = append(rows, ResponseRow{
				QuestionID: q.ID,
				FormID:     f.ID,
				Answer:     a.Formatted(),
			})
		}
	}
	return rows
}

// ResponseRow is one answer bound for the backend.
type ResponseRow struct {
	QuestionID int
	FormID     int
	Answer     string
}
