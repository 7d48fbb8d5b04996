// Package publish implements the workflow that takes an editing session
// from draft saves through deadline selection to a published shareable
// link. The workflow is a pure value: transitions return an updated copy or
// an error, and a rejected transition leaves everything exactly as it was.
package publish

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// State names one node of the workflow.
type State string

const (
	// StateEditing is the resting state of an open builder session.
	StateEditing State = "editing"
	// StateDraftSaved marks a completed draft save; editing may resume.
	StateDraftSaved State = "draft_saved"
	// StateAwaitingDeadline means the publish dialog is open and the
	// deadline is being assembled.
	StateAwaitingDeadline State = "awaiting_deadline"
	// StatePublished is the terminal display state exposing the link.
	StatePublished State = "published"
)

var (
	ErrNotEditing          = errors.New("publish workflow: not in editing state")
	ErrNotAwaitingDeadline = errors.New("publish workflow: deadline not being selected")
	ErrDeadlineIncomplete  = errors.New("publish workflow: date, hour and minute must all be set")
	ErrDateInPast          = errors.New("publish workflow: deadline date is in the past")
)

// Workflow is the publish state of one builder session.
type Workflow struct {
	State  State  `json:"state"`
	Date   string `json:"date,omitempty"`   // "2006-01-02"
	Hour   string `json:"hour,omitempty"`   // "00".."23"
	Minute string `json:"minute,omitempty"` // "00".."59"
	Link   string `json:"link,omitempty"`
}

// New returns a workflow at rest.
func New() Workflow {
	return Workflow{State: StateEditing}
}

// SaveDraft records a completed draft save. Saving is only meaningful from
// the editing state; the publish dialog has its own path.
func (w Workflow) SaveDraft() (Workflow, error) {
	if w.State != StateEditing && w.State != StateDraftSaved {
		return w, fmt.Errorf("%w: state is %q", ErrNotEditing, w.State)
	}
	w.State = StateDraftSaved
	return w, nil
}

// Resume returns to editing after a draft save or after closing the link
// dialog. The deadline selection is cleared.
func (w Workflow) Resume() Workflow {
	return Workflow{State: StateEditing}
}

// OpenDeadlineDialog starts deadline selection. No precondition beyond
// being in (or returning to) the editing state.
func (w Workflow) OpenDeadlineDialog() (Workflow, error) {
	if w.State != StateEditing && w.State != StateDraftSaved {
		return w, fmt.Errorf("%w: state is %q", ErrNotEditing, w.State)
	}
	w.State = StateAwaitingDeadline
	w.Date, w.Hour, w.Minute = "", "", ""
	return w, nil
}

// SetDeadlineParts records the three deadline components. Empty strings
// leave the corresponding part unset.
func (w Workflow) SetDeadlineParts(date, hour, minute string) (Workflow, error) {
	if w.State != StateAwaitingDeadline {
		return w, fmt.Errorf("%w: state is %q", ErrNotAwaitingDeadline, w.State)
	}
	w.Date, w.Hour, w.Minute = date, hour, minute
	return w, nil
}

// Deadline combines the selected date, hour and minute into a single
// instant with seconds zeroed. It fails if any component is unset or
// malformed, or if the calendar date lies strictly before today.
func (w Workflow) Deadline(now time.Time) (time.Time, error) {
	if w.Date == "" || w.Hour == "" || w.Minute == "" {
		return time.Time{}, ErrDeadlineIncomplete
	}
	day, err := time.ParseInLocation("2006-01-02", w.Date, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("publish workflow: bad date %q: %w", w.Date, err)
	}
	hour, err := strconv.Atoi(w.Hour)
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("publish workflow: bad hour %q", w.Hour)
	}
	minute, err := strconv.Atoi(w.Minute)
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("publish workflow: bad minute %q", w.Minute)
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if day.Before(today) {
		return time.Time{}, ErrDateInPast
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location()), nil
}

// Publish completes the workflow with the minted link token. The
// transition is only taken when the deadline validates; otherwise the
// workflow is returned unchanged alongside the error.
func (w Workflow) Publish(now time.Time, link string) (Workflow, error) {
	if w.State != StateAwaitingDeadline {
		return w, fmt.Errorf("%w: state is %q", ErrNotAwaitingDeadline, w.State)
	}
	if _, err := w.Deadline(now); err != nil {
		return w, err
	}
	w.State = StatePublished
	w.Link = link
	return w, nil
}
