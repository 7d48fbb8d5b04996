// Package handler exposes the builder, AI assistant and respondent HTTP
// APIs.
package handler

import (
	"context"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/orms-project/orms/internal/backend"
	"github.com/orms-project/orms/internal/form"
	"github.com/orms-project/orms/internal/publish"
	"github.com/orms-project/orms/internal/respond"
	"github.com/orms-project/orms/internal/session"
	"github.com/orms-project/orms/internal/wire"
)

// BuilderHandler serves the editing-session API.
type BuilderHandler struct {
	sessions *session.Manager
	backend  *backend.Client
}

// NewBuilderHandler creates a builder handler.
func NewBuilderHandler(sessions *session.Manager, bc *backend.Client) *BuilderHandler {
	return &BuilderHandler{sessions: sessions, backend: bc}
}

// sessionView is what clients see of a session.
type sessionView struct {
	ID             string           `json:"id"`
	Document       form.Document    `json:"document"`
	ActiveSection  int              `json:"active_section"`
	ActiveQuestion int              `json:"active_question"`
	Workflow       publish.Workflow `json:"workflow"`
}

func viewOf(s *session.Session) sessionView {
	return sessionView{
		ID:             s.ID,
		Document:       s.Editor.Doc,
		ActiveSection:  s.Editor.ActiveSection,
		ActiveQuestion: s.Editor.ActiveQuestion,
		Workflow:       s.Workflow,
	}
}

// CreateSession starts a builder session, either on the default document or
// on a form loaded from the backend by id.
func (h *BuilderHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FormID string `json:"form_id,omitempty"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
	}

	s, err := h.sessions.Create(r.Context())
	if err != nil {
		errorToHTTP(w, err)
		return
	}

	if req.FormID != "" {
		inbound, _, err := h.backend.GetForm(r.Context(), bearerToken(r), req.FormID)
		if err != nil {
			h.sessions.Remove(r.Context(), s.ID)
			errorToHTTP(w, err)
			return
		}
		s, err = h.sessions.Update(r.Context(), s.ID, func(s *session.Session) error {
			s.Editor = s.Editor.Replace(wire.Replace(s.Editor.Doc, inbound))
			s.SourceFormID = req.FormID
			s.SourceWasDraft = inbound.FormType == wire.FormTypeDraft
			return nil
		})
		if err != nil {
			errorToHTTP(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, viewOf(s))
}

// GetSession returns the current state of a session.
func (h *BuilderHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	s := h.sessions.Get(r.Context(), id)
	if s == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s))
}

// DeleteSession discards a session without saving, the server-side
// equivalent of navigating away.
func (h *BuilderHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	h.sessions.Remove(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

// opRequest is one editing operation. Which fields matter depends on op.
type opRequest struct {
	Op       string             `json:"op"`
	Section  *int               `json:"section,omitempty"`
	Question *int               `json:"question,omitempty"`
	Choice   *int               `json:"choice,omitempty"`
	To       *int               `json:"to,omitempty"`
	Type     string             `json:"type,omitempty"`
	Value    string             `json:"value,omitempty"`
	Values   []string           `json:"values,omitempty"`
	Required *bool              `json:"required,omitempty"`
	Min      *float64           `json:"min,omitempty"`
	Max      *float64           `json:"max,omitempty"`
	SizeMB   *int               `json:"size_mb,omitempty"`
	File     *form.AttachedFile `json:"file,omitempty"`
}

func idx(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

// ApplyOp applies one editing operation to the session's document. The
// operation either fully applies or the session is left untouched.
func (h *BuilderHandler) ApplyOp(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	var req opRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	s, err := h.sessions.Update(r.Context(), id, func(s *session.Session) error {
		return applyOp(s, req)
	})
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s))
}

func applyOp(s *session.Session, req opRequest) error {
	e := s.Editor
	var err error
	switch req.Op {
	case "add_section":
		e = e.AddSection()
	case "remove_section":
		e, err = e.RemoveSection(idx(req.Section))
	case "reorder_sections":
		e, err = e.ReorderSections(idx(req.Section), idx(req.To))
	case "rename_section":
		e.Doc, err = form.RenameSection(e.Doc, idx(req.Section), req.Value)
	case "add_question":
		e, err = e.AddQuestion(idx(req.Section))
	case "remove_question":
		e, err = e.RemoveQuestion(idx(req.Section), idx(req.Question))
	case "set_question_type":
		e.Doc, err = form.SetQuestionType(e.Doc, idx(req.Section), idx(req.Question), form.QuestionType(req.Type))
	case "set_question_title":
		e.Doc, err = form.SetQuestionTitle(e.Doc, idx(req.Section), idx(req.Question), req.Value)
	case "set_question_required":
		required := req.Required != nil && *req.Required
		e.Doc, err = form.SetQuestionRequired(e.Doc, idx(req.Section), idx(req.Question), required)
	case "add_choice":
		e.Doc, err = form.AddChoice(e.Doc, idx(req.Section), idx(req.Question))
	case "edit_choice":
		e.Doc, err = form.EditChoice(e.Doc, idx(req.Section), idx(req.Question), idx(req.Choice), req.Value)
	case "remove_choice":
		e.Doc, err = form.RemoveChoice(e.Doc, idx(req.Section), idx(req.Question), idx(req.Choice))
	case "set_title":
		e.Doc = form.SetTitle(e.Doc, req.Value)
	case "set_description":
		e.Doc = form.SetDescription(e.Doc, req.Value)
	case "set_document_extensions":
		e.Doc, err = form.SetDocumentExtensions(e.Doc, idx(req.Section), idx(req.Question), req.Values)
	case "set_document_max_size":
		size := form.DefaultMaxSizeMB
		if req.SizeMB != nil {
			size = *req.SizeMB
		}
		e.Doc, err = form.SetDocumentMaxSize(e.Doc, idx(req.Section), idx(req.Question), size)
	case "attach_file":
		if req.File == nil {
			return &respond.ValidationError{Msg: "attach_file requires a file"}
		}
		e.Doc, err = form.AttachFile(e.Doc, idx(req.Section), idx(req.Question), *req.File)
	case "detach_file":
		e.Doc, err = form.DetachFile(e.Doc, idx(req.Section), idx(req.Question))
	case "set_phone_format":
		e.Doc, err = form.SetPhoneFormat(e.Doc, idx(req.Section), idx(req.Question), form.PhoneFormat(req.Value))
	case "set_number_bounds":
		e.Doc, err = form.SetNumberBounds(e.Doc, idx(req.Section), idx(req.Question), req.Min, req.Max)
	case "set_email_domains":
		e.Doc, err = form.SetEmailDomains(e.Doc, idx(req.Section), idx(req.Question), req.Values)
	default:
		return &respond.ValidationError{Msg: "unknown op " + strconv.Quote(req.Op)}
	}
	if err != nil {
		return err
	}
	s.Editor = e
	return nil
}

// validateForSubmit rejects documents that fail the submit-time invariant.
func validateForSubmit(doc form.Document) error {
	if doc.Title == "" {
		return &respond.ValidationError{Msg: "the form needs a title"}
	}
	if !doc.Publishable() {
		return &respond.ValidationError{Msg: "add at least one section with a question"}
	}
	return nil
}

func userRef(r *http.Request) *wire.UserRef {
	if v := r.Header.Get("X-User-ID"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			return &wire.UserRef{ID: id}
		}
	}
	return nil
}

// deleteSourceDraft removes the draft a published or re-saved form was
// loaded from. Best effort: failure is logged and never rolls back the
// save that already succeeded.
func (h *BuilderHandler) deleteSourceDraft(ctx context.Context, token string, s *session.Session) {
	if !s.SourceWasDraft || s.SourceFormID == "" {
		return
	}
	if err := h.backend.DeleteForm(ctx, token, s.SourceFormID); err != nil {
		log.Printf("builder: deleting superseded draft %s: %v", s.SourceFormID, err)
	}
}

// SaveDraft encodes the document as a draft and stores it in the backend.
func (h *BuilderHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	s := h.sessions.Get(r.Context(), id)
	if s == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
		return
	}
	if err := validateForSubmit(s.Editor.Doc); err != nil {
		errorToHTTP(w, err)
		return
	}

	token := bearerToken(r)
	req := wire.EncodeComplex(s.Editor.Doc, wire.EncodeOptions{
		FormType: wire.FormTypeDraft,
		User:     userRef(r),
	})
	formID, err := h.backend.CreateComplex(r.Context(), token, req)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	h.deleteSourceDraft(r.Context(), token, s)

	s, err = h.sessions.Update(r.Context(), id, func(s *session.Session) error {
		wf, err := s.Workflow.SaveDraft()
		if err != nil {
			return err
		}
		s.Workflow = wf
		s.SourceFormID = formID
		s.SourceWasDraft = true
		return nil
	})
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"form_id":  formID,
		"workflow": s.Workflow,
	})
}

// OpenPublish moves the session into deadline selection.
func (h *BuilderHandler) OpenPublish(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	s, err := h.sessions.Update(r.Context(), id, func(s *session.Session) error {
		wf, err := s.Workflow.OpenDeadlineDialog()
		if err != nil {
			return err
		}
		s.Workflow = wf
		return nil
	})
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s))
}

// Publish validates the deadline, mints a link token, stores the published
// form and completes the workflow. An incomplete deadline rejects the
// request before anything is sent to the backend.
func (h *BuilderHandler) Publish(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	var req struct {
		Date   string `json:"date"`
		Hour   string `json:"hour"`
		Minute string `json:"minute"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	s := h.sessions.Get(r.Context(), id)
	if s == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
		return
	}
	if err := validateForSubmit(s.Editor.Doc); err != nil {
		errorToHTTP(w, err)
		return
	}

	now := time.Now()
	wf, err := s.Workflow.SetDeadlineParts(req.Date, req.Hour, req.Minute)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	deadline, err := wf.Deadline(now)
	if err != nil {
		errorToHTTP(w, err)
		return
	}

	// A fresh token per publish action; republishing invalidates any
	// previously shared link by never reusing it.
	link := wire.NewLinkToken()
	token := bearerToken(r)
	createReq := wire.EncodeComplex(s.Editor.Doc, wire.EncodeOptions{
		FormType: wire.FormTypePublished,
		Deadline: &deadline,
		Link:     link,
		User:     userRef(r),
	})
	formID, err := h.backend.CreateComplex(r.Context(), token, createReq)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	h.deleteSourceDraft(r.Context(), token, s)

	s, err = h.sessions.Update(r.Context(), id, func(s *session.Session) error {
		next, err := wf.Publish(now, link)
		if err != nil {
			return err
		}
		s.Workflow = next
		s.SourceFormID = formID
		s.SourceWasDraft = false
		return nil
	})
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"form_id":  formID,
		"link":     link,
		"deadline": deadline.Format(time.RFC3339),
		"workflow": s.Workflow,
	})
}

// ClosePublishDialog returns a published (or deadline-selecting) session to
// the editing state.
func (h *BuilderHandler) ClosePublishDialog(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	s, err := h.sessions.Update(r.Context(), id, func(s *session.Session) error {
		s.Workflow = s.Workflow.Resume()
		return nil
	})
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s))
}

// ListForms relays a form listing ("suggested", "draft", "published").
func (h *BuilderHandler) ListForms(w http.ResponseWriter, r *http.Request) {
	formType := r.URL.Query().Get("type")
	if formType == "" {
		formType = wire.FormTypeSuggested
	}
	forms, err := h.backend.ListByType(r.Context(), bearerToken(r), formType)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	if forms == nil {
		forms = []backend.FormSummary{}
	}
	writeJSON(w, http.StatusOK, forms)
}

// ExportResponses streams the backend's xlsx export for a form.
func (h *BuilderHandler) ExportResponses(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	body, filename, err := h.backend.ExportResponses(r.Context(), bearerToken(r), formID)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	defer body.Close()
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := io.Copy(w, body); err != nil {
		log.Printf("builder: streaming export: %v", err)
	}
}
