package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/orms-project/orms/internal/backend"
	"github.com/orms-project/orms/internal/form"
	"github.com/orms-project/orms/internal/respond"
)

// maxUploadBytes caps the multipart memory buffer. The policy limit on
// file size is enforced separately by CheckUpload.
const maxUploadBytes = 32 << 20

// RespondHandler serves the public side of a published form.
type RespondHandler struct {
	backend  *backend.Client
	captchas *respond.CaptchaStore
}

// NewRespondHandler creates a respondent handler.
func NewRespondHandler(bc *backend.Client, captchas *respond.CaptchaStore) *RespondHandler {
	return &RespondHandler{backend: bc, captchas: captchas}
}

// GetForm fetches a published form by link token and issues a captcha
// challenge for the eventual submission. Forms past their deadline are
// gone.
func (h *RespondHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	link := chi.URLParam(r, "link")
	f, err := h.backend.GetFormByLink(r.Context(), link)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	if respond.DeadlinePassed(f, time.Now()) {
		writeError(w, http.StatusGone, "DEADLINE_PASSED", "this form no longer accepts responses")
		return
	}
	challenge := h.captchas.Issue()
	writeJSON(w, http.StatusOK, map[string]any{
		"form":    f,
		"captcha": challenge,
	})
}

type answerBody struct {
	QuestionID int      `json:"question_id"`
	Text       string   `json:"text,omitempty"`
	Values     []string `json:"values,omitempty"`
	Date       string   `json:"date,omitempty"` // "2006-01-02"
}

type submitBody struct {
	CaptchaID string       `json:"captcha_id"`
	Captcha   string       `json:"captcha"`
	Answers   []answerBody `json:"answers"`
	// Files lists question ids whose uploads follow separately, so
	// required-file validation can run here.
	Files []fileRef `json:"files,omitempty"`
}

type fileRef struct {
	QuestionID int    `json:"question_id"`
	Name       string `json:"name"`
	Size       int64  `json:"size"`
}

// SubmitResponses validates and relays a respondent submission. Everything
// is checked before the backend sees a byte: captcha first, then required
// answers and upload policy.
func (h *RespondHandler) SubmitResponses(w http.ResponseWriter, r *http.Request) {
	link := chi.URLParam(r, "link")
	var body submitBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	if !h.captchas.Verify(body.CaptchaID, body.Captcha) {
		// A failed attempt consumes the challenge; hand out a fresh one.
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "captcha mismatch",
			"code":    "CAPTCHA_MISMATCH",
			"captcha": h.captchas.Issue(),
		})
		return
	}

	f, err := h.backend.GetFormByLink(r.Context(), link)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	if respond.DeadlinePassed(f, time.Now()) {
		writeError(w, http.StatusGone, "DEADLINE_PASSED", "this form no longer accepts responses")
		return
	}

	sub := respond.Submission{
		Answers: make(map[int]respond.Answer, len(body.Answers)),
		Files:   make(map[int]respond.FileMeta, len(body.Files)),
	}
	for _, a := range body.Answers {
		ans := respond.Answer{Text: a.Text, Values: a.Values}
		if a.Date != "" {
			d, err := time.Parse("2006-01-02", a.Date)
			if err != nil {
				writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "bad date for question "+strconv.Itoa(a.QuestionID))
				return
			}
			ans.Date = &d
		}
		sub.Answers[a.QuestionID] = ans
	}
	for _, fr := range body.Files {
		sub.Files[fr.QuestionID] = respond.FileMeta{Name: fr.Name, Size: fr.Size}
	}

	if err := respond.ValidateSubmission(f, sub); err != nil {
		ve := err.(*respond.ValidationError)
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":     ve.Msg,
			"code":      "VALIDATION_ERROR",
			"questions": ve.QuestionIDs,
		})
		return
	}

	rows := respond.BuildEntries(f, sub)
	entries := make([]backend.ResponseEntry, len(rows))
	for i, row := range rows {
		entries[i] = backend.ResponseEntry{
			Answer:   row.Answer,
			Form:     backend.IDRef{ID: row.FormID},
			Question: backend.IDRef{ID: row.QuestionID},
		}
	}
	result, err := h.backend.SubmitResponses(r.Context(), entries)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": result.SessionID})
}

// UploadFile relays one respondent upload after checking the extension
// allow-list and size limit. One file per question per submission session;
// the backend replaces any previous one.
func (h *RespondHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	link := chi.URLParam(r, "link")
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	sessionID := r.FormValue("sessionId")
	questionID := r.FormValue("questionId")
	if sessionID == "" || questionID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "sessionId and questionId are required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "file is required")
		return
	}
	defer file.Close()

	meta := respond.FileMeta{Name: header.Filename, Size: header.Size}
	if err := respond.CheckUpload(meta, form.DefaultExtensions, form.DefaultMaxSizeMB); err != nil {
		errorToHTTP(w, err)
		return
	}

	f, err := h.backend.GetFormByLink(r.Context(), link)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	if respond.DeadlinePassed(f, time.Now()) {
		writeError(w, http.StatusGone, "DEADLINE_PASSED", "this form no longer accepts responses")
		return
	}

	if err := h.backend.UploadFile(r.Context(), sessionID, strconv.Itoa(f.ID), questionID, header.Filename, file); err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "uploaded"})
}
