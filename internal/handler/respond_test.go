package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orms-project/orms/internal/backend"
	"github.com/orms-project/orms/internal/respond"
)

const publishedForm = `{"id":42,"form_name":"Inscription","form_type":"published",
	"form_link":"Ab3dEf9h","deadline":"%s","categories":[
	{"category_name":"Identité","questions":[
		{"id":1,"question_text":"Nom","question_type":"text","answer_type":"question courte","required":true},
		{"id":2,"question_text":"CV","question_type":"text","answer_type":"document","required":false}]}]}`

type respondEnv struct {
	router   *chi.Mux
	captchas *respond.CaptchaStore
	// submitted holds the last batch of responses the fake backend saw.
	submitted [][]backend.ResponseEntry
	uploads   int
}

func newRespondEnv(t *testing.T, deadline string) *respondEnv {
	t.Helper()
	env := &respondEnv{captchas: respond.NewCaptchaStore(time.Minute)}

	fb := chi.NewRouter()
	fb.Get("/forms/link/{link}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "link") != "Ab3dEf9h" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Write([]byte(strings.ReplaceAll(publishedForm, "%s", deadline)))
	})
	fb.Post("/responses", func(w http.ResponseWriter, r *http.Request) {
		var entries []backend.ResponseEntry
		json.NewDecoder(r.Body).Decode(&entries)
		env.submitted = append(env.submitted, entries)
		w.Write([]byte(`{"sessionId":"sub-1","responses":[]}`))
	})
	fb.Post("/submit-response", func(w http.ResponseWriter, r *http.Request) {
		env.uploads++
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	bc := backend.New(func() string { return srv.URL }, 5*time.Second)
	rh := NewRespondHandler(bc, env.captchas)

	r := chi.NewRouter()
	r.Get("/v1/public/forms/{link}", rh.GetForm)
	r.Post("/v1/public/forms/{link}/responses", rh.SubmitResponses)
	r.Post("/v1/public/forms/{link}/files", rh.UploadFile)
	env.router = r
	return env
}

func futureDeadline() string {
	return time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
}

func TestGetPublicForm_IssuesCaptcha(t *testing.T) {
	env := newRespondEnv(t, futureDeadline())
	req := httptest.NewRequest(http.MethodGet, "/v1/public/forms/Ab3dEf9h", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Form struct {
			FormName string `json:"form_name"`
		} `json:"form"`
		Captcha respond.Challenge `json:"captcha"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Inscription", resp.Form.FormName)
	assert.NotEmpty(t, resp.Captcha.ID)
	assert.Len(t, resp.Captcha.Value, 6)
}

func TestGetPublicForm_DeadlinePassed(t *testing.T) {
	env := newRespondEnv(t, time.Now().Add(-time.Hour).UTC().Format(time.RFC3339))
	req := httptest.NewRequest(http.MethodGet, "/v1/public/forms/Ab3dEf9h", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestSubmitResponses_HappyPath(t *testing.T) {
	env := newRespondEnv(t, futureDeadline())
	c := env.captchas.Issue()

	body := `{"captcha_id":"` + c.ID + `","captcha":"` + c.Value + `",
		"answers":[{"question_id":1,"text":"Sam"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/public/forms/Ab3dEf9h/responses", strings.NewReader(body))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "sub-1", resp["session_id"])

	require.Len(t, env.submitted, 1)
	require.Len(t, env.submitted[0], 1)
	entry := env.submitted[0][0]
	assert.Equal(t, "Sam", entry.Answer)
	assert.Equal(t, 42, entry.Form.ID)
	assert.Equal(t, 1, entry.Question.ID)
}

func TestSubmitResponses_WrongCaptcha(t *testing.T) {
	env := newRespondEnv(t, futureDeadline())
	c := env.captchas.Issue()

	body := `{"captcha_id":"` + c.ID + `","captcha":"WRONG1",
		"answers":[{"question_id":1,"text":"Sam"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/public/forms/Ab3dEf9h/responses", strings.NewReader(body))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	// A fresh challenge comes back with the rejection.
	var resp struct {
		Code    string            `json:"code"`
		Captcha respond.Challenge `json:"captcha"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CAPTCHA_MISMATCH", resp.Code)
	assert.NotEmpty(t, resp.Captcha.ID)
	assert.Empty(t, env.submitted)
}

func TestSubmitResponses_MissingRequired(t *testing.T) {
	env := newRespondEnv(t, futureDeadline())
	c := env.captchas.Issue()

	body := `{"captcha_id":"` + c.ID + `","captcha":"` + c.Value + `","answers":[]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/public/forms/Ab3dEf9h/responses", strings.NewReader(body))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Code      string `json:"code"`
		Questions []int  `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	assert.Equal(t, []int{1}, resp.Questions)
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("sessionId", "sub-1"))
	require.NoError(t, mw.WriteField("questionId", "2"))
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadFile_Relays(t *testing.T) {
	env := newRespondEnv(t, futureDeadline())
	body, contentType := multipartUpload(t, "cv.pdf", "pdf bytes")

	req := httptest.NewRequest(http.MethodPost, "/v1/public/forms/Ab3dEf9h/files", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, env.uploads)
}

func TestUploadFile_BadExtension(t *testing.T) {
	env := newRespondEnv(t, futureDeadline())
	body, contentType := multipartUpload(t, "virus.exe", "mz")

	req := httptest.NewRequest(http.MethodPost, "/v1/public/forms/Ab3dEf9h/files", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, env.uploads)
}
