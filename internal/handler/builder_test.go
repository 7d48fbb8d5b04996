package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orms-project/orms/internal/backend"
	"github.com/orms-project/orms/internal/publish"
	"github.com/orms-project/orms/internal/session"
	"github.com/orms-project/orms/internal/wire"
)

// fakeBackend records complex create requests and serves canned forms.
type fakeBackend struct {
	created []wire.ComplexCreateRequest
	deleted []string
	forms   map[string]string // id -> raw payload
	nextID  int
}

func (f *fakeBackend) handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/forms/complex", func(w http.ResponseWriter, req *http.Request) {
		var body wire.ComplexCreateRequest
		json.NewDecoder(req.Body).Decode(&body)
		f.created = append(f.created, body)
		f.nextID++
		json.NewEncoder(w).Encode(map[string]int{"id": f.nextID})
	})
	r.Get("/forms/{id}", func(w http.ResponseWriter, req *http.Request) {
		payload, ok := f.forms[chi.URLParam(req, "id")]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Write([]byte(payload))
	})
	r.Delete("/forms/{id}", func(w http.ResponseWriter, req *http.Request) {
		f.deleted = append(f.deleted, chi.URLParam(req, "id"))
		w.WriteHeader(http.StatusOK)
	})
	return r
}

type builderEnv struct {
	router  *chi.Mux
	backend *fakeBackend
}

func newBuilderEnv(t *testing.T) *builderEnv {
	t.Helper()
	fb := &fakeBackend{forms: map[string]string{}}
	srv := httptest.NewServer(fb.handler())
	t.Cleanup(srv.Close)

	sessions, err := session.NewManager(context.Background(), session.NewMemoryStore(), 24*time.Hour, 2*time.Hour)
	require.NoError(t, err)
	bc := backend.New(func() string { return srv.URL }, 5*time.Second)
	bh := NewBuilderHandler(sessions, bc)

	r := chi.NewRouter()
	r.Post("/v1/sessions", bh.CreateSession)
	r.Get("/v1/sessions/{id}", bh.GetSession)
	r.Delete("/v1/sessions/{id}", bh.DeleteSession)
	r.Post("/v1/sessions/{id}/ops", bh.ApplyOp)
	r.Post("/v1/sessions/{id}/draft", bh.SaveDraft)
	r.Post("/v1/sessions/{id}/publish/open", bh.OpenPublish)
	r.Post("/v1/sessions/{id}/publish", bh.Publish)
	return &builderEnv{router: r, backend: fb}
}

func (e *builderEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *builderEnv) createSession(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var view struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	return view.ID
}

func TestCreateSession_DefaultDocument(t *testing.T) {
	env := newBuilderEnv(t)
	w := env.do(t, http.MethodPost, "/v1/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)

	var view struct {
		Document struct {
			Title    string `json:"title"`
			Sections []struct {
				Name string `json:"name"`
			} `json:"sections"`
		} `json:"document"`
		Workflow publish.Workflow `json:"workflow"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "Formulaire sans titre", view.Document.Title)
	require.Len(t, view.Document.Sections, 1)
	assert.Equal(t, "Section 1", view.Document.Sections[0].Name)
	assert.Equal(t, publish.StateEditing, view.Workflow.State)
}

func TestCreateSession_LoadsFormFromBackend(t *testing.T) {
	env := newBuilderEnv(t)
	env.backend.forms["9"] = `{"id":9,"form_name":"Loaded","form_type":"draft","categories":[
		{"category_name":"c","questions":[{"question_text":"q","answer_type":"question courte","required":true}]}]}`

	w := env.do(t, http.MethodPost, "/v1/sessions", `{"form_id":"9"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var view struct {
		Document struct {
			Title string `json:"title"`
		} `json:"document"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "Loaded", view.Document.Title)
}

func TestCreateSession_BackendFailureLeavesNoSession(t *testing.T) {
	env := newBuilderEnv(t)
	w := env.do(t, http.MethodPost, "/v1/sessions", `{"form_id":"missing"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestApplyOp_EditFlow(t *testing.T) {
	env := newBuilderEnv(t)
	id := env.createSession(t)

	ops := []string{
		`{"op":"set_title","value":"Inscription"}`,
		`{"op":"add_section"}`,
		`{"op":"set_question_type","section":0,"question":0,"type":"single_choice"}`,
		`{"op":"add_choice","section":0,"question":0}`,
	}
	var last *httptest.ResponseRecorder
	for _, op := range ops {
		last = env.do(t, http.MethodPost, "/v1/sessions/"+id+"/ops", op)
		require.Equal(t, http.StatusOK, last.Code, "op %s: %s", op, last.Body.String())
	}

	var view struct {
		Document struct {
			Title    string `json:"title"`
			Sections []struct {
				Questions []struct {
					Type    string   `json:"type"`
					Choices []string `json:"choices"`
				} `json:"questions"`
			} `json:"sections"`
		} `json:"document"`
		ActiveSection int `json:"active_section"`
	}
	require.NoError(t, json.Unmarshal(last.Body.Bytes(), &view))
	assert.Equal(t, "Inscription", view.Document.Title)
	require.Len(t, view.Document.Sections, 2)
	q := view.Document.Sections[0].Questions[0]
	assert.Equal(t, "single_choice", q.Type)
	assert.Len(t, q.Choices, 4)
}

func TestApplyOp_InvalidIndexIs400(t *testing.T) {
	env := newBuilderEnv(t)
	id := env.createSession(t)
	w := env.do(t, http.MethodPost, "/v1/sessions/"+id+"/ops",
		`{"op":"remove_question","section":4,"question":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApplyOp_UnknownSession(t *testing.T) {
	env := newBuilderEnv(t)
	w := env.do(t, http.MethodPost, "/v1/sessions/6a0f2f55-0000-0000-0000-000000000000/ops",
		`{"op":"add_section"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSaveDraft(t *testing.T) {
	env := newBuilderEnv(t)
	id := env.createSession(t)

	w := env.do(t, http.MethodPost, "/v1/sessions/"+id+"/draft", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Len(t, env.backend.created, 1)
	got := env.backend.created[0]
	assert.Equal(t, wire.FormTypeDraft, got.Form.FormType)
	assert.Nil(t, got.Form.Deadline)
	assert.Empty(t, got.Form.FormLink)

	var resp struct {
		FormID   string           `json:"form_id"`
		Workflow publish.Workflow `json:"workflow"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "1", resp.FormID)
	assert.Equal(t, publish.StateDraftSaved, resp.Workflow.State)
}

func TestSaveDraft_UntitledAccepted(t *testing.T) {
	env := newBuilderEnv(t)
	id := env.createSession(t)

	// The default title counts as a title; clearing it blocks the save.
	w := env.do(t, http.MethodPost, "/v1/sessions/"+id+"/ops", `{"op":"set_title","value":""}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/v1/sessions/"+id+"/draft", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.backend.created)
}

func TestPublish_FullFlow(t *testing.T) {
	env := newBuilderEnv(t)
	id := env.createSession(t)

	w := env.do(t, http.MethodPost, "/v1/sessions/"+id+"/publish/open", "")
	require.Equal(t, http.StatusOK, w.Code)

	date := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	w = env.do(t, http.MethodPost, "/v1/sessions/"+id+"/publish",
		`{"date":"`+date+`","hour":"14","minute":"30"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		FormID   string           `json:"form_id"`
		Link     string           `json:"link"`
		Workflow publish.Workflow `json:"workflow"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Link, wire.TokenLength)
	assert.Equal(t, publish.StatePublished, resp.Workflow.State)

	require.Len(t, env.backend.created, 1)
	got := env.backend.created[0]
	assert.Equal(t, wire.FormTypePublished, got.Form.FormType)
	assert.Equal(t, resp.Link, got.Form.FormLink)
	require.NotNil(t, got.Form.Deadline)
}

func TestPublish_IncompleteDeadlineNeverHitsBackend(t *testing.T) {
	env := newBuilderEnv(t)
	id := env.createSession(t)

	w := env.do(t, http.MethodPost, "/v1/sessions/"+id+"/publish/open", "")
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/v1/sessions/"+id+"/publish", `{"date":"","hour":"14","minute":"30"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.backend.created)
}

func TestPublish_DeletesSourceDraft(t *testing.T) {
	env := newBuilderEnv(t)
	env.backend.forms["9"] = `{"id":9,"form_name":"Loaded","form_type":"draft","categories":[
		{"category_name":"c","questions":[{"question_text":"q","answer_type":"question courte","required":true}]}]}`

	w := env.do(t, http.MethodPost, "/v1/sessions", `{"form_id":"9"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var view struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))

	w = env.do(t, http.MethodPost, "/v1/sessions/"+view.ID+"/publish/open", "")
	require.Equal(t, http.StatusOK, w.Code)
	date := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	w = env.do(t, http.MethodPost, "/v1/sessions/"+view.ID+"/publish",
		`{"date":"`+date+`","hour":"09","minute":"00"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, []string{"9"}, env.backend.deleted)
}

func TestDeleteSession(t *testing.T) {
	env := newBuilderEnv(t)
	id := env.createSession(t)

	w := env.do(t, http.MethodDelete, "/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodGet, "/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionID_Malformed(t *testing.T) {
	env := newBuilderEnv(t)
	w := env.do(t, http.MethodGet, "/v1/sessions/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
