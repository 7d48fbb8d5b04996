// Package backend is the HTTP client for the external forms REST API. The
// API is an opaque collaborator: this package only speaks its wire contract
// and never interprets form semantics beyond the shapes in internal/wire.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/orms-project/orms/internal/wire"
)

// APIError reports a non-2xx backend response.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Client talks to the backend. The base URL is read through a getter so a
// config reload takes effect on the next request.
type Client struct {
	baseURL func() string
	http    *http.Client
}

// New creates a client. baseURL is re-read per request.
func New(baseURL func() string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, op, method, path, token string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("backend %s: encoding body: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL()+path, reader)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", op, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend %s: reading response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}

// CreateComplex posts a complex form create request and returns the created
// form id. The backend spells the id field three different ways depending
// on the endpoint version; the first present one wins.
func (c *Client) CreateComplex(ctx context.Context, token string, req wire.ComplexCreateRequest) (string, error) {
	data, err := c.do(ctx, "create complex form", http.MethodPost, "/forms/complex", token, req)
	if err != nil {
		return "", err
	}
	var resp struct {
		ID      json.Number `json:"id"`
		FormID  json.Number `json:"form_id"`
		FormID2 json.Number `json:"formId"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("backend create complex form: decoding response: %w", err)
	}
	for _, id := range []json.Number{resp.ID, resp.FormID, resp.FormID2} {
		if id.String() != "" {
			return id.String(), nil
		}
	}
	return "", fmt.Errorf("backend create complex form: response carries no form id")
}

// GetForm fetches a form by backend id. The raw payload is returned
// alongside the parsed form so callers can feed it to the decode path
// unchanged.
func (c *Client) GetForm(ctx context.Context, token, id string) (wire.InboundForm, []byte, error) {
	data, err := c.do(ctx, "get form", http.MethodGet, "/forms/"+id, token, nil)
	if err != nil {
		return wire.InboundForm{}, nil, err
	}
	f, err := wire.ParseInbound(data)
	if err != nil {
		return wire.InboundForm{}, nil, err
	}
	return f, data, nil
}

// GetFormByLink fetches a published form by its public link token. No auth:
// respondents are anonymous.
func (c *Client) GetFormByLink(ctx context.Context, link string) (wire.InboundForm, error) {
	data, err := c.do(ctx, "get form by link", http.MethodGet, "/forms/link/"+link, "", nil)
	if err != nil {
		return wire.InboundForm{}, err
	}
	return wire.ParseInbound(data)
}

// FormSummary is one entry of a form listing.
type FormSummary struct {
	ID              int    `json:"id"`
	FormName        string `json:"form_name"`
	FormDescription string `json:"form_description"`
}

// ListByType lists the caller's forms of one type ("suggested", "draft" or
// "published").
func (c *Client) ListByType(ctx context.Context, token, formType string) ([]FormSummary, error) {
	data, err := c.do(ctx, "list forms", http.MethodGet, "/forms/type/"+formType, token, nil)
	if err != nil {
		return nil, err
	}
	var out []FormSummary
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("backend list forms: decoding response: %w", err)
	}
	return out, nil
}

// DeleteForm deletes a form by backend id.
func (c *Client) DeleteForm(ctx context.Context, token, id string) error {
	_, err := c.do(ctx, "delete form", http.MethodDelete, "/forms/"+id, token, nil)
	return err
}

// ResponseEntry is one answer of a respondent submission.
type ResponseEntry struct {
	Answer   string `json:"answer"`
	Form     IDRef  `json:"form"`
	Question IDRef  `json:"question"`
}

// IDRef wraps a backend-assigned numeric id.
type IDRef struct {
	ID int `json:"id"`
}

// SubmissionResult is the backend's acknowledgment of a submission.
type SubmissionResult struct {
	SessionID string            `json:"sessionId"`
	Responses []json.RawMessage `json:"responses"`
}

// SubmitResponses posts a batch of answers and returns the submission
// session id used for subsequent file uploads.
func (c *Client) SubmitResponses(ctx context.Context, entries []ResponseEntry) (SubmissionResult, error) {
	data, err := c.do(ctx, "submit responses", http.MethodPost, "/responses", "", entries)
	if err != nil {
		return SubmissionResult{}, err
	}
	var out SubmissionResult
	if err := json.Unmarshal(data, &out); err != nil {
		return SubmissionResult{}, fmt.Errorf("backend submit responses: decoding response: %w", err)
	}
	return out, nil
}

// UploadFile relays one respondent file as a multipart post. One file per
// question per submission session.
func (c *Client) UploadFile(ctx context.Context, sessionID, formID, questionID, filename string, file io.Reader) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("backend upload file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("backend upload file: %w", err)
	}
	for k, v := range map[string]string{
		"sessionId":  sessionID,
		"formId":     formID,
		"questionId": questionID,
	} {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("backend upload file: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("backend upload file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+"/submit-response", &buf)
	if err != nil {
		return fmt.Errorf("backend upload file: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend upload file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{Op: "upload file", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// ExportResponses streams the xlsx export of a form's responses. The
// caller owns the returned body.
func (c *Client) ExportResponses(ctx context.Context, token, formID string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+"/forms/"+formID+"/export", nil)
	if err != nil {
		return nil, "", fmt.Errorf("backend export responses: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("backend export responses: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, "", &APIError{Op: "export responses", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	filename := "form_" + formID + "_responses.xlsx"
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if i := strings.Index(cd, "filename="); i >= 0 {
			filename = strings.Trim(cd[i+len("filename="):], `"`)
		}
	}
	return resp.Body, filename, nil
}
