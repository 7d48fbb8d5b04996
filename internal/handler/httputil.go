package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/orms-project/orms/internal/ai"
	"github.com/orms-project/orms/internal/backend"
	"github.com/orms-project/orms/internal/form"
	"github.com/orms-project/orms/internal/publish"
	"github.com/orms-project/orms/internal/respond"
	"github.com/orms-project/orms/internal/session"
	"github.com/orms-project/orms/internal/wire"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON encode error: %v", err)
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// parseSessionID extracts and validates the session id path parameter.
func parseSessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "id")
	if _, err := uuid.Parse(raw); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid session id: "+raw)
		return "", false
	}
	return raw, true
}

// bearerToken extracts the Authorization bearer token, if any, for
// passthrough to the backend. The token is never validated here.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// errorToHTTP maps domain errors to appropriate HTTP responses.
func errorToHTTP(w http.ResponseWriter, err error) {
	var decodeErr *wire.DecodeError
	if errors.As(err, &decodeErr) {
		writeError(w, http.StatusUnprocessableEntity, "DECODE_ERROR", decodeErr.Error())
		return
	}
	var validationErr *respond.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Error())
		return
	}
	var backendErr *backend.APIError
	if errors.As(err, &backendErr) {
		writeError(w, http.StatusBadGateway, "BACKEND_ERROR", backendErr.Error())
		return
	}
	var aiErr *ai.APIError
	if errors.As(err, &aiErr) {
		writeError(w, http.StatusBadGateway, "AI_ERROR", aiErr.Error())
		return
	}
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, form.ErrSectionIndex),
		errors.Is(err, form.ErrQuestionIndex),
		errors.Is(err, form.ErrChoiceIndex),
		errors.Is(err, form.ErrLastSection),
		errors.Is(err, form.ErrNotChoiceType),
		errors.Is(err, form.ErrUnknownType):
		writeError(w, http.StatusBadRequest, "INVALID_OPERATION", err.Error())
	case errors.Is(err, publish.ErrDeadlineIncomplete),
		errors.Is(err, publish.ErrDateInPast),
		errors.Is(err, publish.ErrNotEditing),
		errors.Is(err, publish.ErrNotAwaitingDeadline):
		writeError(w, http.StatusBadRequest, "PUBLISH_ERROR", err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error())
	}
}
