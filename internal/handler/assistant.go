package handler

import (
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/orms-project/orms/internal/ai"
	"github.com/orms-project/orms/internal/session"
	"github.com/orms-project/orms/internal/wire"
)

// AssistantHandler relays the AI chat/generation service and feeds
// generated forms into editing sessions.
type AssistantHandler struct {
	ai       *ai.Client
	sessions *session.Manager
}

// NewAssistantHandler creates an assistant handler.
func NewAssistantHandler(client *ai.Client, sessions *session.Manager) *AssistantHandler {
	return &AssistantHandler{ai: client, sessions: sessions}
}

type chatBody struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Prompt         string `json:"prompt,omitempty"`
	Context        string `json:"context,omitempty"`
	// SessionID, when set, sends the session's current document along as
	// conversation context.
	SessionID string `json:"session_id,omitempty"`
}

func (h *AssistantHandler) currentForm(r *http.Request, sessionID string) json.RawMessage {
	if sessionID == "" {
		return nil
	}
	s := h.sessions.Get(r.Context(), sessionID)
	if s == nil {
		return nil
	}
	buf, err := json.Marshal(wire.EncodeSuggestion(s.Editor.Doc))
	if err != nil {
		return nil
	}
	return buf
}

// Chat relays one clarification turn.
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var body chatBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if body.Prompt == "" {
		writeError(w, http.StatusBadRequest, "EMPTY_PROMPT", "prompt is required")
		return
	}
	reply, err := h.ai.Chat(r.Context(), body.ConversationID, body.Prompt, h.currentForm(r, body.SessionID))
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// Generate relays a generation request and returns the suggested form
// verbatim, after checking it decodes.
func (h *AssistantHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var body chatBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if body.Context == "" {
		writeError(w, http.StatusBadRequest, "EMPTY_CONTEXT", "context is required")
		return
	}
	raw, err := h.ai.Generate(r.Context(), body.ConversationID, body.Context, h.currentForm(r, body.SessionID))
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	if _, err := wire.ParseInbound(raw); err != nil {
		errorToHTTP(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

// GenerateIntoSession asks the AI service for a form and replaces the
// session's document with it wholesale. A decode failure leaves the
// session's document untouched.
func (h *AssistantHandler) GenerateIntoSession(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	var body chatBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if body.Context == "" {
		writeError(w, http.StatusBadRequest, "EMPTY_CONTEXT", "context is required")
		return
	}

	raw, err := h.ai.Generate(r.Context(), body.ConversationID, body.Context, h.currentForm(r, id))
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	s, err := h.sessions.Update(r.Context(), id, func(s *session.Session) error {
		doc, err := wire.Decode(s.Editor.Doc, raw)
		if err != nil {
			return err
		}
		s.Editor = s.Editor.Replace(doc)
		return nil
	})
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s))
}
