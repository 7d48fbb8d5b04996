package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	json "github.com/goccy/go-json"

	"github.com/orms-project/orms/internal/session"
	"github.com/orms-project/orms/internal/wire"
)

// The WebSocket side of the assistant: the same chat/generate conversation
// as the HTTP relay, kept on one connection so the client holds a single
// conversation id across turns.

// wsClientMessage is the envelope for client-to-server messages.
type wsClientMessage struct {
	Type string          `json:"type"` // "chat", "generate", "ping"
	ID   string          `json:"id"`   // client-assigned request id
	Data json.RawMessage `json:"data,omitempty"`
}

// wsServerMessage is the envelope for server-to-client messages.
type wsServerMessage struct {
	Type      string `json:"type"` // "reply", "form", "session", "error", "pong"
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// wsChatData is the payload of "chat" and "generate" messages.
type wsChatData struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Prompt         string `json:"prompt,omitempty"`
	Context        string `json:"context,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
}

type wsErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS upgrades to WebSocket and runs the assistant message loop.
func (h *AssistantHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("assistant: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	h.send(ctx, conn, wsServerMessage{Type: "session", Data: map[string]string{"status": "ready"}})

	for {
		var msg wsClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Printf("assistant: connection closed: %v", websocket.CloseStatus(err))
			}
			return
		}

		switch msg.Type {
		case "chat":
			h.handleWSChat(ctx, conn, msg)
		case "generate":
			h.handleWSGenerate(ctx, conn, msg)
		case "ping":
			h.send(ctx, conn, wsServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (h *AssistantHandler) handleWSChat(ctx context.Context, conn *websocket.Conn, msg wsClientMessage) {
	var data wsChatData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid chat data")
		return
	}
	if data.Prompt == "" {
		h.sendError(ctx, conn, msg.ID, "empty_prompt", "prompt is required")
		return
	}
	reply, err := h.ai.Chat(ctx, data.ConversationID, data.Prompt, h.wsCurrentForm(ctx, data.SessionID))
	if err != nil {
		h.sendError(ctx, conn, msg.ID, "ai_error", err.Error())
		return
	}
	h.send(ctx, conn, wsServerMessage{Type: "reply", RequestID: msg.ID, Data: reply})
}

func (h *AssistantHandler) handleWSGenerate(ctx context.Context, conn *websocket.Conn, msg wsClientMessage) {
	var data wsChatData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid generate data")
		return
	}
	if data.Context == "" {
		h.sendError(ctx, conn, msg.ID, "empty_context", "context is required")
		return
	}

	raw, err := h.ai.Generate(ctx, data.ConversationID, data.Context, h.wsCurrentForm(ctx, data.SessionID))
	if err != nil {
		h.sendError(ctx, conn, msg.ID, "ai_error", err.Error())
		return
	}

	// Without a session the caller just gets the suggestion back; with one
	// the generated form replaces the session document wholesale.
	if data.SessionID == "" {
		f, err := wire.ParseInbound(raw)
		if err != nil {
			h.sendError(ctx, conn, msg.ID, "decode_error", err.Error())
			return
		}
		h.send(ctx, conn, wsServerMessage{Type: "form", RequestID: msg.ID, Data: f})
		return
	}

	s, err := h.sessions.Update(ctx, data.SessionID, func(s *session.Session) error {
		doc, err := wire.Decode(s.Editor.Doc, raw)
		if err != nil {
			return err
		}
		s.Editor = s.Editor.Replace(doc)
		return nil
	})
	if err != nil {
		h.sendError(ctx, conn, msg.ID, "decode_error", err.Error())
		return
	}
	h.send(ctx, conn, wsServerMessage{Type: "form", RequestID: msg.ID, Data: viewOf(s)})
}

func (h *AssistantHandler) wsCurrentForm(ctx context.Context, sessionID string) json.RawMessage {
	if sessionID == "" {
		return nil
	}
	s := h.sessions.Get(ctx, sessionID)
	if s == nil {
		return nil
	}
	buf, err := json.Marshal(wire.EncodeSuggestion(s.Editor.Doc))
	if err != nil {
		return nil
	}
	return buf
}

func (h *AssistantHandler) send(ctx context.Context, conn *websocket.Conn, msg wsServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		log.Printf("assistant: write error: %v", err)
	}
}

func (h *AssistantHandler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, wsServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data:      wsErrorData{Code: code, Message: message},
	})
}
