// Package webchat serves the browser chat widget over WebSocket.
package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/cliniccall/cliniccall-ai/internal/convo"
	"github.com/cliniccall/cliniccall-ai/pkg/logging"
)

// Engine processes one chat turn. Satisfied by convo.Engine.
type Engine interface {
	Handle(ctx context.Context, conversationID, message string, info convo.PatientInfo) (convo.Reply, error)
}

// Handler manages web chat WebSocket connections.
type Handler struct {
	engine Engine
	logger *logging.Logger
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type           string `json:"type"` // "message", "typing", "session", "pong", "error"
	Text           string `json:"text,omitempty"`
	Role           string `json:"role,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Stage          string `json:"stage,omitempty"`
	Urgent         bool   `json:"urgent,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
}

// NewHandler creates a web chat handler.
func NewHandler(engine Engine, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	// A reconnecting widget passes its previous conversation ID as
	// ?session=, so the engine picks the dialogue back up.
	sessionID := r.URL.Query().Get("session")
	conversationID := sessionID
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:           "session",
		ConversationID: sessionID,
	})

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "typing"})

		reply, err := h.engine.Handle(r.Context(), conversationID, msg.Text, convo.PatientInfo{})
		if err != nil {
			h.logger.Error("webchat: chat turn failed", "error", err, "session_id", sessionID)
			_ = websocket.JSON.Send(conn, OutboundMessage{
				Type: "error",
				Text: "Sorry, something went wrong. Please try again.",
			})
			continue
		}
		conversationID = reply.ConversationID

		_ = websocket.JSON.Send(conn, OutboundMessage{
			Type:           "message",
			Role:           "assistant",
			Text:           reply.Message,
			ConversationID: reply.ConversationID,
			Stage:          string(reply.Stage),
			Urgent:         reply.Urgent,
			Timestamp:      time.Now().UTC().Format(time.RFC3339),
		})
	}
}
