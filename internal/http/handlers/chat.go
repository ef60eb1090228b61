package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cliniccall/cliniccall-ai/internal/convo"
	"github.com/cliniccall/cliniccall-ai/pkg/logging"
)

// ChatHandler serves the conversational booking endpoint.
type ChatHandler struct {
	engine *convo.Engine
	logger *logging.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(engine *convo.Engine, logger *logging.Logger) *ChatHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{engine: engine, logger: logger}
}

// ChatRequest is one patient message.
type ChatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
	PatientName    string `json:"patient_name,omitempty"`
	PatientPhone   string `json:"patient_phone,omitempty"`
	PatientEmail   string `json:"patient_email,omitempty"`
}

// HandleMessage processes one chat turn.
func (h *ChatHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := h.engine.Handle(r.Context(), req.ConversationID, req.Message, convo.PatientInfo{
		Name:  req.PatientName,
		Phone: req.PatientPhone,
		Email: req.PatientEmail,
	})
	if err != nil {
		h.logger.Error("chat turn failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

// Health reports service liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
