package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cliniccall/cliniccall-ai/internal/voice"
	"github.com/cliniccall/cliniccall-ai/pkg/logging"
)

const maxAudioUploadBytes = 20 << 20 // 20 MiB

// VoiceHandler serves speech endpoints: audio in, text out and back.
type VoiceHandler struct {
	transcriber voice.Transcriber
	synthesizer voice.Synthesizer
	logger      *logging.Logger
}

// NewVoiceHandler creates a voice handler.
func NewVoiceHandler(transcriber voice.Transcriber, synthesizer voice.Synthesizer, logger *logging.Logger) *VoiceHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &VoiceHandler{transcriber: transcriber, synthesizer: synthesizer, logger: logger}
}

// Transcribe accepts a multipart "audio" file and returns its text.
func (h *VoiceHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUploadBytes)
	if err := r.ParseMultipartForm(maxAudioUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form with an audio file is required")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	text, err := h.transcriber.Transcribe(r.Context(), file, header.Filename)
	if err != nil {
		h.logger.Error("transcription failed", "error", err)
		writeError(w, http.StatusBadGateway, "transcription failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// TTSRequest is the synthesis payload. voice_id and format are
// optional overrides for the configured defaults.
type TTSRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id,omitempty"`
	Format  string `json:"format,omitempty"`
}

// Synthesize turns text into spoken audio.
func (h *VoiceHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	var req TTSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	audio, err := h.synthesizer.Synthesize(r.Context(), voice.SynthesisRequest{
		Text:    req.Text,
		VoiceID: req.VoiceID,
		Format:  req.Format,
	})
	if err != nil {
		h.logger.Error("speech synthesis failed", "error", err)
		writeError(w, http.StatusBadGateway, "speech synthesis failed")
		return
	}

	w.Header().Set("Content-Type", voice.MIMEType(req.Format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}
