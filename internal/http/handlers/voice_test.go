package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliniccall/cliniccall-ai/internal/voice"
)

type fakeSpeech struct {
	text          string
	audio         []byte
	err           error
	lastSynthesis voice.SynthesisRequest
}

func (f *fakeSpeech) Transcribe(_ context.Context, _ io.Reader, _ string) (string, error) {
	return f.text, f.err
}

func (f *fakeSpeech) Synthesize(_ context.Context, req voice.SynthesisRequest) ([]byte, error) {
	f.lastSynthesis = req
	return f.audio, f.err
}

func multipartAudio(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("audio", "sample.webm")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-audio"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestTranscribeEndpoint(t *testing.T) {
	h := NewVoiceHandler(&fakeSpeech{text: "book me a checkup"}, nil, nil)

	body, contentType := multipartAudio(t)
	req := httptest.NewRequest(http.MethodPost, "/api/voice/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Transcribe(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "book me a checkup", resp["text"])
}

func TestTranscribeEndpointRequiresFile(t *testing.T) {
	h := NewVoiceHandler(&fakeSpeech{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/voice/transcribe", bytes.NewReader(nil))
	rec := httptest.NewRecorder()
	h.Transcribe(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranscribeEndpointUpstreamFailure(t *testing.T) {
	h := NewVoiceHandler(&fakeSpeech{err: errors.New("whisper down")}, nil, nil)

	body, contentType := multipartAudio(t)
	req := httptest.NewRequest(http.MethodPost, "/api/voice/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Transcribe(rec, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSynthesizeEndpoint(t *testing.T) {
	h := NewVoiceHandler(nil, &fakeSpeech{audio: []byte("mp3-bytes")}, nil)

	body, _ := json.Marshal(TTSRequest{Text: "Your appointment is confirmed."})
	req := httptest.NewRequest(http.MethodPost, "/api/voice/tts", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Synthesize(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "mp3-bytes", rec.Body.String())
}

func TestSynthesizeEndpointVoiceAndFormatOverride(t *testing.T) {
	fake := &fakeSpeech{audio: []byte("ulaw-bytes")}
	h := NewVoiceHandler(nil, fake, nil)

	body, _ := json.Marshal(TTSRequest{
		Text:    "Your appointment is confirmed.",
		VoiceID: "voice-999",
		Format:  "ulaw_8000",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/voice/tts", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Synthesize(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/basic", rec.Header().Get("Content-Type"))
	assert.Equal(t, "voice-999", fake.lastSynthesis.VoiceID)
	assert.Equal(t, "ulaw_8000", fake.lastSynthesis.Format)
}

func TestSynthesizeEndpointRequiresText(t *testing.T) {
	h := NewVoiceHandler(nil, &fakeSpeech{}, nil)

	body, _ := json.Marshal(TTSRequest{Text: " "})
	req := httptest.NewRequest(http.MethodPost, "/api/voice/tts", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Synthesize(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
