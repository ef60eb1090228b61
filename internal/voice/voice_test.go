package voice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "I need a dermatology appointment"}`))
	}))
	defer srv.Close()

	client := NewClient(Config{OpenAIAPIKey: "test-key", OpenAIBaseURL: srv.URL}, nil)
	text, err := client.Transcribe(context.Background(), strings.NewReader("fake-audio"), "sample.webm")
	require.NoError(t, err)
	assert.Equal(t, "I need a dermatology appointment", text)
}

func TestTranscribeNotConfigured(t *testing.T) {
	client := NewClient(Config{}, nil)
	_, err := client.Transcribe(context.Background(), strings.NewReader("x"), "")
	assert.Error(t, err)
}

func TestTranscribeServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(Config{OpenAIAPIKey: "k", OpenAIBaseURL: srv.URL}, nil)
	_, err := client.Transcribe(context.Background(), strings.NewReader("x"), "")
	assert.ErrorContains(t, err, "status 429")
}

func TestSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/text-to-speech/voice-123", r.URL.Path)
		require.Equal(t, "el-key", r.Header.Get("xi-api-key"))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	client := NewClient(Config{
		ElevenLabsAPIKey: "el-key",
		ElevenLabsURL:    srv.URL,
		VoiceID:          "voice-123",
	}, nil)

	audio, err := client.Synthesize(context.Background(), SynthesisRequest{Text: "Your appointment is confirmed."})
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), audio)
}

func TestSynthesizeVoiceAndFormatOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/text-to-speech/voice-999", r.URL.Path)
		require.Equal(t, "ulaw_8000", r.URL.Query().Get("output_format"))
		require.Equal(t, "audio/basic", r.Header.Get("Accept"))
		_, _ = w.Write([]byte("ulaw-bytes"))
	}))
	defer srv.Close()

	client := NewClient(Config{
		ElevenLabsAPIKey: "el-key",
		ElevenLabsURL:    srv.URL,
		VoiceID:          "voice-123",
	}, nil)

	audio, err := client.Synthesize(context.Background(), SynthesisRequest{
		Text:    "Hello",
		VoiceID: "voice-999",
		Format:  "ulaw_8000",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("ulaw-bytes"), audio)
}

func TestSynthesizeNotConfigured(t *testing.T) {
	client := NewClient(Config{}, nil)
	_, err := client.Synthesize(context.Background(), SynthesisRequest{Text: "hello"})
	assert.Error(t, err)
}
