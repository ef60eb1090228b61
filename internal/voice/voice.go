// Package voice adapts third-party speech services: OpenAI Whisper for
// transcription and ElevenLabs for text-to-speech.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cliniccall/cliniccall-ai/pkg/logging"
)

const (
	defaultOpenAIBaseURL     = "https://api.openai.com/v1"
	defaultElevenLabsBaseURL = "https://api.elevenlabs.io/v1"
	defaultVoiceID           = "21m00Tcm4TlvDq8ikWAM"
	defaultTimeout           = 30 * time.Second
)

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// SynthesisRequest describes one text-to-speech call. VoiceID and
// Format are optional; empty values use the configured defaults.
type SynthesisRequest struct {
	Text    string
	VoiceID string
	Format  string
}

// Synthesizer converts text into spoken audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error)
}

// MIMEType maps a synthesis output format to the content type of the
// returned audio. An empty format means the default MP3 encoding.
func MIMEType(format string) string {
	switch {
	case format == "", strings.HasPrefix(format, "mp3"):
		return "audio/mpeg"
	case strings.HasPrefix(format, "ulaw"):
		return "audio/basic"
	default:
		return "application/octet-stream"
	}
}

// Config holds credentials and endpoints for the speech services.
type Config struct {
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	ElevenLabsAPIKey string
	ElevenLabsURL    string
	VoiceID          string
	Timeout          time.Duration
}

// Client implements Transcriber and Synthesizer over HTTP.
type Client struct {
	httpClient *http.Client
	cfg        Config
	logger     *logging.Logger
}

// NewClient creates a speech client. Missing keys are tolerated; the
// corresponding call returns an error when attempted.
func NewClient(cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.OpenAIBaseURL == "" {
		cfg.OpenAIBaseURL = defaultOpenAIBaseURL
	}
	if cfg.ElevenLabsURL == "" {
		cfg.ElevenLabsURL = defaultElevenLabsBaseURL
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = defaultVoiceID
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger,
	}
}

// Transcribe sends audio to the Whisper API and returns the recognized text.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if c.cfg.OpenAIAPIKey == "" {
		return "", fmt.Errorf("voice: transcription not configured")
	}
	if filename == "" {
		filename = "audio.webm"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("voice: build transcription request: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("voice: read audio: %w", err)
	}
	if err := w.WriteField("model", "whisper-1"); err != nil {
		return "", fmt.Errorf("voice: build transcription request: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("voice: build transcription request: %w", err)
	}

	url := c.cfg.OpenAIBaseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", fmt.Errorf("voice: build transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.OpenAIAPIKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("voice: transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Error("transcription service error", "status", resp.StatusCode, "body", string(body))
		return "", fmt.Errorf("voice: transcription service returned status %d", resp.StatusCode)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("voice: decode transcription response: %w", err)
	}
	return out.Text, nil
}

// Synthesize sends text to ElevenLabs and returns the audio bytes.
func (c *Client) Synthesize(ctx context.Context, sr SynthesisRequest) ([]byte, error) {
	if c.cfg.ElevenLabsAPIKey == "" {
		return nil, fmt.Errorf("voice: speech synthesis not configured")
	}

	payload, err := json.Marshal(map[string]any{
		"text":     sr.Text,
		"model_id": "eleven_monolingual_v1",
		"voice_settings": map[string]float64{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("voice: build synthesis request: %w", err)
	}

	voiceID := sr.VoiceID
	if voiceID == "" {
		voiceID = c.cfg.VoiceID
	}
	endpoint := fmt.Sprintf("%s/text-to-speech/%s", c.cfg.ElevenLabsURL, voiceID)
	if sr.Format != "" {
		endpoint += "?output_format=" + url.QueryEscape(sr.Format)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("voice: build synthesis request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.ElevenLabsAPIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", MIMEType(sr.Format))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voice: synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Error("synthesis service error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("voice: synthesis service returned status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("voice: read synthesis response: %w", err)
	}
	return audio, nil
}
