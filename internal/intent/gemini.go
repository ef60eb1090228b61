package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/cliniccall/cliniccall-ai/pkg/logging"
)

const classifierSystemPrompt = `You are an AI receptionist for a clinic. Extract intent, department, and reason from the patient's message.
Intent must be one of BOOK, RESCHEDULE, CANCEL, URGENT, UNKNOWN.
Department, when present, must be one of Dermatology, Cardiology, General Medicine, Pediatrics, Orthopedics.
Return JSON only: {"intent": "...", "department": "...", "reason": "..."}`

// GeminiClassifier classifies messages with Gemini and falls back to
// keyword rules whenever the model is unreachable or returns something
// that does not validate.
type GeminiClassifier struct {
	client     *genai.Client
	modelID    string
	timeout    time.Duration
	fallback   *KeywordClassifier
	onFallback func()
	logger     *logging.Logger
}

// SetFallbackHook registers a callback invoked whenever a classification
// degrades to the keyword rules, typically to bump a metric.
func (c *GeminiClassifier) SetFallbackHook(f func()) {
	c.onFallback = f
}

// NewGeminiClassifier creates a Gemini-backed classifier.
func NewGeminiClassifier(ctx context.Context, apiKey, modelID string, timeout time.Duration, logger *logging.Logger) (*GeminiClassifier, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("intent: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("intent: failed to create gemini client: %w", err)
	}

	return &GeminiClassifier{
		client:   client,
		modelID:  modelID,
		timeout:  timeout,
		fallback: NewKeywordClassifier(),
		logger:   logger,
	}, nil
}

// Classify asks Gemini for a structured intent. Any failure degrades to
// the keyword fallback; the conversation never sees an error.
func (c *GeminiClassifier) Classify(ctx context.Context, message string) (Classification, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cls, err := c.classify(ctx, message)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		c.logger.Warn("intent: gemini classification fell back",
			"error", err,
			"latency_ms", latency,
		)
		if c.onFallback != nil {
			c.onFallback()
		}
		return c.fallback.Classify(ctx, message)
	}

	c.logger.Debug("intent: classified",
		"intent", cls.Intent,
		"department", cls.Department,
		"latency_ms", latency,
	)
	return cls, nil
}

func (c *GeminiClassifier) classify(ctx context.Context, message string) (Classification, error) {
	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(0)
	model.SetMaxOutputTokens(300)
	model.SystemInstruction = genai.NewUserContent(genai.Text(classifierSystemPrompt))

	resp, err := model.GenerateContent(ctx, genai.Text(message))
	if err != nil {
		return Classification{}, fmt.Errorf("intent: gemini completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return Classification{}, errors.New("intent: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return Classification{}, errors.New("intent: gemini returned empty content")
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	return ParseClassifierOutput(text.String())
}

// Close releases resources held by the Gemini client.
func (c *GeminiClassifier) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

type rawClassification struct {
	Intent     string `json:"intent"`
	Department string `json:"department"`
	Reason     string `json:"reason"`
}

// ParseClassifierOutput extracts the first JSON object from model output
// and validates it into the tagged classification. Unvalidated text never
// escapes this boundary.
func ParseClassifierOutput(text string) (Classification, error) {
	payload := extractFirstJSON(text)
	if payload == "" {
		return Classification{}, errors.New("intent: no JSON object in classifier output")
	}

	var raw rawClassification
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return Classification{}, fmt.Errorf("intent: malformed classifier JSON: %w", err)
	}

	parsed, ok := ParseIntent(raw.Intent)
	if !ok {
		return Classification{}, fmt.Errorf("intent: unrecognized intent %q", raw.Intent)
	}

	cls := Classification{
		Intent:     parsed,
		Department: NormalizeDepartment(raw.Department),
		Reason:     strings.TrimSpace(raw.Reason),
	}
	return cls, nil
}

// extractFirstJSON returns the first balanced {...} block in text, or "".
func extractFirstJSON(text string) string {
	start := -1
	depth := 0
	for i, ch := range text {
		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}
