package triage

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

// Severity grades how quickly a patient needs care.
type Severity string

const (
	SeverityEmergency Severity = "EMERGENCY"
	SeverityUrgent    Severity = "URGENT"
	SeverityRoutine   Severity = "ROUTINE"
)

// Result is the validated triage output for one message.
type Result struct {
	Severity Severity
	Summary  string
	Escalate bool
}

// Service grades message severity. Implementations degrade to keyword
// rules; triage never fails a request.
type Service interface {
	Triage(ctx context.Context, message string) (Result, error)
}

const triageSystemPrompt = `You are an AI receptionist for a clinic. Extract triage severity, summary, and whether to escalate.
Severity must be one of EMERGENCY, URGENT, ROUTINE.
Return JSON only: {"severity": "...", "summary": "...", "escalate": true}`

// GeminiService triages via Gemini with a rule-based fallback.
type GeminiService struct {
	client  *genai.Client
	modelID string
	timeout time.Duration
	logger  *logging.Logger
}

// NewGeminiService creates a Gemini-backed triage service.
func NewGeminiService(ctx context.Context, apiKey, modelID string, timeout time.Duration, logger *logging.Logger) (*GeminiService, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("triage: gemini api key is required")
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
		return nil, fmt.Errorf("triage: failed to create gemini client: %w", err)
	}
	return &GeminiService{client: client, modelID: modelID, timeout: timeout, logger: logger}, nil
}

// Triage grades the message, degrading to keyword rules on any failure.
func (s *GeminiService) Triage(ctx context.Context, message string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.triage(ctx, message)
	if err != nil {
		s.logger.Warn("triage: gemini fell back", "error", err)
		return FallbackTriage(message), nil
	}
	return res, nil
}

func (s *GeminiService) triage(ctx context.Context, message string) (Result, error) {
	model := s.client.GenerativeModel(s.modelID)
	model.SetTemperature(0)
	model.SetMaxOutputTokens(300)
	model.SystemInstruction = genai.NewUserContent(genai.Text(triageSystemPrompt))

	resp, err := model.GenerateContent(ctx, genai.Text(message))
	if err != nil {
		return Result{}, fmt.Errorf("triage: gemini completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Result{}, errors.New("triage: gemini returned no content")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return ParseTriageOutput(text.String())
}

// Close releases resources held by the Gemini client.
func (s *GeminiService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

type rawTriage struct {
	Severity string          `json:"severity"`
	Summary  string          `json:"summary"`
	Escalate json.RawMessage `json:"escalate"`
}

// ParseTriageOutput validates model output into a Result.
func ParseTriageOutput(text string) (Result, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return Result{}, errors.New("triage: no JSON object in output")
	}

	var raw rawTriage
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return Result{}, fmt.Errorf("triage: malformed JSON: %w", err)
	}

	severity := Severity(strings.ToUpper(strings.TrimSpace(raw.Severity)))
	switch severity {
	case SeverityEmergency, SeverityUrgent, SeverityRoutine:
	default:
		return Result{}, fmt.Errorf("triage: unrecognized severity %q", raw.Severity)
	}

	summary := strings.TrimSpace(raw.Summary)
	if summary == "" {
		summary = "Triage summary unavailable."
	}

	escalate := severity != SeverityRoutine
	if len(raw.Escalate) > 0 {
		var b bool
		if err := json.Unmarshal(raw.Escalate, &b); err == nil {
			escalate = b
		}
	}

	return Result{Severity: severity, Summary: summary, Escalate: escalate}, nil
}

// FallbackTriage applies keyword rules when the model is unavailable.
func FallbackTriage(message string) Result {
	lowered := strings.ToLower(message)
	if strings.Contains(lowered, "chest pain") || strings.Contains(lowered, "shortness of breath") {
		return Result{
			Severity: SeverityEmergency,
			Summary:  "Possible cardiac or respiratory emergency symptoms.",
			Escalate: true,
		}
	}
	if strings.Contains(lowered, "bleeding") || strings.Contains(lowered, "severe pain") {
		return Result{
			Severity: SeverityUrgent,
			Summary:  "Potentially urgent symptoms reported.",
			Escalate: true,
		}
	}
	return Result{
		Severity: SeverityRoutine,
		Summary:  "No urgent indicators detected.",
		Escalate: false,
	}
}

// FallbackService is a Service built purely on the keyword rules, used
// when no LLM is configured.
type FallbackService struct{}

// Triage applies the keyword rules.
func (FallbackService) Triage(_ context.Context, message string) (Result, error) {
	return FallbackTriage(message), nil
}
