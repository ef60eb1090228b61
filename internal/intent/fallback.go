package intent

import (
	"context"
	"strings"
)

// KeywordClassifier is the rule-based fallback used when the LLM is not
// configured or misbehaves. The rules mirror what patients actually type
// and always produce a valid classification.
type KeywordClassifier struct{}

// NewKeywordClassifier returns the rule-based classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify applies keyword rules to the message.
func (c *KeywordClassifier) Classify(_ context.Context, message string) (Classification, error) {
	lowered := strings.ToLower(message)

	switch {
	case containsAny(lowered, "chest pain", "can't breathe", "cannot breathe", "shortness of breath", "unconscious", "severe bleeding"):
		return Classification{Intent: IntentUrgent, Reason: message}, nil
	case containsAny(lowered, "reschedule", "move my appointment", "change my appointment"):
		return Classification{Intent: IntentReschedule, Reason: message}, nil
	case containsAny(lowered, "cancel my appointment", "cancel the appointment"):
		return Classification{Intent: IntentCancel, Reason: message}, nil
	case containsAny(lowered, "cardiologist", "cardiology", "cardio", "heart"):
		return Classification{Intent: IntentBook, Department: "Cardiology", Reason: message}, nil
	case containsAny(lowered, "dermatology", "dermatologist", "rash", "skin", "acne"):
		return Classification{Intent: IntentBook, Department: "Dermatology", Reason: message}, nil
	case containsAny(lowered, "checkup", "check-up", "general", "primary", "physical"):
		return Classification{Intent: IntentBook, Department: "General Medicine", Reason: message}, nil
	case containsAny(lowered, "pediatric", "child", "kids", "my son", "my daughter"):
		return Classification{Intent: IntentBook, Department: "Pediatrics", Reason: message}, nil
	case containsAny(lowered, "ortho", "bone", "joint", "knee", "fracture"):
		return Classification{Intent: IntentBook, Department: "Orthopedics", Reason: message}, nil
	case containsAny(lowered, "appointment", "book", "schedule", "see a doctor"):
		return Classification{Intent: IntentBook, Reason: message}, nil
	default:
		return Classification{Intent: IntentUnknown}, nil
	}
}

func containsAny(s string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
