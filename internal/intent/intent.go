package intent

import (
	"context"
	"strings"
)

// Intent is the classified purpose of a user message.
type Intent string

const (
	IntentBook       Intent = "BOOK"
	IntentReschedule Intent = "RESCHEDULE"
	IntentCancel     Intent = "CANCEL"
	IntentUrgent     Intent = "URGENT"
	IntentUnknown    Intent = "UNKNOWN"
)

// Departments the assistant can book into. Classifier output outside this
// set is discarded rather than propagated into routing.
var Departments = []string{
	"Dermatology",
	"Cardiology",
	"General Medicine",
	"Pediatrics",
	"Orthopedics",
}

// Classification is the validated classifier output for one message.
type Classification struct {
	Intent     Intent
	Department string
	Reason     string
}

// Classifier turns free text into a structured intent. Implementations
// must degrade rather than fail: on any upstream problem they return a
// best-effort classification, ultimately IntentUnknown.
type Classifier interface {
	Classify(ctx context.Context, message string) (Classification, error)
}

// ParseIntent validates a raw intent label into the tagged set.
func ParseIntent(raw string) (Intent, bool) {
	switch Intent(strings.ToUpper(strings.TrimSpace(raw))) {
	case IntentBook:
		return IntentBook, true
	case IntentReschedule:
		return IntentReschedule, true
	case IntentCancel:
		return IntentCancel, true
	case IntentUrgent:
		return IntentUrgent, true
	case IntentUnknown:
		return IntentUnknown, true
	default:
		return IntentUnknown, false
	}
}

// NormalizeDepartment maps a free-form department guess onto the
// allowlist, returning "" when it does not match.
func NormalizeDepartment(raw string) string {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return ""
	}
	for _, dept := range Departments {
		if strings.EqualFold(dept, candidate) {
			return dept
		}
	}
	return ""
}
