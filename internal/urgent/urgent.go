package urgent

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cliniccall/cliniccall-ai/internal/triage"
)

// Case records an escalated message for clinical follow-up.
type Case struct {
	ID         string          `json:"id"`
	PatientID  string          `json:"patient_id,omitempty"`
	Severity   triage.Severity `json:"severity"`
	Summary    string          `json:"summary"`
	Transcript string          `json:"transcript"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

// StatusReceived is the initial status of a new case.
const StatusReceived = "received"

// Store keeps urgent cases in memory for the process lifetime.
type Store struct {
	mu    sync.RWMutex
	cases map[string]*Case
}

// NewStore creates an empty urgent case store.
func NewStore() *Store {
	return &Store{cases: make(map[string]*Case)}
}

// Create records a new urgent case and returns it.
func (s *Store) Create(_ context.Context, patientID string, res triage.Result, transcript string) *Case {
	c := &Case{
		ID:         uuid.NewString(),
		PatientID:  patientID,
		Severity:   res.Severity,
		Summary:    res.Summary,
		Transcript: transcript,
		Status:     StatusReceived,
		CreatedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	s.cases[c.ID] = c
	s.mu.Unlock()
	return c
}

// List returns all cases, newest first.
func (s *Store) List(_ context.Context) []Case {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Case, 0, len(s.cases))
	for _, c := range s.cases {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
