package patients

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrPatientNotFound is returned when no patient matches
	ErrPatientNotFound = errors.New("patient not found")

	// ErrInvalidPatient is returned when required fields are missing
	ErrInvalidPatient = errors.New("patient name and phone are required")
)

// Patient is a registered patient record.
type Patient struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// CreatePatientRequest is the input for registering a patient.
type CreatePatientRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Validate checks required fields.
func (r *CreatePatientRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Phone) == "" {
		return ErrInvalidPatient
	}
	return nil
}

// Repository defines the interface for patient storage
type Repository interface {
	Create(ctx context.Context, req *CreatePatientRequest) (*Patient, error)
	GetByID(ctx context.Context, id string) (*Patient, error)
	GetByPhone(ctx context.Context, phone string) (*Patient, error)
}

// InMemoryRepository stores patients in memory for the process lifetime.
type InMemoryRepository struct {
	mu       sync.RWMutex
	patients map[string]*Patient
	byPhone  map[string]string
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		patients: make(map[string]*Patient),
		byPhone:  make(map[string]string),
	}
}

// Create registers a new patient.
func (r *InMemoryRepository) Create(_ context.Context, req *CreatePatientRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := &Patient{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(req.Name),
		Phone:     normalizePhone(req.Phone),
		Email:     strings.TrimSpace(req.Email),
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.patients[p.ID] = p
	r.byPhone[p.Phone] = p.ID
	r.mu.Unlock()

	return p, nil
}

// GetByID retrieves a patient by ID
func (r *InMemoryRepository) GetByID(_ context.Context, id string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

// GetByPhone retrieves a patient by phone number (digits compared).
func (r *InMemoryRepository) GetByPhone(_ context.Context, phone string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPhone[normalizePhone(phone)]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return r.patients[id], nil
}

func normalizePhone(phone string) string {
	var b strings.Builder
	for _, ch := range phone {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}
