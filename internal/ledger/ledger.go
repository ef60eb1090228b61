package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cliniccall/cliniccall-ai/pkg/logging"
)

var ledgerTracer = otel.Tracer("cliniccall.internal.ledger")

// Generation window for lazily created slots: half-hour openings between
// 09:00 and 16:00 across the coming days.
const (
	dayStartHour = 9
	dayEndHour   = 16
)

// Ledger holds slot availability and appointment records with atomic
// reserve-if-free semantics. All state is in-memory and process-lifetime.
type Ledger struct {
	mu           sync.Mutex
	slots        map[string]*Slot
	appointments map[string]*Appointment
	bySlot       map[string]string // slot id -> appointment id

	windowDays   int
	slotInterval time.Duration
	now          func() time.Time
	logger       *logging.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithWindow sets the slot generation window.
func WithWindow(days, intervalMinutes int) Option {
	return func(l *Ledger) {
		if days > 0 {
			l.windowDays = days
		}
		if intervalMinutes > 0 {
			l.slotInterval = time.Duration(intervalMinutes) * time.Minute
		}
	}
}

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates an empty booking ledger.
func New(logger *logging.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = logging.Default()
	}
	l := &Ledger{
		slots:        make(map[string]*Slot),
		appointments: make(map[string]*Appointment),
		bySlot:       make(map[string]string),
		windowDays:   7,
		slotInterval: 30 * time.Minute,
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SeedDefaults pre-generates slots for the default providers so the
// assistant has inventory before any directory lookup happens.
func (l *Ledger) SeedDefaults() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, dp := range DefaultProviders {
		l.ensureProviderSlotsLocked(dp.Department, dp.Provider)
	}
}

// ListSlots returns all known slots, optionally filtered by department,
// ordered by start time.
func (l *Ledger) ListSlots(ctx context.Context, department string) []Slot {
	_, span := ledgerTracer.Start(ctx, "ledger.list_slots")
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Slot
	for _, s := range l.slots {
		if department != "" && !strings.EqualFold(s.Department, department) {
			continue
		}
		out = append(out, *s)
	}
	sortSlots(out)
	span.SetAttributes(attribute.Int("cliniccall.slot_count", len(out)))
	return out
}

// SlotsForProvider returns up to limit open slots for the provider,
// lazily generating a default set when the provider has none yet. A known
// provider therefore never comes back empty-handed on first contact.
func (l *Ledger) SlotsForProvider(ctx context.Context, department, provider string, limit int) []Slot {
	_, span := ledgerTracer.Start(ctx, "ledger.slots_for_provider")
	defer span.End()
	span.SetAttributes(
		attribute.String("cliniccall.department", department),
		attribute.String("cliniccall.provider", provider),
	)

	l.mu.Lock()
	defer l.mu.Unlock()

	if created := l.ensureProviderSlotsLocked(department, provider); created > 0 {
		l.logger.Info("ledger: generated slots for provider",
			"department", department,
			"provider", provider,
			"count", created,
		)
	}

	var out []Slot
	for _, s := range l.slots {
		if s.IsBooked || s.Provider != provider || !strings.EqualFold(s.Department, department) {
			continue
		}
		out = append(out, *s)
	}
	sortSlots(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Slot returns a copy of the slot, or ErrSlotNotFound.
func (l *Ledger) Slot(id string) (Slot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[id]
	if !ok {
		return Slot{}, ErrSlotNotFound
	}
	return *s, nil
}

// Reserve atomically books the slot for the patient. The check-and-set
// runs under the ledger lock, so concurrent attempts on the same slot
// yield exactly one winner; losers get ErrSlotAlreadyBooked and no state
// changes. A booked slot never un-books.
func (l *Ledger) Reserve(ctx context.Context, slotID, patientID, reason string) (Appointment, error) {
	_, span := ledgerTracer.Start(ctx, "ledger.reserve")
	defer span.End()
	span.SetAttributes(attribute.String("cliniccall.slot_id", slotID))

	if strings.TrimSpace(patientID) == "" {
		return Appointment{}, ErrInvalidPatient
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[slotID]
	if !ok {
		return Appointment{}, ErrSlotNotFound
	}
	if slot.IsBooked {
		span.SetAttributes(attribute.Bool("cliniccall.conflict", true))
		return Appointment{}, ErrSlotAlreadyBooked
	}

	slot.IsBooked = true
	appt := &Appointment{
		ID:        uuid.NewString(),
		PatientID: patientID,
		SlotID:    slotID,
		Reason:    reason,
		Status:    StatusBooked,
		CreatedAt: l.now().UTC(),
	}
	l.appointments[appt.ID] = appt
	l.bySlot[slotID] = appt.ID

	l.logger.Info("ledger: slot reserved",
		"slot_id", slotID,
		"appointment_id", appt.ID,
		"patient_id", patientID,
	)
	return *appt, nil
}

// Appointment returns a copy of the appointment, or ErrAppointmentNotFound.
func (l *Ledger) Appointment(id string) (Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.appointments[id]
	if !ok {
		return Appointment{}, ErrAppointmentNotFound
	}
	return *a, nil
}

// AppointmentForSlot returns the appointment referencing the slot, if any.
func (l *Ledger) AppointmentForSlot(slotID string) (Appointment, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.bySlot[slotID]
	if !ok {
		return Appointment{}, false
	}
	return *l.appointments[id], true
}

// AppointmentsForPatient returns all appointments for the patient,
// newest first.
func (l *Ledger) AppointmentsForPatient(patientID string) []Appointment {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Appointment
	for _, a := range l.appointments {
		if a.PatientID == patientID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// ensureProviderSlotsLocked generates the default slot window for a
// provider that has no slots yet. Caller holds l.mu.
func (l *Ledger) ensureProviderSlotsLocked(department, provider string) int {
	for _, s := range l.slots {
		if s.Provider == provider && strings.EqualFold(s.Department, department) {
			return 0
		}
	}

	created := 0
	today := l.now()
	for dayOffset := 0; dayOffset < l.windowDays; dayOffset++ {
		day := today.AddDate(0, 0, dayOffset)
		start := time.Date(day.Year(), day.Month(), day.Day(), dayStartHour, 0, 0, 0, day.Location())
		end := time.Date(day.Year(), day.Month(), day.Day(), dayEndHour, 0, 0, 0, day.Location())
		for current := start; !current.After(end); current = current.Add(l.slotInterval) {
			slot := &Slot{
				ID:         uuid.NewString(),
				Department: department,
				Provider:   provider,
				StartTime:  current,
			}
			l.slots[slot.ID] = slot
			created++
		}
	}
	return created
}

func sortSlots(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].StartTime.Equal(slots[j].StartTime) {
			return slots[i].ID < slots[j].ID
		}
		return slots[i].StartTime.Before(slots[j].StartTime)
	})
}
