package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliniccall/cliniccall-ai/internal/ledger"
	"github.com/cliniccall/cliniccall-ai/internal/patients"
)

func newAppointmentsFixture(t *testing.T) (*AppointmentsHandler, *ledger.Ledger) {
	t.Helper()
	l := ledger.New(nil)
	l.SeedDefaults()
	return NewAppointmentsHandler(l, patients.NewInMemoryRepository(), nil, nil), l
}

func postBook(t *testing.T, h *AppointmentsHandler, req BookRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, "/api/appointments/book", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Book(rec, r)
	return rec
}

func TestBookSlot(t *testing.T) {
	h, l := newAppointmentsFixture(t)
	slots := l.ListSlots(context.Background(), "Dermatology")
	require.NotEmpty(t, slots)

	rec := postBook(t, h, BookRequest{
		SlotID:       slots[0].ID,
		PatientName:  "Jane Doe",
		PatientPhone: "415-555-0100",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp BookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ledger.StatusBooked, resp.Appointment.Status)
	assert.True(t, resp.Slot.IsBooked)
}

func TestBookSlotConflict(t *testing.T) {
	h, l := newAppointmentsFixture(t)
	slots := l.ListSlots(context.Background(), "Cardiology")
	require.NotEmpty(t, slots)

	first := postBook(t, h, BookRequest{SlotID: slots[0].ID, PatientName: "A", PatientPhone: "212-555-0001"})
	require.Equal(t, http.StatusCreated, first.Code)

	second := postBook(t, h, BookRequest{SlotID: slots[0].ID, PatientName: "B", PatientPhone: "212-555-0002"})
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), "Slot already booked")
}

func TestBookSlotNotFound(t *testing.T) {
	h, _ := newAppointmentsFixture(t)
	rec := postBook(t, h, BookRequest{SlotID: "missing", PatientName: "A", PatientPhone: "212-555-0001"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookSlotRequiresPatient(t *testing.T) {
	h, l := newAppointmentsFixture(t)
	slots := l.ListSlots(context.Background(), "Pediatrics")
	require.NotEmpty(t, slots)

	rec := postBook(t, h, BookRequest{SlotID: slots[0].ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookSlotMissingSlotID(t *testing.T) {
	h, _ := newAppointmentsFixture(t)
	rec := postBook(t, h, BookRequest{PatientName: "A", PatientPhone: "212-555-0001"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookUnknownPatientID(t *testing.T) {
	h, l := newAppointmentsFixture(t)
	slots := l.ListSlots(context.Background(), "Dermatology")
	require.NotEmpty(t, slots)

	rec := postBook(t, h, BookRequest{SlotID: slots[0].ID, PatientID: "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVoiceBookSynthesizesEmail(t *testing.T) {
	h, l := newAppointmentsFixture(t)
	ctx := context.Background()
	slots := l.ListSlots(ctx, "General Medicine")
	require.NotEmpty(t, slots)

	body, err := json.Marshal(BookRequest{
		SlotID:       slots[0].ID,
		PatientName:  "Caller",
		PatientPhone: "646-555-0123",
	})
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, "/api/appointments/voice-book", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.VoiceBook(rec, r)
	require.Equal(t, http.StatusCreated, rec.Code)

	p, err := h.patients.GetByPhone(ctx, "646-555-0123")
	require.NoError(t, err)
	assert.Equal(t, "6465550123@voice.cliniccall.local", p.Email)
}

func TestBookExistingPatientByPhone(t *testing.T) {
	h, l := newAppointmentsFixture(t)
	ctx := context.Background()

	existing, err := h.patients.Create(ctx, &patients.CreatePatientRequest{Name: "Jane Doe", Phone: "415-555-0100"})
	require.NoError(t, err)

	slots := l.ListSlots(ctx, "Orthopedics")
	require.NotEmpty(t, slots)

	rec := postBook(t, h, BookRequest{SlotID: slots[0].ID, PatientName: "Jane Doe", PatientPhone: "(415) 555-0100"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp BookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, existing.ID, resp.Appointment.PatientID, "phone lookup reuses the existing patient")
}
