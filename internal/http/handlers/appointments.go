package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cliniccall/cliniccall-ai/internal/ledger"
	"github.com/cliniccall/cliniccall-ai/internal/notify"
	"github.com/cliniccall/cliniccall-ai/internal/patients"
	"github.com/cliniccall/cliniccall-ai/pkg/logging"
)

// AppointmentsHandler serves direct booking endpoints used by the web
// client and the voice agent.
type AppointmentsHandler struct {
	ledger   *ledger.Ledger
	patients patients.Repository
	notifier *notify.Service
	logger   *logging.Logger
}

// NewAppointmentsHandler creates an appointments handler.
func NewAppointmentsHandler(l *ledger.Ledger, repo patients.Repository, notifier *notify.Service, logger *logging.Logger) *AppointmentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{ledger: l, patients: repo, notifier: notifier, logger: logger}
}

// BookRequest reserves a specific slot.
type BookRequest struct {
	SlotID       string `json:"slot_id"`
	PatientID    string `json:"patient_id,omitempty"`
	PatientName  string `json:"patient_name,omitempty"`
	PatientPhone string `json:"patient_phone,omitempty"`
	PatientEmail string `json:"patient_email,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// BookResponse is the confirmed appointment.
type BookResponse struct {
	Appointment ledger.Appointment `json:"appointment"`
	Slot        ledger.Slot        `json:"slot"`
}

// Book reserves a slot for an authenticated caller.
func (h *AppointmentsHandler) Book(w http.ResponseWriter, r *http.Request) {
	h.book(w, r, false)
}

// VoiceBook reserves a slot on behalf of the voice agent. Auth is
// enforced by the voice-token middleware; callers without an email get a
// synthesized placeholder so the patient record stays complete.
func (h *AppointmentsHandler) VoiceBook(w http.ResponseWriter, r *http.Request) {
	h.book(w, r, true)
}

func (h *AppointmentsHandler) book(w http.ResponseWriter, r *http.Request, voice bool) {
	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.SlotID) == "" {
		writeError(w, http.StatusBadRequest, "slot_id is required")
		return
	}
	if voice && req.PatientEmail == "" && req.PatientPhone != "" {
		req.PatientEmail = placeholderEmail(req.PatientPhone)
	}

	patient, err := h.resolvePatient(r, &req)
	if err != nil {
		switch {
		case errors.Is(err, patients.ErrInvalidPatient):
			writeError(w, http.StatusBadRequest, "patient_id or patient_name and patient_phone are required")
		case errors.Is(err, patients.ErrPatientNotFound):
			writeError(w, http.StatusNotFound, "patient not found")
		default:
			h.logger.Error("patient resolution failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to resolve patient")
		}
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = "Appointment booked via API"
	}

	appt, err := h.ledger.Reserve(r.Context(), req.SlotID, patient.ID, reason)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrSlotNotFound):
			writeError(w, http.StatusNotFound, "slot not found")
		case errors.Is(err, ledger.ErrSlotAlreadyBooked):
			writeError(w, http.StatusConflict, ledger.ErrSlotAlreadyBooked.Error())
		case errors.Is(err, ledger.ErrInvalidPatient):
			writeError(w, http.StatusBadRequest, "invalid patient")
		default:
			h.logger.Error("reserve failed", "error", err, "slot_id", req.SlotID)
			writeError(w, http.StatusInternalServerError, "failed to book slot")
		}
		return
	}

	slot, _ := h.ledger.Slot(req.SlotID)

	if h.notifier != nil && patient.Email != "" {
		if err := h.notifier.SendBookingConfirmation(r.Context(), notify.BookingConfirmation{
			PatientName:  patient.Name,
			PatientEmail: patient.Email,
			Department:   slot.Department,
			Provider:     slot.Provider,
			StartTime:    slot.StartTime,
		}); err != nil {
			h.logger.Error("booking confirmation failed", "error", err, "appointment_id", appt.ID)
		}
	}

	writeJSON(w, http.StatusCreated, BookResponse{Appointment: appt, Slot: slot})
}

func (h *AppointmentsHandler) resolvePatient(r *http.Request, req *BookRequest) (*patients.Patient, error) {
	if req.PatientID != "" {
		return h.patients.GetByID(r.Context(), req.PatientID)
	}
	if req.PatientPhone != "" {
		if p, err := h.patients.GetByPhone(r.Context(), req.PatientPhone); err == nil {
			return p, nil
		} else if !errors.Is(err, patients.ErrPatientNotFound) {
			return nil, err
		}
	}
	return h.patients.Create(r.Context(), &patients.CreatePatientRequest{
		Name:  req.PatientName,
		Phone: req.PatientPhone,
		Email: req.PatientEmail,
	})
}

// placeholderEmail synthesizes a stable address for voice callers who
// only leave a phone number.
func placeholderEmail(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if digits == "" {
		return ""
	}
	return digits + "@voice.cliniccall.local"
}
