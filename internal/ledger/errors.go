package ledger

import "errors"

var (
	// ErrSlotNotFound is returned when the slot id is unknown
	ErrSlotNotFound = errors.New("slot not found")

	// ErrSlotAlreadyBooked is returned when a reservation loses the race
	ErrSlotAlreadyBooked = errors.New("Slot already booked")

	// ErrInvalidPatient is returned when the patient reference is missing or invalid
	ErrInvalidPatient = errors.New("invalid patient reference")

	// ErrAppointmentNotFound is returned when the appointment id is unknown
	ErrAppointmentNotFound = errors.New("appointment not found")
)
