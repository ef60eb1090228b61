package ledger

import "time"

// Slot is a bookable time window for a provider in a department.
type Slot struct {
	ID         string    `json:"id"`
	Department string    `json:"department"`
	Provider   string    `json:"provider"`
	StartTime  time.Time `json:"start_time"`
	IsBooked   bool      `json:"is_booked"`
}

// Appointment records a confirmed reservation against a slot.
type Appointment struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	SlotID    string    `json:"slot_id"`
	Reason    string    `json:"reason"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusBooked is the status of a freshly reserved appointment.
const StatusBooked = "booked"

// DefaultProviders are the department/provider pairs seeded at startup.
var DefaultProviders = []struct {
	Department string
	Provider   string
}{
	{"Dermatology", "Dr. Patel"},
	{"Cardiology", "Dr. Nguyen"},
	{"General Medicine", "Dr. Rivera"},
	{"Pediatrics", "Dr. Kim"},
	{"Orthopedics", "Dr. Shah"},
}
