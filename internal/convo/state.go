// Package convo holds the conversation state machine that drives
// appointment booking over chat and voice.
package convo

import (
	"time"

	"github.com/cliniccall/cliniccall-ai/internal/directory"
	"github.com/cliniccall/cliniccall-ai/internal/intent"
	"github.com/cliniccall/cliniccall-ai/internal/ledger"
)

// Stage identifies where a conversation is in the booking flow.
type Stage string

const (
	StageStart             Stage = "START"
	StageCollectingSymptom Stage = "COLLECTING_SYMPTOM"
	StageCollectingZip     Stage = "COLLECTING_LOCATION"
	StageProviderSelection Stage = "PROVIDER_SELECTION"
	StageSlotSelection     Stage = "SLOT_SELECTION"
	StageConfirmation      Stage = "CONFIRMATION"
	StageBooked            Stage = "BOOKED"
	// StageUrgent is terminal: once a conversation escalates it never
	// returns to the booking flow.
	StageUrgent Stage = "URGENT"
)

// Conversation is the full state of one booking dialogue. It is
// serializable so it can live in Redis as well as in memory.
type Conversation struct {
	ID    string `json:"id"`
	Stage Stage  `json:"stage"`

	Intent     intent.Intent `json:"intent,omitempty"`
	Department string        `json:"department,omitempty"`
	PostalCode string        `json:"postal_code,omitempty"`

	// Candidate lists shown to the patient. Generation increments every
	// time either list is (re)presented and is echoed on list-bearing
	// replies so clients can tell versions apart. The engine itself
	// invalidates stale ordinals by replacing the lists and clearing
	// PendingSlotID on every refresh.
	Providers     []directory.Provider `json:"providers,omitempty"`
	ProviderMatch string               `json:"provider_match,omitempty"`
	Slots         []ledger.Slot        `json:"slots,omitempty"`
	Generation    int                  `json:"generation"`

	SelectedProvider string `json:"selected_provider,omitempty"`
	PendingSlotID    string `json:"pending_slot_id,omitempty"`

	PatientName  string `json:"patient_name,omitempty"`
	PatientPhone string `json:"patient_phone,omitempty"`
	PatientEmail string `json:"patient_email,omitempty"`
	PatientID    string `json:"patient_id,omitempty"`

	// AwaitingContact marks that the assistant asked for name and phone
	// during confirmation; the next reply is parsed as contact details.
	AwaitingContact bool `json:"awaiting_contact,omitempty"`

	AppointmentID string `json:"appointment_id,omitempty"`
	UrgentCaseID  string `json:"urgent_case_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// pendingSlot returns the slot matching PendingSlotID from the current
// candidate list, if any.
func (c *Conversation) pendingSlot() (ledger.Slot, bool) {
	for _, s := range c.Slots {
		if s.ID == c.PendingSlotID {
			return s, true
		}
	}
	return ledger.Slot{}, false
}

// resetBookingState clears everything tied to an in-progress booking
// attempt while preserving patient contact details.
func (c *Conversation) resetBookingState() {
	c.Stage = StageStart
	c.Intent = ""
	c.Department = ""
	c.PostalCode = ""
	c.Providers = nil
	c.ProviderMatch = ""
	c.Slots = nil
	c.SelectedProvider = ""
	c.PendingSlotID = ""
	c.AppointmentID = ""
	c.AwaitingContact = false
	c.Generation++
}
