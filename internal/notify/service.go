package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/cliniccall/cliniccall-ai/pkg/logging"
)

// Service sends patient-facing notifications. Failures are logged and
// reported to the caller, but callers are expected to treat them as
// non-fatal: a booking stands even when its confirmation cannot be sent.
type Service struct {
	sender EmailSender
	logger *logging.Logger
}

// NewService creates a notification service backed by the given sender.
func NewService(sender EmailSender, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if sender == nil {
		sender = NewStubEmailSender(logger)
	}
	return &Service{sender: sender, logger: logger}
}

// BookingConfirmation describes a booked appointment for notification purposes.
type BookingConfirmation struct {
	PatientName  string
	PatientEmail string
	Department   string
	Provider     string
	StartTime    time.Time
}

// SendBookingConfirmation emails the patient their appointment details.
// Returns an error only for diagnostics; the appointment is already booked.
func (s *Service) SendBookingConfirmation(ctx context.Context, c BookingConfirmation) error {
	if c.PatientEmail == "" {
		s.logger.Info("skipping booking confirmation, no patient email", "department", c.Department)
		return nil
	}

	when := c.StartTime.Format("Monday, January 2 at 3:04 PM")
	body := fmt.Sprintf(
		"Hello %s,\n\nYour %s appointment with %s is booked for %s.\n\nThank you,\nClinicCall AI",
		c.PatientName, c.Department, c.Provider, when,
	)

	msg := EmailMessage{
		To:      c.PatientEmail,
		ToName:  c.PatientName,
		Subject: fmt.Sprintf("Appointment Confirmed - %s", c.Department),
		Body:    body,
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error("booking confirmation failed", "error", err, "to", c.PatientEmail)
		return fmt.Errorf("notify: booking confirmation failed: %w", err)
	}
	return nil
}
