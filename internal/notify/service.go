package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/elihu-analytics/clinic-scheduler/internal/appointments"
	"github.com/elihu-analytics/clinic-scheduler/pkg/logging"
)

// Recipient roles for reminder metrics and the sent log.
const (
	RolePatient      = "patient"
	RolePractitioner = "practitioner"
)

// Contact is a resolvable notification address.
type Contact struct {
	Name  string
	Email string
}

// Directory resolves patient ids to notification addresses. The scheduler
// stores only the patient id; the clinic's patient registry owns the rest.
type Directory interface {
	PatientContact(ctx context.Context, id uuid.UUID) (*Contact, error)
}

// Service sends appointment emails to patients and the practice.
type Service struct {
	email         EmailSender
	directory     Directory
	practiceName  string
	practiceEmail string
	logger        *logging.Logger
}

// NewService creates a notification service. A nil email sender disables
// sending; calls then log and return nil so booking flows never block on
// notification config.
func NewService(email EmailSender, directory Directory, practiceName, practiceEmail string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if practiceName == "" {
		practiceName = "the clinic"
	}
	return &Service{
		email:         email,
		directory:     directory,
		practiceName:  practiceName,
		practiceEmail: practiceEmail,
		logger:        logger,
	}
}

// BookingNotice tells the patient their appointment is on the calendar.
func (s *Service) BookingNotice(ctx context.Context, a *appointments.Appointment) error {
	body := fmt.Sprintf(`Hello %%s,

Your appointment at %s has been scheduled for %s at %s.

Please remember to confirm it on the day of your visit.

— %s`, s.practiceName, a.StartTime.Format("02/01/2006"), a.StartTime.Format("15:04"), s.practiceName)

	return s.sendToPatient(ctx, a, "Appointment scheduled", body)
}

// Confirmation relays the confirmation message built by the scheduler.
func (s *Service) Confirmation(ctx context.Context, a *appointments.Appointment, message string) error {
	body := "Hello %s,\n\n" + message + "\n\n— " + s.practiceName
	return s.sendToPatient(ctx, a, "Appointment confirmed", body)
}

// CancellationNotice tells the patient the appointment was cancelled.
func (s *Service) CancellationNotice(ctx context.Context, a *appointments.Appointment) error {
	body := fmt.Sprintf(`Hello %%s,

Your appointment on %s at %s has been cancelled.

If you would like a new time, please book again.

— %s`, a.StartTime.Format("02/01/2006"), a.StartTime.Format("15:04"), s.practiceName)

	return s.sendToPatient(ctx, a, "Appointment cancelled", body)
}

// RescheduleNotice tells the patient about the moved time. A rescheduled
// appointment returns to scheduled, so the notice asks for a fresh
// confirmation.
func (s *Service) RescheduleNotice(ctx context.Context, a *appointments.Appointment, previousStart time.Time) error {
	body := fmt.Sprintf(`Hello %%s,

Your appointment of %s has been moved to %s at %s.

Please confirm the new time on the day of your visit.

— %s`, previousStart.Format("02/01/2006 15:04"), a.StartTime.Format("02/01/2006"), a.StartTime.Format("15:04"), s.practiceName)

	return s.sendToPatient(ctx, a, "Appointment rescheduled", body)
}

// SendReminder sends an upcoming-appointment reminder to one role.
func (s *Service) SendReminder(ctx context.Context, a *appointments.Appointment, role string) error {
	when := fmt.Sprintf("%s at %s", a.StartTime.Format("02/01/2006"), a.StartTime.Format("15:04"))

	if role == RolePractitioner {
		if s.practiceEmail == "" {
			s.logger.Debug("practice email not configured, skipping practitioner reminder", "appointment_id", a.ID)
			return nil
		}
		body := fmt.Sprintf("Upcoming appointment: %s, patient %s.", when, a.PatientID)
		if a.Reason != "" {
			body += "\nReason: " + a.Reason
		}
		return s.send(ctx, EmailMessage{
			To:      s.practiceEmail,
			ToName:  s.practiceName,
			Subject: "Upcoming appointment " + when,
			Body:    body,
		})
	}

	body := fmt.Sprintf(`Hello %%s,

This is a reminder of your appointment at %s on %s.

— %s`, s.practiceName, when, s.practiceName)
	return s.sendToPatient(ctx, a, "Appointment reminder", body)
}

// sendToPatient resolves the patient's address and sends one email. The
// body may carry a single %s for the patient name.
func (s *Service) sendToPatient(ctx context.Context, a *appointments.Appointment, subject, body string) error {
	if s.directory == nil {
		s.logger.Debug("patient directory not configured, skipping email", "appointment_id", a.ID)
		return nil
	}
	contact, err := s.directory.PatientContact(ctx, a.PatientID)
	if err != nil {
		return fmt.Errorf("notify: patient contact: %w", err)
	}
	if contact.Email == "" {
		s.logger.Warn("patient has no email on file", "patient_id", a.PatientID)
		return nil
	}
	name := contact.Name
	if name == "" {
		name = "patient"
	}
	return s.send(ctx, EmailMessage{
		To:      contact.Email,
		ToName:  contact.Name,
		Subject: subject,
		Body:    fmt.Sprintf(body, name),
	})
}

func (s *Service) send(ctx context.Context, msg EmailMessage) error {
	if s.email == nil {
		s.logger.Debug("email sender not configured, skipping", "to", msg.To, "subject", msg.Subject)
		return nil
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: send %q: %w", msg.Subject, err)
	}
	return nil
}

// Ensure interface compliance
var _ appointments.Notifier = (*Service)(nil)
