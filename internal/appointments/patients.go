package appointments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// PatientRegistry answers whether a patient id belongs to a registered
// patient. The scheduler refuses bookings for ids the registry does not know.
type PatientRegistry interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// PatientStore checks patient ids against the patients table.
type PatientStore struct {
	db DB
}

// NewPatientStore creates a registry backed by a pgx pool or transaction.
func NewPatientStore(db DB) *PatientStore {
	return &PatientStore{db: db}
}

// Exists reports whether the patient is registered.
func (s *PatientStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM patients WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("appointments: patient exists: %w", err)
	}
	return exists, nil
}
