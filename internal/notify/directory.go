package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PGDirectory reads notification addresses from the patients table, which
// the clinic's patient registry maintains.
type PGDirectory struct {
	db DB
}

// NewPGDirectory creates a postgres-backed patient directory.
func NewPGDirectory(db DB) *PGDirectory {
	return &PGDirectory{db: db}
}

// PatientContact looks up one patient's name and email.
func (d *PGDirectory) PatientContact(ctx context.Context, id uuid.UUID) (*Contact, error) {
	var c Contact
	err := d.db.QueryRow(ctx, `
		SELECT name, email FROM patients WHERE id = $1`, id).Scan(&c.Name, &c.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("notify: patient %s not registered", id)
		}
		return nil, fmt.Errorf("notify: patient lookup: %w", err)
	}
	return &c, nil
}

var _ Directory = (*PGDirectory)(nil)
