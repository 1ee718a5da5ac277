package appointments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

func TestPatientStoreExists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := NewPatientStore(mock)
	id := uuid.New()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	known, err := store.Exists(context.Background(), id)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !known {
		t.Fatal("expected patient to be known")
	}

	unknown := uuid.New()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(unknown).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	known, err = store.Exists(context.Background(), unknown)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if known {
		t.Fatal("expected patient to be unknown")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
