package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Notification kinds recorded in the sent log.
const (
	KindReminder    = "reminder"
	KindNightBefore = "night_before"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SentLog records which notifications already went out, so sweep restarts
// and overlapping workers do not send duplicates.
type SentLog struct {
	db DB
}

// NewSentLog creates a sent log backed by postgres.
func NewSentLog(db DB) *SentLog {
	return &SentLog{db: db}
}

// HasBeenSent reports whether a notification of this kind was recorded for
// the appointment at or after since.
func (l *SentLog) HasBeenSent(ctx context.Context, apptID uuid.UUID, kind string, since time.Time) (bool, error) {
	var exists bool
	err := l.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notification_log
			WHERE appointment_id = $1 AND kind = $2 AND sent_at >= $3
		)`, apptID, kind, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("notify: sent log lookup: %w", err)
	}
	return exists, nil
}

// RecordSent appends an entry for a delivered notification.
func (l *SentLog) RecordSent(ctx context.Context, apptID uuid.UUID, kind, channel string) error {
	_, err := l.db.Exec(ctx, `
		INSERT INTO notification_log (id, appointment_id, kind, channel, sent_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), apptID, kind, channel, time.Now())
	if err != nil {
		return fmt.Errorf("notify: record sent: %w", err)
	}
	return nil
}
