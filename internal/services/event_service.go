package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/pitchzone-be/internal/models"
	"github.com/rs/zerolog/log"
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, event models.Event) error
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
	PruneEvents(ctx context.Context, olderThan time.Time) (int64, error)
}

// sqlExecer is satisfied by both *sql.DB and *sql.Tx, so events can be written
// inside the transaction of the operation they describe.
type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// EventService provides business logic for the activity log.
type EventService struct {
	db *sql.DB
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{db: db}
}

// CreateEvent logs a new event to the database.
func (s *EventService) CreateEvent(ctx context.Context, event models.Event) error {
	return insertEvent(ctx, s.db, event)
}

func insertEvent(ctx context.Context, exec sqlExecer, event models.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Level == "" {
		event.Level = "info"
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := exec.ExecContext(ctx,
		"INSERT INTO events (id, type, level, message, pitch_id, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		event.ID, event.Type, event.Level, event.Message, event.PitchID, event.UserID, event.CreatedAt)
	return err
}

// GetRecentEvents retrieves the most recent events from the database.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, level, message, pitch_id, user_id, created_at FROM events ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		var pitchID, userID sql.NullString
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &pitchID, &userID, &event.CreatedAt); err != nil {
			return nil, err
		}
		if pitchID.Valid {
			event.PitchID = &pitchID.String
		}
		if userID.Valid {
			event.UserID = &userID.String
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// PruneEvents deletes events created before olderThan and reports how many.
func (s *EventService) PruneEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE created_at < ?", olderThan.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// logEventFailure records an event that could not be stored. The activity log
// is best effort outside of transactions.
func logEventFailure(err error, event models.Event) {
	log.Warn().Err(err).Str("event_type", event.Type).Msg("Failed to record event")
}

func strPtr(s string) *string { return &s }
