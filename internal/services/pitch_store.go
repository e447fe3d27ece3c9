package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/isdelr/pitchzone-be/internal/models"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	sqlExecer
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const pitchSelect = `
	SELECT p.id, p.entrepreneur_id, u.username, u.full_name, u.email, u.bio, u.company_name,
	       p.title, p.description, p.target_amount, p.raised_amount, p.category, p.stage,
	       p.equity_offered, p.status, p.image_url, p.views, p.deadline, p.created_at, p.updated_at
	FROM pitches p
	JOIN users u ON u.id = p.entrepreneur_id`

func scanPitch(scanner interface{ Scan(...interface{}) error }) (models.Pitch, error) {
	var p models.Pitch
	var equity sql.NullFloat64
	var deadline sql.NullTime
	err := scanner.Scan(
		&p.ID, &p.Entrepreneur.ID, &p.Entrepreneur.Username, &p.Entrepreneur.FullName,
		&p.Entrepreneur.Email, &p.Entrepreneur.Bio, &p.Entrepreneur.CompanyName,
		&p.Title, &p.Description, &p.TargetAmount, &p.RaisedAmount, &p.Category, &p.Stage,
		&equity, &p.Status, &p.ImageURL, &p.Views, &deadline, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}
	if equity.Valid {
		p.EquityOffered = &equity.Float64
	}
	if deadline.Valid {
		p.Deadline = &deadline.Time
	}
	return p, nil
}

// loadPitch reads one pitch with its investors and feedback.
func loadPitch(ctx context.Context, q querier, id string) (models.Pitch, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Pitch{}, notFound("Pitch")
	}

	p, err := scanPitch(q.QueryRowContext(ctx, pitchSelect+" WHERE p.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Pitch{}, notFound("Pitch")
		}
		return models.Pitch{}, internal("failed to load pitch", err)
	}

	pitches := []models.Pitch{p}
	if err := attachDetails(ctx, q, pitches); err != nil {
		return models.Pitch{}, err
	}
	return pitches[0], nil
}

// queryPitches runs a pitch query and attaches investors and feedback.
// Rows are drained before the detail queries run: the pool has one connection.
func queryPitches(ctx context.Context, q querier, query string, args ...interface{}) ([]models.Pitch, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, internal("failed to query pitches", err)
	}

	pitches := []models.Pitch{}
	for rows.Next() {
		p, err := scanPitch(rows)
		if err != nil {
			rows.Close()
			return nil, internal("failed to read pitch", err)
		}
		pitches = append(pitches, p)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, internal("failed to query pitches", err)
	}

	if err := attachDetails(ctx, q, pitches); err != nil {
		return nil, err
	}
	return pitches, nil
}

// attachDetails loads investors and feedback for pitches in two queries and
// fills in the derived fields.
func attachDetails(ctx context.Context, q querier, pitches []models.Pitch) error {
	if len(pitches) == 0 {
		return nil
	}

	index := make(map[string]int, len(pitches))
	args := make([]interface{}, len(pitches))
	for i := range pitches {
		index[pitches[i].ID] = i
		args[i] = pitches[i].ID
		pitches[i].Investors = []models.Investment{}
		pitches[i].Feedback = []models.Feedback{}
	}
	in := "(" + strings.TrimSuffix(strings.Repeat("?,", len(pitches)), ",") + ")"

	rows, err := q.QueryContext(ctx, `
		SELECT i.pitch_id, i.investor_id, COALESCE(u.username, ''), COALESCE(u.full_name, ''), i.amount, i.invested_at
		FROM pitch_investments i
		LEFT JOIN users u ON u.id = i.investor_id
		WHERE i.pitch_id IN `+in+`
		ORDER BY i.invested_at`, args...)
	if err != nil {
		return internal("failed to load investments", err)
	}
	for rows.Next() {
		var pitchID string
		var inv models.Investment
		if err := rows.Scan(&pitchID, &inv.Investor.ID, &inv.Investor.Username, &inv.Investor.FullName, &inv.Amount, &inv.InvestedAt); err != nil {
			rows.Close()
			return internal("failed to read investment", err)
		}
		p := &pitches[index[pitchID]]
		p.Investors = append(p.Investors, inv)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return internal("failed to load investments", err)
	}

	rows, err = q.QueryContext(ctx, `
		SELECT f.pitch_id, f.investor_id, COALESCE(u.username, ''), COALESCE(u.full_name, ''), f.message, f.rating, f.created_at
		FROM pitch_feedback f
		LEFT JOIN users u ON u.id = f.investor_id
		WHERE f.pitch_id IN `+in+`
		ORDER BY f.created_at`, args...)
	if err != nil {
		return internal("failed to load feedback", err)
	}
	for rows.Next() {
		var pitchID string
		var fb models.Feedback
		var rating sql.NullInt64
		if err := rows.Scan(&pitchID, &fb.Investor.ID, &fb.Investor.Username, &fb.Investor.FullName, &fb.Message, &rating, &fb.CreatedAt); err != nil {
			rows.Close()
			return internal("failed to read feedback", err)
		}
		if rating.Valid {
			r := int(rating.Int64)
			fb.Rating = &r
		}
		p := &pitches[index[pitchID]]
		p.Feedback = append(p.Feedback, fb)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return internal("failed to load feedback", err)
	}

	for i := range pitches {
		pitches[i].PrepareForAPI()
	}
	return nil
}
