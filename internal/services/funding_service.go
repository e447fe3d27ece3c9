package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/isdelr/pitchzone-be/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// FundingServiceProvider defines the interface for the funding workflow.
type FundingServiceProvider interface {
	Invest(ctx context.Context, investor models.User, pitchID string, amount decimal.Decimal) (InvestResult, error)
	AddFeedback(ctx context.Context, investor models.User, pitchID string, in FeedbackInput) (models.Feedback, error)
	MyInvestments(ctx context.Context, investorID string) ([]InvestmentRecord, InvestmentSummary, error)
}

// InvestResult is returned by a successful investment.
type InvestResult struct {
	Pitch      models.Pitch `json:"pitch"`
	Investment Confirmation `json:"investment"`
}

// Confirmation echoes the amount just invested and who invested it.
type Confirmation struct {
	Amount   decimal.Decimal `json:"amount"`
	Investor string          `json:"investor"`
}

// FeedbackInput is an investor's review of a pitch.
type FeedbackInput struct {
	Message string `json:"message" validate:"required,min=5,max=500"`
	Rating  *int   `json:"rating" validate:"omitempty,min=1,max=5"`
}

// InvestmentRecord is one pitch the investor has funded.
type InvestmentRecord struct {
	Pitch struct {
		ID                string             `json:"id"`
		Title             string             `json:"title"`
		Description       string             `json:"description"`
		TargetAmount      decimal.Decimal    `json:"targetAmount"`
		RaisedAmount      decimal.Decimal    `json:"raisedAmount"`
		Status            models.PitchStatus `json:"status"`
		Category          string             `json:"category"`
		FundingPercentage float64            `json:"fundingPercentage"`
		Entrepreneur      models.UserSummary `json:"entrepreneur"`
	} `json:"pitch"`
	Investment struct {
		Amount     decimal.Decimal `json:"amount"`
		InvestedAt time.Time       `json:"investedAt"`
	} `json:"investment"`
}

// InvestmentSummary totals an investor's portfolio.
type InvestmentSummary struct {
	TotalInvestments int             `json:"totalInvestments"`
	TotalAmount      decimal.Decimal `json:"totalAmountInvested"`
	ActiveCount      int             `json:"activeInvestments"`
	FundedCount      int             `json:"fundedInvestments"`
}

// FundingService applies investments and feedback to pitches.
type FundingService struct {
	db       *sql.DB
	notifier PitchNotifier
	now      func() time.Time
}

// NewFundingService creates a new FundingService. notifier may be nil.
func NewFundingService(db *sql.DB, notifier PitchNotifier) *FundingService {
	return &FundingService{db: db, notifier: notifier, now: func() time.Time { return time.Now().UTC() }}
}

// Invest records amount from investor against the pitch. The read of the pitch
// and the writes of the investor row and raised total share one transaction.
func (s *FundingService) Invest(ctx context.Context, investor models.User, pitchID string, amount decimal.Decimal) (InvestResult, error) {
	if investor.Role != models.RoleInvestor {
		return InvestResult{}, forbidden("Only investors can invest in pitches")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return InvestResult{}, internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	pitch, err := loadPitch(ctx, tx, pitchID)
	if err != nil {
		return InvestResult{}, err
	}
	if pitch.Status != models.PitchActive {
		return InvestResult{}, stateError("This pitch is no longer accepting investments")
	}
	if pitch.IsOwnedBy(investor.ID) {
		return InvestResult{}, forbidden("You cannot invest in your own pitch")
	}
	if amount.LessThan(models.MinInvestmentAmount) {
		return InvestResult{}, validationError(FieldError{
			Field:   "amount",
			Message: fmt.Sprintf("Minimum investment amount is %s", models.MinInvestmentAmount),
		})
	}

	now := s.now()
	funded := pitch.ApplyInvestment(investor.Summary(), amount, now)
	position, _ := pitch.InvestmentBy(investor.ID)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pitch_investments (pitch_id, investor_id, amount, invested_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (pitch_id, investor_id) DO UPDATE SET amount = excluded.amount`,
		pitch.ID, investor.ID, position.Amount, position.InvestedAt)
	if err != nil {
		return InvestResult{}, internal("failed to record investment", err)
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE pitches SET raised_amount = ?, status = ?, updated_at = ? WHERE id = ?",
		pitch.RaisedAmount, pitch.Status, pitch.UpdatedAt, pitch.ID)
	if err != nil {
		return InvestResult{}, internal("failed to update pitch", err)
	}

	if err := insertEvent(ctx, tx, models.Event{
		Type:      "pitch.invest",
		Message:   fmt.Sprintf("%s invested %s in '%s'.", investor.Username, amount.StringFixed(2), pitch.Title),
		PitchID:   strPtr(pitch.ID),
		UserID:    strPtr(investor.ID),
		CreatedAt: now,
	}); err != nil {
		return InvestResult{}, internal("failed to record event", err)
	}
	if funded {
		if err := insertEvent(ctx, tx, models.Event{
			Type:      "pitch.funded",
			Message:   fmt.Sprintf("'%s' reached its target of %s.", pitch.Title, pitch.TargetAmount.StringFixed(2)),
			PitchID:   strPtr(pitch.ID),
			CreatedAt: now,
		}); err != nil {
			return InvestResult{}, internal("failed to record event", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return InvestResult{}, internal("failed to commit investment", err)
	}

	if funded {
		log.Info().Str("pitch_id", pitch.ID).Str("raised", pitch.RaisedAmount.String()).Msg("Pitch fully funded")
	}

	pitch.PrepareForAPI()
	if s.notifier != nil {
		s.notifier.PitchUpdated(pitch)
	}

	return InvestResult{
		Pitch:      pitch,
		Investment: Confirmation{Amount: amount, Investor: investor.Username},
	}, nil
}

// AddFeedback stores the investor's single review of a pitch.
func (s *FundingService) AddFeedback(ctx context.Context, investor models.User, pitchID string, in FeedbackInput) (models.Feedback, error) {
	if investor.Role != models.RoleInvestor {
		return models.Feedback{}, forbidden("Only investors can leave feedback")
	}

	in.Message = strings.TrimSpace(in.Message)
	if fields := validateStruct(in); len(fields) > 0 {
		return models.Feedback{}, validationError(fields...)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Feedback{}, internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	pitch, err := loadPitch(ctx, tx, pitchID)
	if err != nil {
		return models.Feedback{}, err
	}
	if pitch.HasFeedbackFrom(investor.ID) {
		return models.Feedback{}, conflict("You have already left feedback for this pitch")
	}

	fb := models.Feedback{
		Investor:  investor.Summary(),
		Message:   in.Message,
		Rating:    in.Rating,
		CreatedAt: s.now(),
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO pitch_feedback (pitch_id, investor_id, message, rating, created_at) VALUES (?, ?, ?, ?, ?)",
		pitch.ID, investor.ID, fb.Message, fb.Rating, fb.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Feedback{}, conflict("You have already left feedback for this pitch")
		}
		return models.Feedback{}, internal("failed to save feedback", err)
	}
	if err := insertEvent(ctx, tx, models.Event{
		Type:      "pitch.feedback",
		Message:   fmt.Sprintf("%s left feedback on '%s'.", investor.Username, pitch.Title),
		PitchID:   strPtr(pitch.ID),
		UserID:    strPtr(investor.ID),
		CreatedAt: fb.CreatedAt,
	}); err != nil {
		return models.Feedback{}, internal("failed to record event", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Feedback{}, internal("failed to commit feedback", err)
	}
	return fb, nil
}

// MyInvestments lists every pitch the investor has funded, most recent first.
func (s *FundingService) MyInvestments(ctx context.Context, investorID string) ([]InvestmentRecord, InvestmentSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.title, p.description, p.target_amount, p.raised_amount, p.status, p.category,
		       u.id, u.username, u.full_name, u.email, i.amount, i.invested_at
		FROM pitch_investments i
		JOIN pitches p ON p.id = i.pitch_id
		JOIN users u ON u.id = p.entrepreneur_id
		WHERE i.investor_id = ?
		ORDER BY i.invested_at DESC`, investorID)
	if err != nil {
		return nil, InvestmentSummary{}, internal("failed to list investments", err)
	}
	defer rows.Close()

	records := []InvestmentRecord{}
	summary := InvestmentSummary{TotalAmount: decimal.Zero}
	for rows.Next() {
		var r InvestmentRecord
		p := &r.Pitch
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.TargetAmount, &p.RaisedAmount, &p.Status, &p.Category,
			&p.Entrepreneur.ID, &p.Entrepreneur.Username, &p.Entrepreneur.FullName, &p.Entrepreneur.Email,
			&r.Investment.Amount, &r.Investment.InvestedAt); err != nil {
			return nil, InvestmentSummary{}, internal("failed to read investment", err)
		}
		p.FundingPercentage = models.FundingPercentage(p.RaisedAmount, p.TargetAmount)

		summary.TotalInvestments++
		summary.TotalAmount = summary.TotalAmount.Add(r.Investment.Amount)
		switch p.Status {
		case models.PitchActive:
			summary.ActiveCount++
		case models.PitchFunded:
			summary.FundedCount++
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, InvestmentSummary{}, internal("failed to list investments", err)
	}
	return records, summary, nil
}
