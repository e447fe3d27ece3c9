package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/pitchzone-be/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PitchServiceProvider defines the interface for pitch services.
type PitchServiceProvider interface {
	CreatePitch(ctx context.Context, owner models.User, in CreatePitchInput) (models.Pitch, error)
	ListPitches(ctx context.Context, filter PitchFilter) ([]models.Pitch, Pagination, error)
	GetPitch(ctx context.Context, id, viewerID string) (models.Pitch, error)
	GetPitchDetails(ctx context.Context, id string) (models.Pitch, error)
	UpdatePitch(ctx context.Context, ownerID, id string, patch PitchPatch) (models.Pitch, error)
	ClosePitch(ctx context.Context, ownerID, id string) (models.Pitch, error)
	MyPitches(ctx context.Context, ownerID string) ([]models.Pitch, error)
	AdminUpdatePitch(ctx context.Context, id string, patch PitchPatch) (models.Pitch, error)
	DeletePitch(ctx context.Context, id string) error
}

// CreatePitchInput carries the fields of a new pitch.
type CreatePitchInput struct {
	Title         string           `json:"title" validate:"required,min=5,max=100"`
	Description   string           `json:"description" validate:"required,min=20,max=2000"`
	TargetAmount  *decimal.Decimal `json:"targetAmount" validate:"-"`
	Category      string           `json:"category"`
	Stage         string           `json:"stage"`
	EquityOffered *float64         `json:"equityOffered" validate:"omitempty,gte=0.1,lte=100"`
	ImageURL      string           `json:"imageUrl" validate:"omitempty,url"`
	Deadline      *time.Time       `json:"deadline"`
}

// PitchPatch is the allow-listed pitch edit. Amounts and status are never
// editable through it.
type PitchPatch struct {
	Title         *string  `json:"title" validate:"omitempty,min=5,max=100"`
	Description   *string  `json:"description" validate:"omitempty,min=20,max=2000"`
	Category      *string  `json:"category"`
	Stage         *string  `json:"stage"`
	EquityOffered *float64 `json:"equityOffered" validate:"omitempty,gte=0.1,lte=100"`
}

// PitchFilter selects and orders pitches for listings.
type PitchFilter struct {
	Status   string // "" means Active, "all" disables the filter
	Category string // "" or "all" disables the filter
	Search   string
	SortBy   string
	Order    string
	Page     int
	Limit    int
}

// AllStatuses disables the status filter of a listing.
const AllStatuses = "all"

var pitchSortColumns = map[string]string{
	"createdAt":    "p.created_at",
	"targetAmount": "CAST(p.target_amount AS REAL)",
	"raisedAmount": "CAST(p.raised_amount AS REAL)",
	"views":        "p.views",
}

// PitchNotifier is told about every committed change to a pitch's funding.
type PitchNotifier interface {
	PitchUpdated(pitch models.Pitch)
}

// PitchService provides business logic for pitches.
type PitchService struct {
	db     *sql.DB
	events EventServiceProvider
}

// NewPitchService creates a new PitchService.
func NewPitchService(db *sql.DB, events EventServiceProvider) *PitchService {
	return &PitchService{db: db, events: events}
}

// CreatePitch opens a new Active pitch. An entrepreneur may hold only one
// Active pitch at a time.
func (s *PitchService) CreatePitch(ctx context.Context, owner models.User, in CreatePitchInput) (models.Pitch, error) {
	if owner.Role != models.RoleEntrepreneur {
		return models.Pitch{}, forbidden("Only entrepreneurs can create pitches")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Pitch{}, internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var active int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pitches WHERE entrepreneur_id = ? AND status = ?", owner.ID, models.PitchActive).Scan(&active)
	if err != nil {
		return models.Pitch{}, internal("failed to check active pitches", err)
	}
	if active > 0 {
		return models.Pitch{}, conflict("You already have an active pitch. Please close it before creating a new one.")
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.Category == "" {
		in.Category = models.DefaultCategory
	}
	if in.Stage == "" {
		in.Stage = models.DefaultStage
	}
	if fields := validatePitchInput(in); len(fields) > 0 {
		return models.Pitch{}, validationError(fields...)
	}

	now := time.Now().UTC()
	pitch := models.Pitch{
		ID:            uuid.New().String(),
		Entrepreneur:  owner.Summary(),
		Title:         in.Title,
		Description:   in.Description,
		TargetAmount:  *in.TargetAmount,
		RaisedAmount:  decimal.Zero,
		Category:      in.Category,
		Stage:         in.Stage,
		EquityOffered: in.EquityOffered,
		Status:        models.PitchActive,
		ImageURL:      in.ImageURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.Deadline != nil {
		d := in.Deadline.UTC()
		pitch.Deadline = &d
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pitches (id, entrepreneur_id, title, description, target_amount, raised_amount, category, stage,
			equity_offered, status, image_url, views, deadline, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		pitch.ID, owner.ID, pitch.Title, pitch.Description, pitch.TargetAmount, pitch.RaisedAmount, pitch.Category, pitch.Stage,
		pitch.EquityOffered, pitch.Status, pitch.ImageURL, pitch.Deadline, pitch.CreatedAt, pitch.UpdatedAt,
	)
	if err != nil {
		return models.Pitch{}, internal("failed to create pitch", err)
	}
	if err := insertEvent(ctx, tx, models.Event{
		Type:    "pitch.create",
		Message: fmt.Sprintf("%s opened pitch '%s' seeking %s.", owner.Username, pitch.Title, pitch.TargetAmount.StringFixed(2)),
		PitchID: strPtr(pitch.ID),
		UserID:  strPtr(owner.ID),
	}); err != nil {
		return models.Pitch{}, internal("failed to record event", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Pitch{}, internal("failed to commit pitch", err)
	}

	pitch.PrepareForAPI()
	return pitch, nil
}

func validatePitchInput(in CreatePitchInput) []FieldError {
	fields := validateStruct(in)
	if in.TargetAmount == nil {
		fields = append(fields, FieldError{Field: "targetAmount", Message: "targetAmount is required"})
	} else {
		fields = append(fields, validateTarget(*in.TargetAmount)...)
	}
	return append(fields, validateEnums(&in.Category, &in.Stage)...)
}

func validateTarget(target decimal.Decimal) []FieldError {
	if target.LessThan(models.MinTargetAmount) || target.GreaterThan(models.MaxTargetAmount) {
		return []FieldError{{
			Field:   "targetAmount",
			Message: fmt.Sprintf("Target amount must be between %s and %s", models.MinTargetAmount, models.MaxTargetAmount),
		}}
	}
	return nil
}

func validateEnums(category, stage *string) []FieldError {
	var fields []FieldError
	if category != nil && !oneOf(*category, models.Categories) {
		fields = append(fields, FieldError{Field: "category", Message: "Invalid category"})
	}
	if stage != nil && !oneOf(*stage, models.Stages) {
		fields = append(fields, FieldError{Field: "stage", Message: "Invalid stage"})
	}
	return fields
}

// ListPitches returns one page of pitches matching filter.
func (s *PitchService) ListPitches(ctx context.Context, filter PitchFilter) ([]models.Pitch, Pagination, error) {
	var where []string
	var args []interface{}

	switch status := strings.TrimSpace(filter.Status); status {
	case AllStatuses:
	case "":
		where = append(where, "p.status = ?")
		args = append(args, models.PitchActive)
	default:
		if !models.PitchStatus(status).Valid() {
			return nil, Pagination{}, validationError(FieldError{Field: "status", Message: "Invalid status"})
		}
		where = append(where, "p.status = ?")
		args = append(args, status)
	}
	if c := strings.TrimSpace(filter.Category); c != "" && c != "all" {
		where = append(where, "p.category = ?")
		args = append(args, c)
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		like := "%" + escapeLike(strings.ToLower(q)) + "%"
		where = append(where, `(LOWER(p.title) LIKE ? ESCAPE '\' OR LOWER(p.description) LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	sortBy, ok := pitchSortColumns[filter.SortBy]
	if !ok {
		sortBy = pitchSortColumns["createdAt"]
	}
	order := "DESC"
	if strings.EqualFold(filter.Order, "asc") {
		order = "ASC"
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pitches p"+clause, args...).Scan(&total); err != nil {
		return nil, Pagination{}, internal("failed to count pitches", err)
	}
	page := NewPagination(filter.Page, filter.Limit, total)

	query := pitchSelect + clause + " ORDER BY " + sortBy + " " + order + ", p.id LIMIT ? OFFSET ?"
	pitches, err := queryPitches(ctx, s.db, query, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, Pagination{}, err
	}
	return pitches, page, nil
}

// GetPitch returns a pitch and counts the view unless the viewer owns it.
// Anonymous viewers pass an empty viewerID.
func (s *PitchService) GetPitch(ctx context.Context, id, viewerID string) (models.Pitch, error) {
	pitch, err := loadPitch(ctx, s.db, id)
	if err != nil {
		return models.Pitch{}, err
	}
	if pitch.IsOwnedBy(viewerID) {
		return pitch, nil
	}

	if _, err := s.db.ExecContext(ctx, "UPDATE pitches SET views = views + 1 WHERE id = ?", pitch.ID); err != nil {
		log.Error().Err(err).Str("pitch_id", pitch.ID).Msg("Failed to count pitch view")
		return pitch, nil
	}
	pitch.Views++
	return pitch, nil
}

// GetPitchDetails returns a pitch without counting a view.
func (s *PitchService) GetPitchDetails(ctx context.Context, id string) (models.Pitch, error) {
	return loadPitch(ctx, s.db, id)
}

// UpdatePitch applies the owner's edit.
func (s *PitchService) UpdatePitch(ctx context.Context, ownerID, id string, patch PitchPatch) (models.Pitch, error) {
	if err := checkPatch(&patch); err != nil {
		return models.Pitch{}, err
	}
	pitch, err := loadPitch(ctx, s.db, id)
	if err != nil {
		return models.Pitch{}, err
	}
	if !pitch.IsOwnedBy(ownerID) {
		return models.Pitch{}, forbidden("You can only update your own pitches")
	}
	return s.savePatch(ctx, pitch, patch)
}

// AdminUpdatePitch applies an admin's edit to any pitch.
func (s *PitchService) AdminUpdatePitch(ctx context.Context, id string, patch PitchPatch) (models.Pitch, error) {
	if err := checkPatch(&patch); err != nil {
		return models.Pitch{}, err
	}
	pitch, err := loadPitch(ctx, s.db, id)
	if err != nil {
		return models.Pitch{}, err
	}
	return s.savePatch(ctx, pitch, patch)
}

func checkPatch(patch *PitchPatch) error {
	trimAll(patch.Title, patch.Description)
	fields := validateStruct(*patch)
	fields = append(fields, validateEnums(patch.Category, patch.Stage)...)
	if len(fields) > 0 {
		return validationError(fields...)
	}
	return nil
}

func (s *PitchService) savePatch(ctx context.Context, pitch models.Pitch, patch PitchPatch) (models.Pitch, error) {
	apply(&pitch.Title, patch.Title)
	apply(&pitch.Description, patch.Description)
	apply(&pitch.Category, patch.Category)
	apply(&pitch.Stage, patch.Stage)
	if patch.EquityOffered != nil {
		pitch.EquityOffered = patch.EquityOffered
	}
	pitch.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		UPDATE pitches SET title = ?, description = ?, category = ?, stage = ?, equity_offered = ?, updated_at = ?
		WHERE id = ?`,
		pitch.Title, pitch.Description, pitch.Category, pitch.Stage, pitch.EquityOffered, pitch.UpdatedAt, pitch.ID,
	)
	if err != nil {
		return models.Pitch{}, internal("failed to update pitch", err)
	}
	pitch.PrepareForAPI()
	return pitch, nil
}

// ClosePitch moves the owner's Active pitch to Closed. Closing an already
// closed pitch is a no-op; a funded pitch cannot be closed.
func (s *PitchService) ClosePitch(ctx context.Context, ownerID, id string) (models.Pitch, error) {
	pitch, err := loadPitch(ctx, s.db, id)
	if err != nil {
		return models.Pitch{}, err
	}
	if !pitch.IsOwnedBy(ownerID) {
		return models.Pitch{}, forbidden("You can only delete your own pitches")
	}
	if pitch.Status == models.PitchClosed {
		return pitch, nil
	}
	if !pitch.Status.CanTransition(models.PitchClosed) {
		return models.Pitch{}, stateError(fmt.Sprintf("A %s pitch cannot be closed", strings.ToLower(string(pitch.Status))))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Pitch{}, internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		"UPDATE pitches SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		models.PitchClosed, now, pitch.ID, models.PitchActive)
	if err != nil {
		return models.Pitch{}, internal("failed to close pitch", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Funded by a concurrent investment after we loaded it.
		return models.Pitch{}, stateError("A funded pitch cannot be closed")
	}
	if err := insertEvent(ctx, tx, models.Event{
		Type:    "pitch.close",
		Message: fmt.Sprintf("Pitch '%s' was closed by its owner.", pitch.Title),
		PitchID: strPtr(pitch.ID),
		UserID:  strPtr(ownerID),
	}); err != nil {
		return models.Pitch{}, internal("failed to record event", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Pitch{}, internal("failed to commit pitch close", err)
	}

	pitch.Status = models.PitchClosed
	pitch.UpdatedAt = now
	return pitch, nil
}

// MyPitches returns every pitch the entrepreneur owns, newest first.
func (s *PitchService) MyPitches(ctx context.Context, ownerID string) ([]models.Pitch, error) {
	return queryPitches(ctx, s.db, pitchSelect+" WHERE p.entrepreneur_id = ? ORDER BY p.created_at DESC", ownerID)
}

// DeletePitch permanently removes a pitch with its investments and feedback.
func (s *PitchService) DeletePitch(ctx context.Context, id string) error {
	pitch, err := loadPitch(ctx, s.db, id)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM pitches WHERE id = ?", pitch.ID); err != nil {
		return internal("failed to delete pitch", err)
	}
	if err := insertEvent(ctx, tx, models.Event{
		Type:    "pitch.delete",
		Level:   "warn",
		Message: fmt.Sprintf("Pitch '%s' by %s was deleted.", pitch.Title, pitch.Entrepreneur.Username),
		PitchID: strPtr(pitch.ID),
	}); err != nil {
		return internal("failed to record event", err)
	}
	if err := tx.Commit(); err != nil {
		return internal("failed to commit pitch deletion", err)
	}
	return nil
}
