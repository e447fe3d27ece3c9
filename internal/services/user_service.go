package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/pitchzone-be/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, in RegisterInput) (models.User, error)
	CreateUser(ctx context.Context, in RegisterInput) (models.User, error)
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	FindAdmin(ctx context.Context) (models.User, bool, error)
	UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (models.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]models.User, Pagination, error)
	AdminUpdateUser(ctx context.Context, id string, patch AdminUserPatch) (models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// RegisterInput carries the fields accepted at sign-up.
type RegisterInput struct {
	Username    string `json:"username" validate:"required,min=3,max=30,username"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	Role        string `json:"role"`
	FullName    string `json:"fullName" validate:"max=100"`
	LinkedinURL string `json:"linkedinUrl" validate:"omitempty,url"`
}

// ProfilePatch is the allow-listed partial profile update. Nil fields are
// left untouched.
type ProfilePatch struct {
	FullName    *string `json:"fullName" validate:"omitempty,max=100"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
	LinkedinURL *string `json:"linkedinUrl" validate:"omitempty,url"`
	CompanyName *string `json:"companyName" validate:"omitempty,max=100"`
	Industry    *string `json:"industry" validate:"omitempty,max=100"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,max=20"`
	Occupation  *string `json:"occupation" validate:"omitempty,max=100"`
	Location    *string `json:"location" validate:"omitempty,max=100"`
	Website     *string `json:"website" validate:"omitempty,url"`
}

// AdminUserPatch is what an admin may change on another account. Role is
// deliberately absent.
type AdminUserPatch struct {
	FullName    *string `json:"fullName" validate:"omitempty,max=100"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
	LinkedinURL *string `json:"linkedinUrl" validate:"omitempty,url"`
	CompanyName *string `json:"companyName" validate:"omitempty,max=100"`
	Industry    *string `json:"industry" validate:"omitempty,max=100"`
}

// UserFilter selects users for the admin and directory listings.
type UserFilter struct {
	Role   models.Role // zero means any role
	Search string
	Page   int
	Limit  int
}

const userColumns = `id, username, email, password_hash, role, full_name, profile_picture, bio,
	linkedin_url, investment_capacity, company_name, industry, phone_number, occupation,
	location, website, profile_completed, created_at, updated_at`

// UserService provides business logic for user management.
type UserService struct {
	db       *sql.DB
	events   EventServiceProvider
	hashCost int
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, events EventServiceProvider) *UserService {
	return &UserService{db: db, events: events, hashCost: 12}
}

// WithHashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.hashCost = cost
	return s
}

func scanUser(scanner interface{ Scan(...interface{}) error }) (models.User, error) {
	var u models.User
	err := scanner.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.FullName, &u.ProfilePicture, &u.Bio,
		&u.LinkedinURL, &u.InvestmentCapacity, &u.CompanyName, &u.Industry, &u.PhoneNumber, &u.Occupation,
		&u.Location, &u.Website, &u.ProfileCompleted, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

// Register signs up an entrepreneur or investor.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	return s.createUser(ctx, in, false)
}

// CreateUser creates an account of any role on behalf of an admin.
func (s *UserService) CreateUser(ctx context.Context, in RegisterInput) (models.User, error) {
	user, err := s.createUser(ctx, in, true)
	if err == nil {
		s.logEvent(ctx, models.Event{
			Type:    "user.create",
			Message: fmt.Sprintf("Admin created %s account '%s'.", user.Role, user.Username),
			UserID:  strPtr(user.ID),
		})
	}
	return user, err
}

func (s *UserService) createUser(ctx context.Context, in RegisterInput, allowAdmin bool) (models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	in.LinkedinURL = strings.TrimSpace(in.LinkedinURL)

	fields := validateStruct(in)
	role, roleErr := models.ParseRole(in.Role)
	if roleErr != nil || (!allowAdmin && !role.SelfRegistrable()) {
		msg := "Role must be either entrepreneur or investor"
		if allowAdmin {
			msg = "Role must be entrepreneur, investor, or admin"
		}
		fields = append(fields, FieldError{Field: "role", Message: msg})
	}
	if len(fields) > 0 {
		return models.User{}, validationError(fields...)
	}

	if err := s.checkAvailable(ctx, in.Email, in.Username, ""); err != nil {
		return models.User{}, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return models.User{}, internal("failed to hash password", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:                 uuid.New().String(),
		Username:           in.Username,
		Email:              in.Email,
		PasswordHash:       string(hashedPassword),
		Role:               role,
		FullName:           in.FullName,
		InvestmentCapacity: decimal.Zero,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if user.FullName == "" {
		user.FullName = user.Username
	}
	if role == models.RoleInvestor {
		user.LinkedinURL = in.LinkedinURL
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Role, user.FullName, user.ProfilePicture, user.Bio,
		user.LinkedinURL, user.InvestmentCapacity, user.CompanyName, user.Industry, user.PhoneNumber, user.Occupation,
		user.Location, user.Website, user.ProfileCompleted, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, conflict("User with this email or username already exists")
		}
		return models.User{}, internal("failed to create user", err)
	}

	user.PasswordHash = ""
	return user, nil
}

// checkAvailable reports a conflict when email or username belongs to an
// account other than exceptID.
func (s *UserService) checkAvailable(ctx context.Context, email, username, exceptID string) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT email, username FROM users WHERE (email = ? OR username = ?) AND id != ?", email, username, exceptID)
	if err != nil {
		return internal("failed to check existing users", err)
	}
	defer rows.Close()

	var taken error
	for rows.Next() {
		var e, u string
		if err := rows.Scan(&e, &u); err != nil {
			return internal("failed to check existing users", err)
		}
		if e == email {
			return conflict("User with this email already exists")
		}
		if u == username {
			taken = conflict("Username is already taken")
		}
	}
	if err := rows.Err(); err != nil {
		return internal("failed to check existing users", err)
	}
	return taken
}

// Authenticate verifies a user's credentials. Unknown email and wrong password
// produce the same error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", normalizeEmail(email))
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, internal("failed to look up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, notFound("User")
		}
		return models.User{}, internal("failed to load user", err)
	}
	user.PasswordHash = ""
	return user, nil
}

// FindAdmin returns the oldest admin account, if one exists.
func (s *UserService) FindAdmin(ctx context.Context) (models.User, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE role = ? ORDER BY created_at LIMIT 1", models.RoleAdmin)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, false, nil
		}
		return models.User{}, false, internal("failed to look up admin", err)
	}
	user.PasswordHash = ""
	return user, true, nil
}

// UpdateProfile merges the allow-listed fields of patch into the user.
func (s *UserService) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (models.User, error) {
	trimAll(patch.FullName, patch.Bio, patch.LinkedinURL, patch.CompanyName, patch.Industry,
		patch.PhoneNumber, patch.Occupation, patch.Location, patch.Website)
	if fields := validateStruct(patch); len(fields) > 0 {
		return models.User{}, validationError(fields...)
	}

	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	apply(&user.FullName, patch.FullName)
	apply(&user.Bio, patch.Bio)
	apply(&user.LinkedinURL, patch.LinkedinURL)
	apply(&user.CompanyName, patch.CompanyName)
	apply(&user.Industry, patch.Industry)
	apply(&user.PhoneNumber, patch.PhoneNumber)
	apply(&user.Occupation, patch.Occupation)
	apply(&user.Location, patch.Location)
	apply(&user.Website, patch.Website)

	return s.saveProfile(ctx, user)
}

// AdminUpdateUser applies an admin's edit to any account.
func (s *UserService) AdminUpdateUser(ctx context.Context, id string, patch AdminUserPatch) (models.User, error) {
	if patch.Email != nil {
		*patch.Email = normalizeEmail(*patch.Email)
	}
	trimAll(patch.FullName, patch.Bio, patch.LinkedinURL, patch.CompanyName, patch.Industry)
	if fields := validateStruct(patch); len(fields) > 0 {
		return models.User{}, validationError(fields...)
	}

	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	if patch.Email != nil && *patch.Email != user.Email {
		if err := s.checkAvailable(ctx, *patch.Email, "", user.ID); err != nil {
			return models.User{}, err
		}
		user.Email = *patch.Email
	}
	apply(&user.FullName, patch.FullName)
	apply(&user.Bio, patch.Bio)
	apply(&user.LinkedinURL, patch.LinkedinURL)
	apply(&user.CompanyName, patch.CompanyName)
	apply(&user.Industry, patch.Industry)

	return s.saveProfile(ctx, user)
}

func (s *UserService) saveProfile(ctx context.Context, user models.User) (models.User, error) {
	user.ProfileCompleted = user.ProfileCompletion() == 100
	user.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = ?, full_name = ?, bio = ?, linkedin_url = ?, company_name = ?, industry = ?,
			phone_number = ?, occupation = ?, location = ?, website = ?, profile_completed = ?, updated_at = ?
		WHERE id = ?`,
		user.Email, user.FullName, user.Bio, user.LinkedinURL, user.CompanyName, user.Industry,
		user.PhoneNumber, user.Occupation, user.Location, user.Website, user.ProfileCompleted, user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, conflict("User with this email already exists")
		}
		return models.User{}, internal("failed to update user", err)
	}
	return user, nil
}

// ListUsers returns one page of users matching filter, newest first.
func (s *UserService) ListUsers(ctx context.Context, filter UserFilter) ([]models.User, Pagination, error) {
	var where []string
	var args []interface{}
	if filter.Role != 0 {
		where = append(where, "role = ?")
		args = append(args, filter.Role)
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		like := "%" + escapeLike(strings.ToLower(q)) + "%"
		where = append(where, `(LOWER(username) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\' OR LOWER(full_name) LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+clause, args...).Scan(&total); err != nil {
		return nil, Pagination{}, internal("failed to count users", err)
	}
	page := NewPagination(filter.Page, filter.Limit, total)

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users"+clause+" ORDER BY created_at DESC LIMIT ? OFFSET ?",
		append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, Pagination{}, internal("failed to list users", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, Pagination{}, internal("failed to read user", err)
		}
		user.PasswordHash = ""
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, Pagination{}, internal("failed to list users", err)
	}
	return users, page, nil
}

// DeleteUser permanently removes a non-admin account. An entrepreneur's
// pitches go with it; investments made by an investor stay on the pitches.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == models.RoleAdmin {
		return forbidden("Cannot delete admin users")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if user.Role == models.RoleEntrepreneur {
		if _, err := tx.ExecContext(ctx, "DELETE FROM pitches WHERE entrepreneur_id = ?", id); err != nil {
			return internal("failed to delete user's pitches", err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
		return internal("failed to delete user", err)
	}
	if err := insertEvent(ctx, tx, models.Event{
		Type:    "user.delete",
		Level:   "warn",
		Message: fmt.Sprintf("User '%s' (%s) was deleted.", user.Username, user.Role),
		UserID:  strPtr(user.ID),
	}); err != nil {
		return internal("failed to record event", err)
	}
	if err := tx.Commit(); err != nil {
		return internal("failed to commit user deletion", err)
	}
	return nil
}

func (s *UserService) logEvent(ctx context.Context, event models.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.CreateEvent(ctx, event); err != nil {
		logEventFailure(err, event)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimAll(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

func apply(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
