package models

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// User represents a user account in the system.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // Never expose this to the client
	Role         Role   `json:"role"`

	FullName       string `json:"fullName"`
	ProfilePicture string `json:"profilePicture"`
	Bio            string `json:"bio"`
	PhoneNumber    string `json:"phoneNumber"`
	Occupation     string `json:"occupation"`
	Location       string `json:"location"`
	Website        string `json:"website"`

	// Investor-specific
	LinkedinURL        string          `json:"linkedinUrl"`
	InvestmentCapacity decimal.Decimal `json:"investmentCapacity"`

	// Entrepreneur-specific
	CompanyName string `json:"companyName"`
	Industry    string `json:"industry"`

	ProfileCompleted bool      `json:"profileCompleted"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// UserSummary is the slice of a user embedded in pitch responses.
type UserSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	FullName    string `json:"fullName,omitempty"`
	Email       string `json:"email,omitempty"`
	Bio         string `json:"bio,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
}

// Summary returns the public reference form of the user.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, FullName: u.FullName, Email: u.Email}
}

// ProfileCompletion returns the share of profile fields filled in, 0-100.
// Entrepreneurs also need company and industry, everyone else a LinkedIn URL.
func (u User) ProfileCompletion() int {
	fields := []string{u.FullName, u.Bio, u.PhoneNumber, u.Occupation, u.Location}
	switch u.Role {
	case RoleEntrepreneur:
		fields = append(fields, u.CompanyName, u.Industry)
	case RoleInvestor, RoleAdmin:
		fields = append(fields, u.LinkedinURL)
	}

	filled := 0
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			filled++
		}
	}
	return int(math.Round(float64(filled) / float64(len(fields)) * 100))
}
