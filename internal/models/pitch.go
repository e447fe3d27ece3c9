package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PitchStatus is the lifecycle state of a pitch.
type PitchStatus string

const (
	PitchActive PitchStatus = "Active"
	PitchFunded PitchStatus = "Funded"
	PitchClosed PitchStatus = "Closed"
	// PitchPaused is accepted by the schema but no operation ever moves a
	// pitch into it.
	PitchPaused PitchStatus = "Paused"
)

// Valid reports whether s is a known status.
func (s PitchStatus) Valid() bool {
	switch s {
	case PitchActive, PitchFunded, PitchClosed, PitchPaused:
		return true
	}
	return false
}

// CanTransition reports whether the state machine allows s -> to.
// Funded and Closed are terminal.
func (s PitchStatus) CanTransition(to PitchStatus) bool {
	switch s {
	case PitchActive:
		return to == PitchFunded || to == PitchClosed
	case PitchFunded, PitchClosed, PitchPaused:
		return false
	}
	return false
}

// Categories lists the accepted pitch categories.
var Categories = []string{
	"Technology", "Healthcare", "Education", "Finance",
	"E-commerce", "Food & Beverage", "Entertainment", "Other",
}

// Stages lists the accepted company stages.
var Stages = []string{"Idea", "Prototype", "MVP", "Early Revenue", "Growth"}

const (
	DefaultCategory = "Other"
	DefaultStage    = "Idea"
)

// Investment is one investor's cumulative position in a pitch.
type Investment struct {
	Investor   UserSummary     `json:"investor"`
	Amount     decimal.Decimal `json:"amount"`
	InvestedAt time.Time       `json:"investedAt"` // time of the first investment
}

// Feedback is an investor's single review of a pitch.
type Feedback struct {
	Investor  UserSummary `json:"investor"`
	Message   string      `json:"message"`
	Rating    *int        `json:"rating"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Pitch is a funding campaign owned by one entrepreneur.
type Pitch struct {
	ID            string          `json:"id"`
	Entrepreneur  UserSummary     `json:"entrepreneur"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	RaisedAmount  decimal.Decimal `json:"raisedAmount"`
	Investors     []Investment    `json:"investors"`
	Feedback      []Feedback      `json:"feedback"`
	Category      string          `json:"category"`
	Stage         string          `json:"stage"`
	EquityOffered *float64        `json:"equityOffered,omitempty"`
	Status        PitchStatus     `json:"status"`
	ImageURL      string          `json:"imageUrl"`
	Views         int             `json:"views"`
	Deadline      *time.Time      `json:"deadline,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	// Derived, never stored
	FundingPercentage float64 `json:"fundingPercentage"`
	TotalInvestors    int     `json:"totalInvestors"`
	AverageRating     float64 `json:"averageRating"`
}

// IsOwnedBy reports whether userID is the pitch's entrepreneur.
func (p *Pitch) IsOwnedBy(userID string) bool {
	return userID != "" && p.Entrepreneur.ID == userID
}

// ApplyInvestment records amount from investorID. A repeat investor's entry is
// incremented and keeps its original investedAt. It returns true when this
// investment moved the pitch from Active to Funded.
func (p *Pitch) ApplyInvestment(investor UserSummary, amount decimal.Decimal, at time.Time) bool {
	found := false
	for i := range p.Investors {
		if p.Investors[i].Investor.ID == investor.ID {
			p.Investors[i].Amount = p.Investors[i].Amount.Add(amount)
			found = true
			break
		}
	}
	if !found {
		p.Investors = append(p.Investors, Investment{Investor: investor, Amount: amount, InvestedAt: at})
	}

	p.RaisedAmount = p.RaisedAmount.Add(amount)
	p.UpdatedAt = at

	if p.RaisedAmount.GreaterThanOrEqual(p.TargetAmount) && p.Status.CanTransition(PitchFunded) {
		p.Status = PitchFunded
		return true
	}
	return false
}

// InvestmentBy returns the investor's entry, if any.
func (p *Pitch) InvestmentBy(investorID string) (Investment, bool) {
	for _, inv := range p.Investors {
		if inv.Investor.ID == investorID {
			return inv, true
		}
	}
	return Investment{}, false
}

// HasFeedbackFrom reports whether investorID already reviewed the pitch.
func (p *Pitch) HasFeedbackFrom(investorID string) bool {
	for _, fb := range p.Feedback {
		if fb.Investor.ID == investorID {
			return true
		}
	}
	return false
}

// PrepareForAPI fills in the derived fields before the pitch is serialized.
func (p *Pitch) PrepareForAPI() {
	if p.Investors == nil {
		p.Investors = []Investment{}
	}
	if p.Feedback == nil {
		p.Feedback = []Feedback{}
	}

	p.FundingPercentage = FundingPercentage(p.RaisedAmount, p.TargetAmount)
	p.TotalInvestors = len(p.Investors)

	p.AverageRating = 0
	if len(p.Feedback) > 0 {
		total := 0
		for _, fb := range p.Feedback {
			if fb.Rating != nil {
				total += *fb.Rating
			}
		}
		p.AverageRating = float64(total) / float64(len(p.Feedback))
	}
}

// FundingPercentage is raised/target as a percentage, rounded to 2 places.
func FundingPercentage(raised, target decimal.Decimal) float64 {
	if !target.IsPositive() {
		return 0
	}
	return raised.Div(target).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}
