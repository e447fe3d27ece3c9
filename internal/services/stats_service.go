package services

import (
	"context"
	"database/sql"
	"math"

	"github.com/isdelr/pitchzone-be/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// StatsServiceProvider defines the interface for platform statistics and
// the public directories.
type StatsServiceProvider interface {
	PlatformStats(ctx context.Context) (PlatformStats, error)
	Leaderboard(ctx context.Context, limit int) ([]models.Pitch, error)
	Dashboard(ctx context.Context) (Dashboard, error)
	PublicProfile(ctx context.Context, userID string) (models.User, []models.Pitch, error)
	Entrepreneurs(ctx context.Context, page, limit int) ([]EntrepreneurListing, Pagination, error)
}

// PlatformStats aggregates users, pitches and funding.
type PlatformStats struct {
	Users struct {
		Total         int `json:"total"`
		Entrepreneurs int `json:"entrepreneurs"`
		Investors     int `json:"investors"`
		Admins        int `json:"admins"`
	} `json:"users"`
	Pitches struct {
		Total       int     `json:"total"`
		Active      int     `json:"active"`
		Funded      int     `json:"funded"`
		Closed      int     `json:"closed"`
		SuccessRate float64 `json:"successRate"`
	} `json:"pitches"`
	Funding struct {
		TotalTarget   decimal.Decimal `json:"totalTarget"`
		TotalRaised   decimal.Decimal `json:"totalRaised"`
		AverageRaised decimal.Decimal `json:"averageRaised"`
	} `json:"funding"`
}

// Dashboard is the admin overview.
type Dashboard struct {
	Statistics    PlatformStats  `json:"statistics"`
	RecentUsers   []models.User  `json:"recentUsers"`
	RecentPitches []models.Pitch `json:"recentPitches"`
}

// EntrepreneurListing is an entrepreneur with their open pitches.
type EntrepreneurListing struct {
	models.User
	ActivePitches []models.Pitch `json:"activePitches"`
}

const dashboardRecentLimit = 10

// StatsService computes read-only views across users and pitches.
type StatsService struct {
	db      *sql.DB
	users   UserServiceProvider
	pitches PitchServiceProvider
}

// NewStatsService creates a new StatsService.
func NewStatsService(db *sql.DB, users UserServiceProvider, pitches PitchServiceProvider) *StatsService {
	return &StatsService{db: db, users: users, pitches: pitches}
}

// PlatformStats runs the user, pitch and funding aggregates concurrently.
func (s *StatsService) PlatformStats(ctx context.Context) (PlatformStats, error) {
	var stats PlatformStats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.countBy(ctx, "SELECT role, COUNT(*) FROM users GROUP BY role")
		if err != nil {
			return internal("failed to count users", err)
		}
		stats.Users.Entrepreneurs = counts[models.RoleEntrepreneur.String()]
		stats.Users.Investors = counts[models.RoleInvestor.String()]
		stats.Users.Admins = counts[models.RoleAdmin.String()]
		for _, n := range counts {
			stats.Users.Total += n
		}
		return nil
	})

	g.Go(func() error {
		counts, err := s.countBy(ctx, "SELECT status, COUNT(*) FROM pitches GROUP BY status")
		if err != nil {
			return internal("failed to count pitches", err)
		}
		stats.Pitches.Active = counts[string(models.PitchActive)]
		stats.Pitches.Funded = counts[string(models.PitchFunded)]
		stats.Pitches.Closed = counts[string(models.PitchClosed)]
		for _, n := range counts {
			stats.Pitches.Total += n
		}
		return nil
	})

	g.Go(func() error {
		// Amounts are stored as decimal text, so they are summed here rather
		// than with SUM() over floats.
		rows, err := s.db.QueryContext(ctx, "SELECT target_amount, raised_amount FROM pitches")
		if err != nil {
			return internal("failed to sum funding", err)
		}
		defer rows.Close()

		target, raised := decimal.Zero, decimal.Zero
		for rows.Next() {
			var t, r decimal.Decimal
			if err := rows.Scan(&t, &r); err != nil {
				return internal("failed to read funding", err)
			}
			target = target.Add(t)
			raised = raised.Add(r)
		}
		if err := rows.Err(); err != nil {
			return internal("failed to sum funding", err)
		}
		stats.Funding.TotalTarget = target
		stats.Funding.TotalRaised = raised
		return nil
	})

	if err := g.Wait(); err != nil {
		return PlatformStats{}, err
	}

	stats.Funding.AverageRaised = decimal.Zero
	if stats.Pitches.Total > 0 {
		stats.Funding.AverageRaised = stats.Funding.TotalRaised.
			Div(decimal.NewFromInt(int64(stats.Pitches.Total))).Round(2)
		rate := float64(stats.Pitches.Funded) / float64(stats.Pitches.Total) * 100
		stats.Pitches.SuccessRate = math.Round(rate*10) / 10
	}
	return stats, nil
}

func (s *StatsService) countBy(ctx context.Context, query string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

// Leaderboard returns the best funded open or funded pitches.
func (s *StatsService) Leaderboard(ctx context.Context, limit int) ([]models.Pitch, error) {
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return queryPitches(ctx, s.db,
		pitchSelect+" WHERE p.status IN (?, ?) ORDER BY CAST(p.raised_amount AS REAL) DESC, p.created_at LIMIT ?",
		models.PitchActive, models.PitchFunded, limit)
}

// Dashboard gathers the admin overview.
func (s *StatsService) Dashboard(ctx context.Context) (Dashboard, error) {
	stats, err := s.PlatformStats(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	users, _, err := s.users.ListUsers(ctx, UserFilter{Page: 1, Limit: dashboardRecentLimit})
	if err != nil {
		return Dashboard{}, err
	}
	pitches, _, err := s.pitches.ListPitches(ctx, PitchFilter{Status: AllStatuses, Page: 1, Limit: dashboardRecentLimit})
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{Statistics: stats, RecentUsers: users, RecentPitches: pitches}, nil
}

// PublicProfile returns a user and, for entrepreneurs, their pitches.
func (s *StatsService) PublicProfile(ctx context.Context, userID string) (models.User, []models.Pitch, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return models.User{}, nil, err
	}
	pitches := []models.Pitch{}
	if user.Role == models.RoleEntrepreneur {
		if pitches, err = s.pitches.MyPitches(ctx, user.ID); err != nil {
			return models.User{}, nil, err
		}
	}
	return user, pitches, nil
}

// Entrepreneurs lists entrepreneurs with their Active pitches.
func (s *StatsService) Entrepreneurs(ctx context.Context, page, limit int) ([]EntrepreneurListing, Pagination, error) {
	users, pagination, err := s.users.ListUsers(ctx, UserFilter{Role: models.RoleEntrepreneur, Page: page, Limit: limit})
	if err != nil {
		return nil, Pagination{}, err
	}

	listings := make([]EntrepreneurListing, 0, len(users))
	for _, u := range users {
		active, err := queryPitches(ctx, s.db,
			pitchSelect+" WHERE p.entrepreneur_id = ? AND p.status = ? ORDER BY p.created_at DESC",
			u.ID, models.PitchActive)
		if err != nil {
			return nil, Pagination{}, err
		}
		listings = append(listings, EntrepreneurListing{User: u, ActivePitches: active})
	}
	return listings, pagination, nil
}
