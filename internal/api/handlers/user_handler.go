package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/pitchzone-be/internal/models"
	"github.com/isdelr/pitchzone-be/internal/response"
	"github.com/isdelr/pitchzone-be/internal/services"
)

const leaderboardSize = 10

// UserHandler handles the public directory, statistics and portfolios.
type UserHandler struct {
	users   services.UserServiceProvider
	stats   services.StatsServiceProvider
	funding services.FundingServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users services.UserServiceProvider, stats services.StatsServiceProvider, funding services.FundingServiceProvider) *UserHandler {
	return &UserHandler{users: users, stats: stats, funding: funding}
}

// Profile returns a user's public profile and, for entrepreneurs, their pitches.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, pitches, err := h.stats.PublicProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "User profile retrieved successfully", response.Payload{"user": user, "pitches": pitches})
}

// Stats returns platform-wide statistics.
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.PlatformStats(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "Platform statistics retrieved successfully", response.Payload{"stats": stats})
}

// Leaderboard returns the best funded open or funded pitches.
func (h *UserHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	pitches, err := h.stats.Leaderboard(r.Context(), queryInt(r, "limit", leaderboardSize))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "Leaderboard retrieved successfully", response.Payload{"pitches": pitches})
}

// Investors lists investor accounts.
func (h *UserHandler) Investors(w http.ResponseWriter, r *http.Request) {
	investors, pagination, err := h.users.ListUsers(r.Context(), services.UserFilter{
		Role:  models.RoleInvestor,
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", 10),
	})
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "Investors retrieved successfully", response.Payload{"investors": investors, "pagination": pagination})
}

// Entrepreneurs lists entrepreneurs with their active pitches.
func (h *UserHandler) Entrepreneurs(w http.ResponseWriter, r *http.Request) {
	entrepreneurs, pagination, err := h.stats.Entrepreneurs(r.Context(), queryInt(r, "page", 1), queryInt(r, "limit", 10))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "Entrepreneurs retrieved successfully", response.Payload{"entrepreneurs": entrepreneurs, "pagination": pagination})
}

// MyInvestments returns the caller's portfolio.
func (h *UserHandler) MyInvestments(w http.ResponseWriter, r *http.Request) {
	investments, summary, err := h.funding.MyInvestments(r.Context(), currentUser(r).ID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "Your investments retrieved successfully", response.Payload{"investments": investments, "summary": summary})
}
