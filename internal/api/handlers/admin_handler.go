package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/pitchzone-be/internal/models"
	"github.com/isdelr/pitchzone-be/internal/monitoring"
	"github.com/isdelr/pitchzone-be/internal/response"
	"github.com/isdelr/pitchzone-be/internal/services"
	"github.com/rs/zerolog/log"
)

// SystemReporter samples host metrics for the admin console.
type SystemReporter interface {
	Sample(ctx context.Context) (monitoring.SystemSnapshot, error)
}

// AdminHandler handles the admin console. Every route is mounted behind the
// admin capability.
type AdminHandler struct {
	users   services.UserServiceProvider
	pitches services.PitchServiceProvider
	stats   services.StatsServiceProvider
	system  SystemReporter
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(users services.UserServiceProvider, pitches services.PitchServiceProvider, stats services.StatsServiceProvider, system SystemReporter) *AdminHandler {
	return &AdminHandler{users: users, pitches: pitches, stats: stats, system: system}
}

// Dashboard returns platform statistics with the latest users and pitches.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.stats.Dashboard(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "Dashboard retrieved successfully", response.Payload{"data": dashboard})
}

// System reports host resource usage.
func (h *AdminHandler) System(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.system.Sample(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("System sample interrupted")
		response.Error(w, r, err)
		return
	}
	response.OK(w, "System status retrieved successfully", response.Payload{"data": snapshot})
}

// ListUsers lists accounts, optionally filtered by role and search text.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	filter := services.UserFilter{
		Search: r.URL.Query().Get("search"),
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 10),
	}
	if raw := r.URL.Query().Get("role"); raw != "" && raw != "all" {
		role, err := models.ParseRole(raw)
		if err != nil {
			response.Fail(w, http.StatusBadRequest, "Invalid role")
			return
		}
		filter.Role = role
	}

	users, pagination, err := h.users.ListUsers(r.Context(), filter)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "Users retrieved successfully", response.Payload{
		"data": response.Payload{"users": users, "pagination": pagination},
	})
}

// GetUser returns one account and, for entrepreneurs, their pitches.
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, pitches, err := h.stats.PublicProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "User retrieved successfully", response.Payload{
		"data": response.Payload{"user": user, "pitches": pitches},
	})
}

// UpdateUser edits another account. The role cannot be changed.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch services.AdminUserPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	user, err := h.users.AdminUpdateUser(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "User updated successfully", response.Payload{"data": user})
}

// DeleteUser removes a non-admin account and its pitches.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "User deleted successfully", nil)
}

// CreateUser creates an account of any role, including admin.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var payload services.RegisterInput
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.users.CreateUser(r.Context(), payload)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, "User created successfully", response.Payload{"data": user})
}

// ListPitches lists pitches of every status unless one is requested.
func (h *AdminHandler) ListPitches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.PitchFilter{
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Search:   q.Get("search"),
		SortBy:   q.Get("sortBy"),
		Order:    q.Get("order"),
		Page:     queryInt(r, "page", 1),
		Limit:    queryInt(r, "limit", 10),
	}
	if filter.Status == "" {
		filter.Status = services.AllStatuses
	}

	pitches, pagination, err := h.pitches.ListPitches(r.Context(), filter)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "Pitches retrieved successfully", response.Payload{
		"data": response.Payload{"pitches": pitches, "pagination": pagination},
	})
}

// GetPitch returns a pitch without counting a view.
func (h *AdminHandler) GetPitch(w http.ResponseWriter, r *http.Request) {
	pitch, err := h.pitches.GetPitchDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "Pitch retrieved successfully", response.Payload{"data": pitch})
}

// UpdatePitch edits any pitch's descriptive fields.
func (h *AdminHandler) UpdatePitch(w http.ResponseWriter, r *http.Request) {
	var patch services.PitchPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	pitch, err := h.pitches.AdminUpdatePitch(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "Pitch updated successfully", response.Payload{"data": pitch})
}

// DeletePitch removes a pitch with its investments and feedback.
func (h *AdminHandler) DeletePitch(w http.ResponseWriter, r *http.Request) {
	if err := h.pitches.DeletePitch(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "Pitch deleted successfully", nil)
}
