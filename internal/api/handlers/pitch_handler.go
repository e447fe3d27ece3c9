package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/pitchzone-be/internal/auth"
	"github.com/isdelr/pitchzone-be/internal/response"
	"github.com/isdelr/pitchzone-be/internal/services"
	"github.com/shopspring/decimal"
)

// PitchHandler handles HTTP requests for pitches and funding.
type PitchHandler struct {
	pitches services.PitchServiceProvider
	funding services.FundingServiceProvider
}

// NewPitchHandler creates a new PitchHandler.
func NewPitchHandler(pitches services.PitchServiceProvider, funding services.FundingServiceProvider) *PitchHandler {
	return &PitchHandler{pitches: pitches, funding: funding}
}

// InvestPayload defines the structure for investment requests.
type InvestPayload struct {
	Amount decimal.Decimal `json:"amount"`
}

// List handles the public pitch listing.
func (h *PitchHandler) List(w http.ResponseWriter, r *http.Request) {
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

	pitches, pagination, err := h.pitches.ListPitches(r.Context(), filter)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "Pitches retrieved successfully", response.Payload{"pitches": pitches, "pagination": pagination})
}

// Get returns one pitch and counts the view unless the owner is looking.
func (h *PitchHandler) Get(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.UserFrom(r.Context())

	pitch, err := h.pitches.GetPitch(r.Context(), chi.URLParam(r, "id"), viewer.ID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "Pitch retrieved successfully", response.Payload{"pitch": pitch})
}

// Create handles pitch creation by an entrepreneur.
func (h *PitchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload services.CreatePitchInput
	if !decodeJSON(w, r, &payload) {
		return
	}

	pitch, err := h.pitches.CreatePitch(r.Context(), currentUser(r), payload)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, "Pitch created successfully", response.Payload{"pitch": pitch})
}

// Update edits the caller's own pitch.
func (h *PitchHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch services.PitchPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	pitch, err := h.pitches.UpdatePitch(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"), patch)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "Pitch updated successfully", response.Payload{"pitch": pitch})
}

// Close moves the caller's own pitch to Closed.
func (h *PitchHandler) Close(w http.ResponseWriter, r *http.Request) {
	pitch, err := h.pitches.ClosePitch(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "Pitch closed successfully", response.Payload{"pitch": pitch})
}

// Mine lists the caller's pitches, newest first.
func (h *PitchHandler) Mine(w http.ResponseWriter, r *http.Request) {
	pitches, err := h.pitches.MyPitches(r.Context(), currentUser(r).ID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "Your pitches retrieved successfully", response.Payload{"pitches": pitches})
}

// Invest handles an investor funding a pitch.
func (h *PitchHandler) Invest(w http.ResponseWriter, r *http.Request) {
	var payload InvestPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	result, err := h.funding.Invest(r.Context(), currentUser(r), chi.URLParam(r, "id"), payload.Amount)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "Investment successful", response.Payload{"pitch": result.Pitch, "investment": result.Investment})
}

// Feedback records an investor's single review of a pitch.
func (h *PitchHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var payload services.FeedbackInput
	if !decodeJSON(w, r, &payload) {
		return
	}

	feedback, err := h.funding.AddFeedback(r.Context(), currentUser(r), chi.URLParam(r, "id"), payload)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "Feedback added successfully", response.Payload{"feedback": feedback})
}
