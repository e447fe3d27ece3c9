package handlers

import (
	"net/http"

	"github.com/isdelr/pitchzone-be/internal/auth"
	"github.com/isdelr/pitchzone-be/internal/models"
	"github.com/isdelr/pitchzone-be/internal/response"
	"github.com/isdelr/pitchzone-be/internal/services"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles sign-up, login and the caller's own profile.
type AuthHandler struct {
	service services.UserServiceProvider
	tokens  *auth.TokenManager
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.UserServiceProvider, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{service: service, tokens: tokens}
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload services.RegisterInput
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.service.Register(r.Context(), payload)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	h.issue(w, r, http.StatusCreated, "User registered successfully", user)
}

// Login handles user authentication and JWT generation.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.service.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed authentication attempt")
		response.Error(w, r, err)
		return
	}
	h.issue(w, r, http.StatusOK, "Login successful", user)
}

func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, status int, message string, user models.User) {
	token, err := h.tokens.GenerateJWT(user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate JWT")
		response.Error(w, r, err)
		return
	}
	response.JSON(w, status, true, message, response.Payload{"token": token, "user": user})
}

// GetMe returns the authenticated user.
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	response.OK(w, "User profile retrieved successfully", response.Payload{"user": currentUser(r)})
}

// UpdateProfile applies the allow-listed profile fields.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch services.ProfilePatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), currentUser(r).ID, patch)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, "Profile updated successfully", response.Payload{"user": user})
}

// Logout is stateless; the client discards its token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	response.OK(w, "Logout successful. Please remove token from client storage.", nil)
}
