package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/isdelr/pitchzone-be/internal/auth"
	"github.com/isdelr/pitchzone-be/internal/models"
	"github.com/isdelr/pitchzone-be/internal/response"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into dst. On failure it writes a 400 and
// returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// queryInt parses a positive integer query parameter, falling back to def.
func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// currentUser returns the user attached by the auth middleware. Routes using
// it are always mounted behind Authenticate.
func currentUser(r *http.Request) models.User {
	user, _ := auth.UserFrom(r.Context())
	return user
}
