// Package response writes the JSON envelope shared by every endpoint:
// {success, message, timestamp, ...payload}.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/isdelr/pitchzone-be/internal/services"
	"github.com/rs/zerolog/log"
)

// Payload holds the top-level keys merged into the envelope.
type Payload map[string]interface{}

var redactInternal atomic.Bool

// SetProduction hides internal error details from clients when enabled.
func SetProduction(enabled bool) {
	redactInternal.Store(enabled)
}

// JSON writes the envelope with the given status.
func JSON(w http.ResponseWriter, status int, success bool, message string, payload Payload) {
	body := make(map[string]interface{}, len(payload)+3)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = success
	body["message"] = message
	body["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// OK writes a 200 success envelope.
func OK(w http.ResponseWriter, message string, payload Payload) {
	JSON(w, http.StatusOK, true, message, payload)
}

// Created writes a 201 success envelope.
func Created(w http.ResponseWriter, message string, payload Payload) {
	JSON(w, http.StatusCreated, true, message, payload)
}

// Fail writes an error envelope without going through the error taxonomy.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, false, message, nil)
}

// StatusFor maps a service error kind to its HTTP status.
func StatusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation, services.KindCredentials, services.KindConflict, services.KindState:
		return http.StatusBadRequest
	case services.KindAuth:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// Error translates err into an error envelope. Internal failures are logged
// and, in production, replaced by a generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var se *services.Error
	if !errors.As(err, &se) {
		se = &services.Error{Kind: services.KindInternal, Message: "Internal server error", Err: err}
	}

	status := StatusFor(se.Kind)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")

		msg := se.Message
		if redactInternal.Load() {
			msg = "Internal server error"
		}
		JSON(w, status, false, msg, nil)
		return
	}

	var payload Payload
	if len(se.Fields) > 0 {
		payload = Payload{"errors": se.Fields}
	}
	JSON(w, status, false, se.Message, payload)
}
