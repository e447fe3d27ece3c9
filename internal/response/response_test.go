package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/isdelr/pitchzone-be/internal/services"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestOKMergesPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, "Done", Payload{"count": 3})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["success"] != true || body["message"] != "Done" || body["count"] != float64(3) {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["timestamp"]; !ok {
		t.Error("timestamp missing")
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		kind services.ErrorKind
		want int
	}{
		{services.KindValidation, http.StatusBadRequest},
		{services.KindAuth, http.StatusUnauthorized},
		{services.KindCredentials, http.StatusBadRequest},
		{services.KindForbidden, http.StatusForbidden},
		{services.KindNotFound, http.StatusNotFound},
		{services.KindConflict, http.StatusBadRequest},
		{services.KindState, http.StatusBadRequest},
		{services.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			Error(rec, req, &services.Error{Kind: tt.kind, Message: "boom"})
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if body := decode(t, rec); body["success"] != false {
				t.Errorf("success = %v", body["success"])
			}
		})
	}
}

func TestErrorIncludesFieldDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	Error(rec, req, &services.Error{
		Kind:    services.KindValidation,
		Message: "Validation failed",
		Fields:  []services.FieldError{{Field: "title", Message: "title is required"}},
	})

	body := decode(t, rec)
	errs, ok := body["errors"].([]interface{})
	if !ok || len(errs) != 1 {
		t.Fatalf("errors = %v", body["errors"])
	}
	if errs[0].(map[string]interface{})["field"] != "title" {
		t.Errorf("errors[0] = %v", errs[0])
	}
}

func TestInternalErrorsRedactedInProduction(t *testing.T) {
	SetProduction(true)
	defer SetProduction(false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	Error(rec, req, errors.New("database is locked"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if msg := decode(t, rec)["message"]; msg != "Internal server error" {
		t.Errorf("message = %v", msg)
	}
}
